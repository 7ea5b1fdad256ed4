package handlers

import (
	"errors"
	"strconv"

	"splay/internal/api/presenters"
	"splay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

func validationFailed(c *fiber.Ctx, message string, err error) error {
	return presenters.ErrorResponse(c, fiber.StatusBadRequest, message, errors.New(utils.ValidationMessage(err)))
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return n
}
