package handlers

import (
	"splay/domain"
	"splay/internal/api/presenters"
	"splay/pkg/midtrans"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	MidtransHandler interface {
		Checkout(c *fiber.Ctx) error
		GetSubscription(c *fiber.Ctx) error
		MidtransWebhookHandler(c *fiber.Ctx) error
	}

	midtransHandler struct {
		midtransService midtrans.MidtransService
		validator       *validator.Validate
	}
)

func NewMidtransHandler(midtransService midtrans.MidtransService, validator *validator.Validate) MidtransHandler {
	return &midtransHandler{
		midtransService: midtransService,
		validator:       validator,
	}
}

func (h *midtransHandler) Checkout(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.midtransService.Checkout(c.Context(), userID)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedCheckout, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCheckout)
}

func (h *midtransHandler) GetSubscription(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.midtransService.GetSubscription(c.Context(), userID)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedGetSubscription, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetSubscription)
}

func (h *midtransHandler) MidtransWebhookHandler(c *fiber.Ctx) error {
	req := new(domain.MidtransNotification)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return validationFailed(c, domain.MessageFailedWebhook, err)
	}

	if err := h.midtransService.HandleNotification(c.Context(), *req); err != nil {
		return presenters.DomainError(c, domain.MessageFailedWebhook, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessWebhook)
}
