package handlers

import (
	"splay/domain"
	"splay/internal/api/presenters"
	"splay/pkg/scan"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ScanHandler interface {
		CreateScan(c *fiber.Ctx) error
		GetScan(c *fiber.Ctx) error
		ListScans(c *fiber.Ctx) error
		DeleteScan(c *fiber.Ctx) error
		ShareScan(c *fiber.Ctx) error
		GetSharedScan(c *fiber.Ctx) error
	}

	scanHandler struct {
		scanService scan.ScanService
		validator   *validator.Validate
	}
)

func NewScanHandler(scanService scan.ScanService, validator *validator.Validate) ScanHandler {
	return &scanHandler{
		scanService: scanService,
		validator:   validator,
	}
}

func (h *scanHandler) CreateScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.CreateScanRequest)

	file, err := c.FormFile("file")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateScan, domain.ErrFilenameRequired)
	}
	req.Image = file

	if err := h.validator.Struct(req); err != nil {
		return validationFailed(c, domain.MessageFailedCreateScan, err)
	}

	res, err := h.scanService.CreateScan(c.Context(), *req, userID)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedCreateScan, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateScan)
}

func (h *scanHandler) GetScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.scanService.GetScan(c.Context(), c.Params("id"), userID)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedGetScan, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetScan)
}

func (h *scanHandler) ListScans(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", scan.DefaultListLimit)

	res, err := h.scanService.ListScans(c.Context(), userID, skip, limit)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedGetScans, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetScans)
}

func (h *scanHandler) DeleteScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.scanService.DeleteScan(c.Context(), c.Params("id"), userID); err != nil {
		return presenters.DomainError(c, domain.MessageFailedDeleteScan, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *scanHandler) ShareScan(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.scanService.ShareScan(c.Context(), c.Params("id"), userID)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedShareScan, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessShareScan)
}

func (h *scanHandler) GetSharedScan(c *fiber.Ctx) error {
	res, err := h.scanService.GetSharedScan(c.Context(), c.Params("token"))
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedGetScan, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetScan)
}
