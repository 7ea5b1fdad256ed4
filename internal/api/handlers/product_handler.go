package handlers

import (
	"splay/domain"
	"splay/internal/api/presenters"
	"splay/pkg/product"

	"github.com/gofiber/fiber/v2"
)

type (
	ProductHandler interface {
		GetProducts(c *fiber.Ctx) error
		GetProduct(c *fiber.Ctx) error
	}

	productHandler struct {
		productService product.ProductService
	}
)

func NewProductHandler(productService product.ProductService) ProductHandler {
	return &productHandler{productService: productService}
}

func (h *productHandler) GetProducts(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	products, pagination, err := h.productService.GetProducts(c.Context(), c.Query("category"), page, limit)
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedGetProducts, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"products":   products,
		"pagination": pagination,
	}, fiber.StatusOK, domain.MessageSuccessGetProducts)
}

func (h *productHandler) GetProduct(c *fiber.Ctx) error {
	res, err := h.productService.GetProduct(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.DomainError(c, domain.MessageFailedGetProduct, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetProduct)
}
