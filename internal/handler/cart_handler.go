package handler

import (
	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/ege-manyasli/manyasligida/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	cart      *service.CartService
	validator *validator.Validator
	cookies   Cookies
}

func NewCartHandler(cart *service.CartService, validator *validator.Validator, cookies Cookies) *CartHandler {
	return &CartHandler{
		cart:      cart,
		validator: validator,
		cookies:   cookies,
	}
}

type AddItemRequest struct {
	ProductID int64        `json:"product_id" validate:"required,gt=0"`
	Quantity  int          `json:"quantity" validate:"gt=0,lte=999"`
	UnitPrice domain.Money `json:"unit_price" validate:"gte=0,lte=100000000"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=999"`
}

// Get returns the visitor's cart
// GET /api/v1/cart
func (h *CartHandler) Get(c *fiber.Ctx) error {
	summary, err := h.cart.Get(c.Context(), visitorID(c, h.cookies))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	summary, err := h.cart.AddItem(c.Context(), visitorID(c, h.cookies), req.ProductID, req.Quantity, req.UnitPrice)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

// UpdateQuantity sets a line's quantity; zero removes it
// PUT /api/v1/cart/items/:productId
func (h *CartHandler) UpdateQuantity(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("productId")
	if err != nil || productID <= 0 {
		return badRequest(c, "Invalid product id")
	}

	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.validator.Validate(req); err != nil {
		return badRequest(c, err.Error())
	}

	summary, err := h.cart.UpdateQuantity(c.Context(), visitorID(c, h.cookies), int64(productID), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

// RemoveItem drops a line from the cart
// DELETE /api/v1/cart/items/:productId
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("productId")
	if err != nil || productID <= 0 {
		return badRequest(c, "Invalid product id")
	}

	summary, err := h.cart.RemoveItem(c.Context(), visitorID(c, h.cookies), int64(productID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

// Clear empties the cart
// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	summary, err := h.cart.Clear(c.Context(), visitorID(c, h.cookies))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
