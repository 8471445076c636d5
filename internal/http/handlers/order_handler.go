package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agrimarket/internal/services"
	"agrimarket/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	buyerID, ok := validate.ID(c.Query("buyer_id"))
	if !ok {
		return badRequest(c, "buyer_id", "missing or invalid buyer_id")
	}
	c.Locals("user_id", buyerID)
	orders, err := h.Orders.BuyerOrders(c.UserContext(), buyerID)
	if err != nil {
		return fail(c, "order.list", err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}
