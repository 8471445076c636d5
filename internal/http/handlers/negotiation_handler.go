package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "agrimarket/internal/log"
	"agrimarket/internal/services"
	"agrimarket/internal/validate"
)

const maxJustification = 500

type NegotiationHandler struct {
	Negs    *services.NegotiationService
	Orders  *services.OrderService
	Threads *services.ThreadService
}

type sendBody struct {
	ProductID      string      `json:"product_id"`
	SenderID       string      `json:"sender_id"`
	ReceiverID     string      `json:"receiver_id"`
	SuggestedPrice json.Number `json:"suggested_price"`
	Quantity       int         `json:"quantity"`
	Justification  string      `json:"justification"`
}

func (h *NegotiationHandler) Send(c *fiber.Ctx) error {
	var b sendBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	for _, f := range [...]struct{ name, val string }{
		{"product_id", b.ProductID}, {"sender_id", b.SenderID}, {"receiver_id", b.ReceiverID},
	} {
		if _, ok := validate.ID(f.val); !ok {
			return badRequest(c, f.name, "missing or invalid "+f.name)
		}
	}
	price, ok := validate.Price(string(b.SuggestedPrice))
	if !ok {
		return badRequest(c, "suggested_price", "suggested_price must be a positive amount")
	}
	if _, ok := validate.Text(b.Justification, maxJustification); !ok {
		return badRequest(c, "justification", "justification must be 1-500 characters")
	}
	c.Locals("user_id", b.SenderID)

	n, err := h.Negs.Send(c.UserContext(), services.Offer{
		ProductID:      strings.TrimSpace(b.ProductID),
		SenderID:       strings.TrimSpace(b.SenderID),
		ReceiverID:     strings.TrimSpace(b.ReceiverID),
		SuggestedPrice: price,
		Quantity:       b.Quantity,
		Justification:  b.Justification,
	})
	if err != nil {
		return fail(c, "negotiation.send", err)
	}
	applog.Audit(c, "negotiation.send", map[string]any{"negotiation_id": n.ID, "product_id": n.ProductID, "to": n.ReceiverID})
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (h *NegotiationHandler) Details(c *fiber.Ctx) error {
	lang, ok := validate.Lang(c.Query("lang"))
	if !ok {
		return badRequest(c, "lang", "invalid lang")
	}
	c.Locals("user_id", c.Query("current_user_id"))
	d, err := h.Negs.Details(c.UserContext(),
		strings.TrimSpace(c.Query("product_id")),
		strings.TrimSpace(c.Query("buyer_id")),
		strings.TrimSpace(c.Query("current_user_id")),
		lang)
	if err != nil {
		return fail(c, "negotiation.details", err)
	}
	return c.JSON(d)
}

func (h *NegotiationHandler) Messages(c *fiber.Ctx) error {
	var newestFirst bool
	switch strings.ToLower(c.Query("order", "asc")) {
	case "asc":
	case "desc":
		newestFirst = true
	default:
		return badRequest(c, "order", "order must be asc or desc")
	}
	msgs, err := h.Negs.Messages(c.UserContext(),
		strings.TrimSpace(c.Query("product_id")),
		strings.TrimSpace(c.Query("user_id")),
		strings.TrimSpace(c.Query("farmer_id")),
		newestFirst)
	if err != nil {
		return fail(c, "negotiation.messages", err)
	}
	return c.JSON(msgs)
}

func (h *NegotiationHandler) ThreadList(c *fiber.Ctx) error {
	userID, ok := validate.ID(c.Query("user_id"))
	if !ok {
		return badRequest(c, "user_id", "missing or invalid user_id")
	}
	lang, ok := validate.Lang(c.Query("lang"))
	if !ok {
		return badRequest(c, "lang", "invalid lang")
	}
	c.Locals("user_id", userID)
	threads, err := h.Threads.Threads(c.UserContext(), userID, lang)
	if err != nil {
		return fail(c, "negotiation.threads", err)
	}
	return c.JSON(threads)
}

type acceptBody struct {
	NegotiationID string `json:"negotiation_id"`
	BuyerID       string `json:"buyer_id"`
	Quantity      int    `json:"quantity"`
}

func (h *NegotiationHandler) Accept(c *fiber.Ctx) error {
	var b acceptBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	negID, ok := validate.ID(b.NegotiationID)
	if !ok {
		return badRequest(c, "negotiation_id", "missing or invalid negotiation_id")
	}
	buyerID, ok := validate.ID(b.BuyerID)
	if !ok {
		return badRequest(c, "buyer_id", "missing or invalid buyer_id")
	}
	c.Locals("user_id", buyerID)

	o, err := h.Orders.AcceptNegotiation(c.UserContext(), services.Acceptance{
		NegotiationID: negID,
		BuyerID:       buyerID,
		Quantity:      b.Quantity,
	})
	if err != nil {
		return fail(c, "negotiation.accept", err)
	}
	applog.Audit(c, "negotiation.accept", map[string]any{"negotiation_id": negID, "order_id": o.ID, "qty": o.Quantity, "total": o.TotalPrice.String()})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Negotiation accepted and order placed", "order": o})
}

type rejectBody struct {
	NegotiationID string `json:"negotiation_id"`
}

func (h *NegotiationHandler) Reject(c *fiber.Ctx) error {
	var b rejectBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	negID, ok := validate.ID(b.NegotiationID)
	if !ok {
		return badRequest(c, "negotiation_id", "missing or invalid negotiation_id")
	}
	n, err := h.Negs.Reject(c.UserContext(), negID)
	if err != nil {
		return fail(c, "negotiation.reject", err)
	}
	applog.Audit(c, "negotiation.reject", map[string]any{"negotiation_id": negID})
	return c.JSON(fiber.Map{"message": "Negotiation rejected", "negotiation": n})
}
