package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"agrimarket/internal/log"
	"agrimarket/internal/services"
	"agrimarket/internal/validate"
)

type ProductHandler struct {
	Products *services.ProductService
}

type uploadBody struct {
	FarmerID    string      `json:"farmer_id"`
	ProductName string      `json:"product_name"`
	Commodity   string      `json:"commodity"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	Image       string      `json:"image"`
	Units       string      `json:"units"`
	Lang        string      `json:"lang"`
}

func (h *ProductHandler) Upload(c *fiber.Ctx) error {
	var b uploadBody
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, "body", "invalid request body")
	}
	if _, ok := validate.Lang(b.Lang); !ok {
		return badRequest(c, "lang", "invalid lang")
	}
	price, ok := validate.Price(string(b.Price))
	if !ok {
		return badRequest(c, "price", "price is required")
	}
	c.Locals("user_id", b.FarmerID)

	res, err := h.Products.Upload(c.UserContext(), services.Upload{
		FarmerID:    b.FarmerID,
		ProductName: b.ProductName,
		Commodity:   b.Commodity,
		Units:       b.Units,
		Image:       b.Image,
		Lang:        b.Lang,
		Price:       price,
		Quantity:    b.Quantity,
	})
	if err != nil {
		return fail(c, "product.upload", err)
	}
	log.Audit(c, "product.upload", map[string]any{"product_id": res.Product.ID, "price": res.Product.Price.String()})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":               "Product uploaded successfully",
		"product":               res.Product,
		"suggested_price_range": res.SuggestedRange,
	})
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Query("id"))
	if !ok {
		return badRequest(c, "id", "Product ID is required")
	}
	lang, ok := validate.Lang(c.Query("lang"))
	if !ok {
		return badRequest(c, "lang", "invalid lang")
	}
	p, err := h.Products.Get(c.UserContext(), id, lang)
	if err != nil {
		return fail(c, "product.get", err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) ByFarmer(c *fiber.Ctx) error {
	farmerID, ok := validate.ID(c.Query("farmer_id"))
	if !ok {
		return badRequest(c, "farmer_id", "Farmer ID is required")
	}
	lang, ok := validate.Lang(c.Query("lang"))
	if !ok {
		return badRequest(c, "lang", "invalid lang")
	}
	ps, err := h.Products.ByFarmer(c.UserContext(), farmerID, lang)
	if err != nil {
		return fail(c, "product.by_farmer", err)
	}
	return c.JSON(fiber.Map{"products": ps})
}
