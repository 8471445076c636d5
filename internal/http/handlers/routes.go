package handlers

import "github.com/gofiber/fiber/v2"

// Mount registers the API routes on r. acceptGuards run in front of the
// accept handler, typically a tighter rate limiter.
func (d *Deps) Mount(r fiber.Router, acceptGuards ...fiber.Handler) {
	neg := r.Group("/negotiation")
	neg.Post("/send", d.NegotiationHandler.Send)
	neg.Get("/details", d.NegotiationHandler.Details)
	neg.Get("/messages", d.NegotiationHandler.Messages)
	neg.Get("/threads", d.NegotiationHandler.ThreadList)
	neg.Post("/accept", append(acceptGuards, d.NegotiationHandler.Accept)...)
	neg.Post("/reject", d.NegotiationHandler.Reject)

	r.Post("/product/upload", d.ProductHandler.Upload)
	r.Get("/product/get", d.ProductHandler.Get)
	r.Get("/product/getfarmer", d.ProductHandler.ByFarmer)
	r.Get("/order/my_orders", d.OrderHandler.MyOrders)
}
