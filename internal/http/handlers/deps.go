package handlers

import (
	"agrimarket/internal/repos"
	"agrimarket/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	NegotiationHandler *NegotiationHandler
	ProductHandler     *ProductHandler
	OrderHandler       *OrderHandler
}

func NewDeps(db *sqlx.DB, tr services.Translator, pricer services.FairPricer) *Deps {
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	negRepo := repos.NewNegotiationRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	userRepo := repos.NewUserRepo(db)

	invSvc := services.NewInventoryService(invRepo)
	negSvc := services.NewNegotiationService(negRepo, prodRepo, userRepo, tr)
	orderSvc := services.NewOrderService(negRepo, prodRepo, invRepo, orderRepo)
	threadSvc := services.NewThreadService(negRepo, prodRepo, userRepo, tr)
	prodSvc := services.NewProductService(prodRepo, userRepo, orderRepo, invSvc, pricer, tr)

	return &Deps{
		NegotiationHandler: &NegotiationHandler{Negs: negSvc, Orders: orderSvc, Threads: threadSvc},
		ProductHandler:     &ProductHandler{Products: prodSvc},
		OrderHandler:       &OrderHandler{Orders: orderSvc},
	}
}
