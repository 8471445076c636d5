package services

import (
	"context"

	"agrimarket/internal/domain"
	"agrimarket/internal/pricing"
)

// The services depend on these narrow interfaces rather than on *sqlx.DB, so
// tests can swap in in-memory fakes. The repos package provides the SQL
// implementations.

type Ledger interface {
	Available(ctx context.Context, productID string) (int, error)
	Decrement(ctx context.Context, productID string, amount int) (int, error)
	Restock(ctx context.Context, productID string, amount int) error
}

type NegotiationRepository interface {
	Insert(ctx context.Context, n domain.Negotiation) error
	Get(ctx context.Context, id string) (domain.Negotiation, error)
	ListForThread(ctx context.Context, productID, a, b string, newestFirst bool) ([]domain.Negotiation, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Negotiation, error)
	UnreadIDs(ctx context.Context, productID, receiverID string, senders []string) ([]string, error)
	MarkRead(ctx context.Context, ids []string) error
	Transition(ctx context.Context, id string, from, to domain.NegotiationStatus) error
}

type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
}

type SalesLedger interface {
	SumQuantity(ctx context.Context, productID string) (int, error)
}

type ProductRepository interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	Insert(ctx context.Context, p domain.Product) error
	ListByFarmer(ctx context.Context, farmerID string) ([]domain.Product, error)
}

type Directory interface {
	ByID(ctx context.Context, id string) (domain.User, error)
}

// Translator is best-effort: on any failure it returns text unchanged.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) string
}

type FairPricer interface {
	FairPrice(ctx context.Context, commodity string) (pricing.Quote, error)
}
