package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"agrimarket/internal/domain"
	applog "agrimarket/internal/log"
	"agrimarket/internal/metrics"
)

var tracer = otel.Tracer("agrimarket/services")

// compensateTimeout bounds each undo step. Undo steps ignore cancellation of
// the request context.
const compensateTimeout = 5 * time.Second

// OrderService turns an accepted negotiation into a confirmed order.
type OrderService struct {
	Negs   NegotiationRepository
	Prods  ProductRepository
	Inv    Ledger
	Orders OrderRepository
}

func NewOrderService(negs NegotiationRepository, prods ProductRepository, inv Ledger, orders OrderRepository) *OrderService {
	return &OrderService{Negs: negs, Prods: prods, Inv: inv, Orders: orders}
}

type Acceptance struct {
	NegotiationID string
	BuyerID       string
	Quantity      int
}

// AcceptNegotiation runs the conversion:
//
//  1. load the negotiation, which must be pending
//  2. claim it with a conditional pending -> accepted update
//  3. take Quantity out of stock with a conditional decrement
//  4. insert a confirmed order priced at the negotiated price
//
// Only the caller that wins step 2 touches stock, so a concurrent accept of
// the same negotiation fails with ErrInvalidTransition. If 3 or 4 fails, the
// earlier steps are undone before returning: the negotiation is reopened and
// any stock taken is given back.
//
// The accept-time Quantity governs the order. It may be smaller than the
// offered quantity but never larger, and BuyerID must be the party of the
// negotiation that does not own the product.
func (s *OrderService) AcceptNegotiation(ctx context.Context, a Acceptance) (order domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "negotiation.accept")
	span.SetAttributes(
		attribute.String("negotiation_id", a.NegotiationID),
		attribute.String("buyer_id", a.BuyerID),
		attribute.Int("quantity", a.Quantity),
	)
	defer func() {
		result := "ok"
		if err != nil {
			result = domain.Kind(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		metrics.IncAccept(result)
		span.End()
	}()

	if strings.TrimSpace(a.NegotiationID) == "" || strings.TrimSpace(a.BuyerID) == "" {
		return domain.Order{}, fmt.Errorf("%w: negotiation_id and buyer_id are required", domain.ErrValidation)
	}
	if a.Quantity < 1 {
		return domain.Order{}, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	n, err := s.Negs.Get(ctx, a.NegotiationID)
	if err != nil {
		return domain.Order{}, err
	}
	if n.Status != domain.NegotiationPending {
		return domain.Order{}, fmt.Errorf("%w: negotiation %s is %s", domain.ErrInvalidTransition, n.ID, n.Status)
	}
	if a.Quantity > n.Quantity {
		return domain.Order{}, fmt.Errorf("%w: quantity %d exceeds offered %d", domain.ErrValidation, a.Quantity, n.Quantity)
	}
	p, err := s.Prods.Get(ctx, n.ProductID)
	if err != nil {
		return domain.Order{}, err
	}
	if !n.Involves(a.BuyerID) || a.BuyerID == p.FarmerID {
		return domain.Order{}, fmt.Errorf("%w: %s cannot buy through negotiation %s", domain.ErrValidation, a.BuyerID, n.ID)
	}

	if err := s.Negs.Transition(ctx, n.ID, domain.NegotiationPending, domain.NegotiationAccepted); err != nil {
		return domain.Order{}, err
	}
	reopen := func(ctx context.Context) error {
		return s.Negs.Transition(ctx, n.ID, domain.NegotiationAccepted, domain.NegotiationPending)
	}
	restock := func(ctx context.Context) error { return s.Inv.Restock(ctx, n.ProductID, a.Quantity) }

	left, err := s.Inv.Decrement(ctx, n.ProductID, a.Quantity)
	if err != nil {
		s.compensate(ctx, n, "reopen", reopen)
		return domain.Order{}, err
	}
	span.SetAttributes(attribute.Int("stock_left", left))

	negID := n.ID
	order = domain.Order{
		ID:              uuid.NewString(),
		BuyerID:         a.BuyerID,
		ProductID:       n.ProductID,
		NegotiationID:   &negID,
		Quantity:        a.Quantity,
		TotalPrice:      n.SuggestedPrice.Mul(decimal.NewFromInt(int64(a.Quantity))),
		NegotiatedPrice: decimal.NewNullDecimal(n.SuggestedPrice),
		Status:          domain.OrderConfirmed,
		CreatedAt:       domain.Now(),
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		s.compensate(ctx, n, "restock", restock)
		s.compensate(ctx, n, "reopen", reopen)
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	metrics.IncNegotiation("accepted")
	return order, nil
}

func (s *OrderService) compensate(ctx context.Context, n domain.Negotiation, step string, undo func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	if err := undo(ctx); err != nil {
		metrics.IncCompensation(step, false)
		applog.Error(nil, "negotiation.accept.compensate.fail", err, map[string]any{
			"step":           step,
			"negotiation_id": n.ID,
			"product_id":     n.ProductID,
		})
		return
	}
	metrics.IncCompensation(step, true)
}

// BuyerOrders lists a buyer's orders, newest first.
func (s *OrderService) BuyerOrders(ctx context.Context, buyerID string) ([]domain.Order, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, fmt.Errorf("%w: buyer_id is required", domain.ErrValidation)
	}
	return s.Orders.ListByBuyer(ctx, buyerID)
}
