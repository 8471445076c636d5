package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"agrimarket/internal/domain"
	"agrimarket/internal/pricing"
)

// store is an in-memory stand-in for every repository port. A single mutex
// makes each method atomic, which is what the SQL conditional updates give.
type store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	negs     map[string]domain.Negotiation
	seq      []string
	orders   []domain.Order
	users    map[string]domain.User

	failOrderCreate bool
	failRestock     bool
}

func newStore() *store {
	return &store{
		products: map[string]domain.Product{},
		negs:     map[string]domain.Negotiation{},
		users:    map[string]domain.User{},
	}
}

func (s *store) addProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *store) addUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *store) qty(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

func (s *store) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Ledger

func (s *store) Available(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p.Quantity, nil
}

func (s *store) Decrement(_ context.Context, id string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if p.Quantity < amount {
		return p.Quantity, fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientStock, amount, p.Quantity)
	}
	p.Quantity -= amount
	s.products[id] = p
	return p.Quantity, nil
}

func (s *store) Restock(ctx context.Context, id string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failRestock {
		return errors.New("restock down")
	}
	p, ok := s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Quantity += amount
	s.products[id] = p
	return nil
}

// NegotiationRepository

func (s *store) Insert(_ context.Context, n domain.Negotiation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.negs[n.ID] = n
	s.seq = append(s.seq, n.ID)
	return nil
}

func (s *store) Get(_ context.Context, id string) (domain.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.negs[id]
	if !ok {
		return domain.Negotiation{}, domain.ErrNotFound
	}
	return n, nil
}

func (s *store) ListForThread(_ context.Context, productID, a, b string, newestFirst bool) ([]domain.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Negotiation{}
	for _, id := range s.seq {
		n := s.negs[id]
		if n.ProductID == productID && n.Involves(a) && n.Involves(b) {
			out = append(out, n)
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *store) ListForUser(_ context.Context, userID string) ([]domain.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Negotiation{}
	for _, id := range s.seq {
		if n := s.negs[id]; n.Involves(userID) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *store) UnreadIDs(_ context.Context, productID, receiverID string, senders []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, id := range s.seq {
		n := s.negs[id]
		if n.ProductID != productID || n.ReceiverID != receiverID || n.Read {
			continue
		}
		for _, snd := range senders {
			if n.SenderID == snd {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

func (s *store) MarkRead(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if n, ok := s.negs[id]; ok {
			n.Read = true
			s.negs[id] = n
		}
	}
	return nil
}

func (s *store) Transition(_ context.Context, id string, from, to domain.NegotiationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.negs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.Status != from {
		return fmt.Errorf("%w: %s is %s", domain.ErrInvalidTransition, id, n.Status)
	}
	n.Status = to
	s.negs[id] = n
	return nil
}

// OrderRepository

func (s *store) Create(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrderCreate {
		return errors.New("orders table locked")
	}
	s.orders = append(s.orders, o)
	return nil
}

func (s *store) ListByBuyer(_ context.Context, buyerID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].BuyerID == buyerID {
			out = append(out, s.orders[i])
		}
	}
	return out, nil
}

func (s *store) SumQuantity(_ context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.ProductID == productID {
			n += o.Quantity
		}
	}
	return n, nil
}

// ProductRepository and Directory live on thin wrappers because Get and
// Insert collide with the negotiation methods.

type productRepo struct{ s *store }

func (r productRepo) Get(_ context.Context, id string) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return p, nil
}

func (r productRepo) Insert(_ context.Context, p domain.Product) error {
	r.s.addProduct(p)
	return nil
}

func (r productRepo) ListByFarmer(_ context.Context, farmerID string) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.s.products {
		if p.FarmerID == farmerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type directory struct{ s *store }

func (d directory) ByID(_ context.Context, id string) (domain.User, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	u, ok := d.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// upperTr "translates" by tagging the text, and counts calls.
type upperTr struct {
	mu    sync.Mutex
	calls int
}

func (t *upperTr) Translate(_ context.Context, text, _, target string) string {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return "[" + target + "]" + text
}

func (t *upperTr) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type fixedPricer struct {
	q   pricing.Quote
	err error
}

func (f fixedPricer) FairPrice(context.Context, string) (pricing.Quote, error) { return f.q, f.err }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
