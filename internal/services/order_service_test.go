package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"agrimarket/internal/domain"
	"agrimarket/internal/services"
)

type fixture struct {
	st  *store
	svc *services.OrderService
}

func newFixture(stock int) fixture {
	st := newStore()
	st.addProduct(domain.Product{ID: "p1", FarmerID: "farmer", Name: "Tomato", Price: dec("60"), Quantity: stock, Status: domain.ProductAvailable})
	return fixture{st: st, svc: services.NewOrderService(st, productRepo{st}, st, st)}
}

func (f fixture) offer(t *testing.T, id string, price string, qty int) {
	t.Helper()
	require.NoError(t, f.st.Insert(context.Background(), domain.Negotiation{
		ID: id, ProductID: "p1", SenderID: "buyer", ReceiverID: "farmer",
		SuggestedPrice: dec(price), Quantity: qty, Justification: "bulk order",
		Status: domain.NegotiationPending, CreatedAt: domain.Now(),
	}))
}

func (f fixture) status(t *testing.T, id string) domain.NegotiationStatus {
	t.Helper()
	n, err := f.st.Get(context.Background(), id)
	require.NoError(t, err)
	return n.Status
}

func TestAcceptNegotiation_CreatesConfirmedOrder(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)

	o, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
	require.NoError(t, err)

	assert.Equal(t, 6, f.st.qty("p1"))
	assert.Equal(t, domain.NegotiationAccepted, f.status(t, "n1"))
	assert.Equal(t, domain.OrderConfirmed, o.Status)
	assert.True(t, o.TotalPrice.Equal(dec("200")), "total %s", o.TotalPrice)
	require.True(t, o.NegotiatedPrice.Valid)
	assert.True(t, o.NegotiatedPrice.Decimal.Equal(dec("50")))
	require.NotNil(t, o.NegotiationID)
	assert.Equal(t, "n1", *o.NegotiationID)
	assert.Equal(t, "buyer", o.BuyerID)
	assert.Equal(t, 1, f.st.orderCount())
}

func TestAcceptNegotiation_BuyerMustBeNonOwningParty(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)

	_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "farmer", Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "stranger", Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 10, f.st.qty("p1"))
	assert.Equal(t, domain.NegotiationPending, f.status(t, "n1"))
}

func TestAcceptNegotiation_PartialQuantity(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)

	o, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, o.Quantity)
	assert.True(t, o.TotalPrice.Equal(dec("150")))
	assert.Equal(t, 7, f.st.qty("p1"))
}

func TestAcceptNegotiation_Rejects(t *testing.T) {
	cases := []struct {
		name string
		acc  services.Acceptance
		want error
	}{
		{"missing id", services.Acceptance{BuyerID: "buyer", Quantity: 1}, domain.ErrValidation},
		{"zero quantity", services.Acceptance{NegotiationID: "n1", BuyerID: "buyer"}, domain.ErrValidation},
		{"more than offered", services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 5}, domain.ErrValidation},
		{"unknown negotiation", services.Acceptance{NegotiationID: "nope", BuyerID: "buyer", Quantity: 1}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(10)
			f.offer(t, "n1", "50", 4)
			_, err := f.svc.AcceptNegotiation(context.Background(), tc.acc)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 10, f.st.qty("p1"))
			assert.Zero(t, f.st.orderCount())
		})
	}
}

func TestAcceptNegotiation_InsufficientStock(t *testing.T) {
	f := newFixture(3)
	f.offer(t, "n1", "50", 5)

	_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 5})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 3, f.st.qty("p1"))
	assert.Equal(t, domain.NegotiationPending, f.status(t, "n1"))
	assert.Zero(t, f.st.orderCount())
}

func TestAcceptNegotiation_AlreadyClosed(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)
	require.NoError(t, f.st.Transition(context.Background(), "n1", domain.NegotiationPending, domain.NegotiationRejected))

	_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 10, f.st.qty("p1"))
}

func TestAcceptNegotiation_CompensatesWhenOrderInsertFails(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)
	f.st.failOrderCreate = true

	_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
	require.Error(t, err)
	assert.Equal(t, "internal", domain.Kind(err))
	assert.Equal(t, 10, f.st.qty("p1"), "stock must be given back")
	assert.Equal(t, domain.NegotiationPending, f.status(t, "n1"), "negotiation must be reopened")

	// A later accept goes through once the order table recovers.
	f.st.mu.Lock()
	f.st.failOrderCreate = false
	f.st.mu.Unlock()
	_, err = f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, f.st.qty("p1"))
}

func TestAcceptNegotiation_CompensationSurvivesCancelledContext(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)
	f.st.failOrderCreate = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.AcceptNegotiation(ctx, services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
	require.Error(t, err)
	assert.Equal(t, 10, f.st.qty("p1"))
}

func TestAcceptNegotiation_LogsFailedCompensation(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)
	f.st.failOrderCreate = true
	f.st.failRestock = true

	var buf bytes.Buffer
	old := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(old)

	_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders table locked", "the original error is returned")
	assert.Contains(t, buf.String(), "negotiation.accept.compensate.fail")
	assert.Contains(t, buf.String(), `"step":"restock"`)
	// reopen still ran
	assert.Equal(t, domain.NegotiationPending, f.status(t, "n1"))
}

func TestAcceptNegotiation_ConcurrentDoubleAccept(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 4)

	var ok, conflict atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInvalidTransition):
				conflict.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), conflict.Load())
	assert.Equal(t, 6, f.st.qty("p1"))
	assert.Equal(t, 1, f.st.orderCount())
}

// gatedNegs holds every Get until all expected callers have loaded the
// negotiation, so racing accepts all see it pending before anyone writes.
type gatedNegs struct {
	services.NegotiationRepository
	loaded sync.WaitGroup
}

func gate(negs services.NegotiationRepository, callers int) *gatedNegs {
	g := &gatedNegs{NegotiationRepository: negs}
	g.loaded.Add(callers)
	return g
}

func (g *gatedNegs) Get(ctx context.Context, id string) (domain.Negotiation, error) {
	n, err := g.NegotiationRepository.Get(ctx, id)
	g.loaded.Done()
	g.loaded.Wait()
	return n, err
}

func acceptTogether(svc *services.OrderService, a services.Acceptance, callers int) []error {
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AcceptNegotiation(context.Background(), a)
		}(i)
	}
	wg.Wait()
	return errs
}

func TestAcceptNegotiation_DoubleAcceptWithExactStock(t *testing.T) {
	f := newFixture(4)
	f.offer(t, "n1", "50", 4)
	svc := services.NewOrderService(gate(f.st, 2), productRepo{f.st}, f.st, f.st)

	errs := acceptTogether(svc, services.Acceptance{NegotiationID: "n1", BuyerID: "buyer", Quantity: 4}, 2)

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "the loser sees a closed negotiation, not an empty shelf")
	}
	assert.Equal(t, 1, ok)
	assert.Zero(t, f.st.qty("p1"))
	assert.Equal(t, 1, f.st.orderCount())
	assert.Equal(t, domain.NegotiationAccepted, f.status(t, "n1"))
}

func TestAcceptNegotiation_NeverOversells(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		stock := rapid.IntRange(0, 40).Draw(rt, "stock")
		qtys := rapid.SliceOfN(rapid.IntRange(1, 12), 1, 10).Draw(rt, "qtys")

		f := newFixture(stock)
		for i, q := range qtys {
			require.NoError(rt, f.st.Insert(context.Background(), domain.Negotiation{
				ID: fmt.Sprintf("n%d", i), ProductID: "p1", SenderID: "buyer", ReceiverID: "farmer",
				SuggestedPrice: dec("10"), Quantity: q, Justification: "x",
				Status: domain.NegotiationPending, CreatedAt: domain.Now(),
			}))
		}

		var sold atomic.Int64
		var wg sync.WaitGroup
		for i, q := range qtys {
			wg.Add(1)
			go func(id string, q int) {
				defer wg.Done()
				o, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: id, BuyerID: "buyer", Quantity: q})
				if err == nil {
					sold.Add(int64(o.Quantity))
				} else if !errors.Is(err, domain.ErrInsufficientStock) {
					rt.Errorf("unexpected error: %v", err)
				}
			}(fmt.Sprintf("n%d", i), q)
		}
		wg.Wait()

		left := f.st.qty("p1")
		if left < 0 {
			rt.Fatalf("stock went negative: %d", left)
		}
		if int(sold.Load())+left != stock {
			rt.Fatalf("sold %d + left %d != stock %d", sold.Load(), left, stock)
		}
	})
}

func TestBuyerOrders(t *testing.T) {
	f := newFixture(10)
	f.offer(t, "n1", "50", 2)
	f.offer(t, "n2", "55", 3)
	for _, id := range []string{"n1", "n2"} {
		_, err := f.svc.AcceptNegotiation(context.Background(), services.Acceptance{NegotiationID: id, BuyerID: "buyer", Quantity: 1})
		require.NoError(t, err)
	}

	orders, err := f.svc.BuyerOrders(context.Background(), "buyer")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "n2", *orders[0].NegotiationID)

	_, err = f.svc.BuyerOrders(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
