package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"agrimarket/internal/domain"
)

func TestReadable(t *testing.T) {
	assert.Equal(t, "N/A", domain.Readable(""))
	assert.Equal(t, "Invalid Date", domain.Readable("yesterday"))
	assert.Equal(t, "March 07, 2025 at 09:05 PM", domain.Readable("2025-03-07T21:05:59.123456789Z"))
	assert.Equal(t, "March 07, 2025 at 03:35 PM", domain.Readable("2025-03-07T21:05:00+05:30"))
}

func TestNowSortsLexically(t *testing.T) {
	a := domain.Now()
	b := domain.Now()
	assert.Len(t, a, len(domain.TimeLayout))
	assert.LessOrEqual(t, a, b)
}

func TestCanTransition(t *testing.T) {
	p, a, r := domain.NegotiationPending, domain.NegotiationAccepted, domain.NegotiationRejected
	assert.True(t, p.CanTransition(a))
	assert.True(t, p.CanTransition(r))
	for _, from := range []domain.NegotiationStatus{a, r} {
		for _, to := range []domain.NegotiationStatus{p, a, r} {
			assert.False(t, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, p.CanTransition(p))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "insufficient_stock", domain.Kind(fmt.Errorf("%w: p1", domain.ErrInsufficientStock)))
	assert.Equal(t, "invalid_transition", domain.Kind(fmt.Errorf("wrap: %w", fmt.Errorf("%w: n1", domain.ErrInvalidTransition))))
	assert.Equal(t, "internal", domain.Kind(fmt.Errorf("disk full")))
}

func TestNegotiationParties(t *testing.T) {
	n := domain.Negotiation{SenderID: "a", ReceiverID: "b"}
	assert.Equal(t, "b", n.Counterparty("a"))
	assert.Equal(t, "a", n.Counterparty("b"))
	assert.True(t, n.Involves("b"))
	assert.False(t, n.Involves("c"))
}
