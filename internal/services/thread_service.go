package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"agrimarket/internal/domain"
)

// ThreadService projects the raw negotiation log into a conversation list.
// It keeps no state; every call reads the log again.
type ThreadService struct {
	Negs  NegotiationRepository
	Prods ProductRepository
	Users Directory
	Tr    Translator
}

func NewThreadService(negs NegotiationRepository, prods ProductRepository, users Directory, tr Translator) *ThreadService {
	return &ThreadService{Negs: negs, Prods: prods, Users: users, Tr: tr}
}

type threadKey struct{ product, counterparty string }

// Project groups negs, which must be ordered newest first, by (product,
// counterparty) from userID's point of view. The first negotiation seen for
// a pair wins, and pairs keep the order in which they were first seen.
// Unread counts offers addressed to userID that are still unread.
func Project(userID string, negs []domain.Negotiation) []domain.Thread {
	idx := map[threadKey]int{}
	out := []domain.Thread{}
	for _, n := range negs {
		if !n.Involves(userID) {
			continue
		}
		k := threadKey{n.ProductID, n.Counterparty(userID)}
		i, seen := idx[k]
		if !seen {
			i = len(out)
			idx[k] = i
			out = append(out, domain.Thread{
				ProductID:         n.ProductID,
				CounterpartyID:    k.counterparty,
				NegotiationID:     n.ID,
				LastMessage:       n.Justification,
				LastPrice:         n.SuggestedPrice,
				LastQuantity:      n.Quantity,
				Status:            n.Status,
				Timestamp:         n.CreatedAt,
				TimestampReadable: domain.Readable(n.CreatedAt),
			})
		}
		if n.ReceiverID == userID && !n.Read {
			out[i].Unread++
		}
	}
	return out
}

// Threads returns userID's conversation list with product and counterparty
// display data filled in. Names are translated to lang when it is set and not
// English.
func (s *ThreadService) Threads(ctx context.Context, userID, lang string) ([]domain.Thread, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	ctx, span := tracer.Start(ctx, "negotiation.threads")
	defer span.End()

	negs, err := s.Negs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	threads := Project(userID, negs)
	span.SetAttributes(attribute.Int("negotiations", len(negs)), attribute.Int("threads", len(threads)))

	products := map[string]domain.Product{}
	users := map[string]domain.User{}
	for i := range threads {
		t := &threads[i]

		p, ok := products[t.ProductID]
		if !ok {
			if p, err = s.Prods.Get(ctx, t.ProductID); err != nil {
				return nil, err
			}
			if wantsTranslation(lang) {
				p.Name = s.Tr.Translate(ctx, p.Name, "en", lang)
			}
			products[t.ProductID] = p
		}
		t.ProductName = p.Name
		t.ProductImage = p.ImageURL

		u, ok := users[t.CounterpartyID]
		if !ok {
			if u, err = lookupUser(ctx, s.Users, t.CounterpartyID); err != nil {
				return nil, err
			}
			users[t.CounterpartyID] = u
		}
		t.CounterpartyName = u.Name
	}
	return threads, nil
}

func wantsTranslation(lang string) bool {
	return lang != "" && !strings.EqualFold(lang, "en")
}
