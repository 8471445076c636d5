package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"agrimarket/internal/domain"
	"agrimarket/internal/metrics"
)

type NegotiationService struct {
	Negs  NegotiationRepository
	Prods ProductRepository
	Users Directory
	Tr    Translator
}

func NewNegotiationService(negs NegotiationRepository, prods ProductRepository, users Directory, tr Translator) *NegotiationService {
	return &NegotiationService{Negs: negs, Prods: prods, Users: users, Tr: tr}
}

type Offer struct {
	ProductID      string
	SenderID       string
	ReceiverID     string
	SuggestedPrice decimal.Decimal
	Quantity       int
	Justification  string
}

func (o Offer) validate() error {
	switch {
	case strings.TrimSpace(o.ProductID) == "":
		return fmt.Errorf("%w: product_id is required", domain.ErrValidation)
	case strings.TrimSpace(o.SenderID) == "":
		return fmt.Errorf("%w: sender_id is required", domain.ErrValidation)
	case strings.TrimSpace(o.ReceiverID) == "":
		return fmt.Errorf("%w: receiver_id is required", domain.ErrValidation)
	case o.SenderID == o.ReceiverID:
		return fmt.Errorf("%w: sender and receiver must differ", domain.ErrValidation)
	case !o.SuggestedPrice.IsPositive():
		return fmt.Errorf("%w: suggested_price must be positive", domain.ErrValidation)
	case o.Quantity < 1:
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	case strings.TrimSpace(o.Justification) == "":
		return fmt.Errorf("%w: justification is required", domain.ErrValidation)
	}
	return nil
}

// Send records a new pending offer. One of the two parties must be the farmer
// who owns the product.
func (s *NegotiationService) Send(ctx context.Context, o Offer) (domain.Negotiation, error) {
	if err := o.validate(); err != nil {
		return domain.Negotiation{}, err
	}
	p, err := s.Prods.Get(ctx, o.ProductID)
	if err != nil {
		return domain.Negotiation{}, err
	}
	if (o.SenderID == p.FarmerID) == (o.ReceiverID == p.FarmerID) {
		return domain.Negotiation{}, fmt.Errorf("%w: exactly one party must own product %s", domain.ErrValidation, p.ID)
	}

	n := domain.Negotiation{
		ID:             ulid.Make().String(),
		ProductID:      o.ProductID,
		SenderID:       o.SenderID,
		ReceiverID:     o.ReceiverID,
		SuggestedPrice: o.SuggestedPrice,
		Quantity:       o.Quantity,
		Justification:  strings.TrimSpace(o.Justification),
		Status:         domain.NegotiationPending,
		CreatedAt:      domain.Now(),
	}
	if err := s.Negs.Insert(ctx, n); err != nil {
		return domain.Negotiation{}, err
	}
	metrics.IncNegotiation("sent")
	return n, nil
}

// Messages lists the offers on productID exchanged between userID and
// farmerID. Oldest first unless newestFirst is set.
func (s *NegotiationService) Messages(ctx context.Context, productID, userID, farmerID string, newestFirst bool) ([]domain.Negotiation, error) {
	if productID == "" || userID == "" || farmerID == "" {
		return nil, fmt.Errorf("%w: product_id, user_id and farmer_id are required", domain.ErrValidation)
	}
	return s.Negs.ListForThread(ctx, productID, userID, farmerID, newestFirst)
}

// MarkRead flags the given offers as seen by their receiver.
func (s *NegotiationService) MarkRead(ctx context.Context, ids []string) error {
	return s.Negs.MarkRead(ctx, ids)
}

// SetStatus applies the state machine: pending -> accepted | rejected. Every
// other edge, pending -> pending included, is ErrInvalidTransition.
func (s *NegotiationService) SetStatus(ctx context.Context, id string, to domain.NegotiationStatus) error {
	cur, err := s.Negs.Get(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur.Status, to)
	}
	return s.Negs.Transition(ctx, id, domain.NegotiationPending, to)
}

// Reject closes a pending negotiation without touching inventory.
func (s *NegotiationService) Reject(ctx context.Context, id string) (domain.Negotiation, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Negotiation{}, fmt.Errorf("%w: negotiation_id is required", domain.ErrValidation)
	}
	if err := s.SetStatus(ctx, id, domain.NegotiationRejected); err != nil {
		return domain.Negotiation{}, err
	}
	metrics.IncNegotiation("rejected")
	return s.Negs.Get(ctx, id)
}

type Details struct {
	Product ProductView `json:"product_details"`
	Farmer  domain.User `json:"farmer_details"`
	User    domain.User `json:"user_details"`
}

// Details loads the header of a negotiation screen and marks every unread
// offer addressed to currentUserID on that product as read.
func (s *NegotiationService) Details(ctx context.Context, productID, buyerID, currentUserID, lang string) (Details, error) {
	if productID == "" || buyerID == "" || currentUserID == "" {
		return Details{}, fmt.Errorf("%w: product_id, buyer_id and current_user_id are required", domain.ErrValidation)
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return Details{}, err
	}

	var senders []string
	for _, id := range []string{buyerID, p.FarmerID} {
		if id != currentUserID {
			senders = append(senders, id)
		}
	}
	ids, err := s.Negs.UnreadIDs(ctx, productID, currentUserID, senders)
	if err != nil {
		return Details{}, err
	}
	if err := s.MarkRead(ctx, ids); err != nil {
		return Details{}, err
	}

	farmer, err := lookupUser(ctx, s.Users, p.FarmerID)
	if err != nil {
		return Details{}, err
	}
	buyer, err := lookupUser(ctx, s.Users, buyerID)
	if err != nil {
		return Details{}, err
	}
	v := productView(ctx, s.Tr, p, lang)
	v.FarmerName = farmer.Name
	return Details{Product: v, Farmer: farmer, User: buyer}, nil
}

// lookupUser shows a user missing from the directory as "Unknown" instead of
// failing the whole read.
func lookupUser(ctx context.Context, users Directory, id string) (domain.User, error) {
	u, err := users.ByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{ID: id, Name: "Unknown"}, nil
	}
	return u, err
}
