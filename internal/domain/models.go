package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the fixed-width UTC layout used for every stored timestamp, so
// that lexical ordering in SQL matches chronological ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// ReadableLayout renders timestamps for display. Go month names are always
// English, so the output does not depend on the host locale.
const ReadableLayout = "January 02, 2006 at 03:04 PM"

func Now() string { return time.Now().UTC().Format(TimeLayout) }

// Readable converts a stored timestamp into ReadableLayout. Unparseable input
// yields "Invalid Date" and empty input "N/A".
func Readable(ts string) string {
	if ts == "" {
		return "N/A"
	}
	t, err := time.Parse(TimeLayout, ts)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return "Invalid Date"
		}
	}
	return t.UTC().Format(ReadableLayout)
}

const ProductAvailable = "available"

type Product struct {
	ID         string          `db:"id" json:"id"`
	FarmerID   string          `db:"farmer_id" json:"farmer_id"`
	Name       string          `db:"product_name" json:"product_name"`
	Commodity  string          `db:"commodity" json:"commodity"`
	Units      string          `db:"units" json:"units"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Quantity   int             `db:"quantity" json:"quantity"`
	ImageURL   string          `db:"image_url" json:"image_url"`
	Status     string          `db:"status" json:"status"` // available | sold_out | ...
	UploadedAt string          `db:"uploaded_at" json:"uploaded_at"`
}

type NegotiationStatus string

const (
	NegotiationPending  NegotiationStatus = "pending"
	NegotiationAccepted NegotiationStatus = "accepted"
	NegotiationRejected NegotiationStatus = "rejected"
)

func (s NegotiationStatus) Terminal() bool {
	return s == NegotiationAccepted || s == NegotiationRejected
}

// CanTransition reports whether s -> to is an edge of the negotiation state
// machine. Only pending may move, and only to a terminal state.
func (s NegotiationStatus) CanTransition(to NegotiationStatus) bool {
	return s == NegotiationPending && to.Terminal()
}

type Negotiation struct {
	ID             string            `db:"id" json:"id"`
	ProductID      string            `db:"product_id" json:"product_id"`
	SenderID       string            `db:"sender_id" json:"sender_id"`
	ReceiverID     string            `db:"receiver_id" json:"receiver_id"`
	SuggestedPrice decimal.Decimal   `db:"suggested_price" json:"suggested_price"`
	Quantity       int               `db:"quantity" json:"quantity"`
	Justification  string            `db:"justification" json:"justification"`
	Status         NegotiationStatus `db:"status" json:"status"`
	Read           bool              `db:"is_read" json:"read"`
	CreatedAt      string            `db:"created_at" json:"created_at"`
}

// Counterparty returns the other participant from userID's point of view.
func (n Negotiation) Counterparty(userID string) string {
	if n.SenderID == userID {
		return n.ReceiverID
	}
	return n.SenderID
}

// Involves reports whether userID is the sender or the receiver.
func (n Negotiation) Involves(userID string) bool {
	return n.SenderID == userID || n.ReceiverID == userID
}

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
)

type Order struct {
	ID              string              `db:"id" json:"id"`
	BuyerID         string              `db:"buyer_id" json:"buyer_id"`
	ProductID       string              `db:"product_id" json:"product_id"`
	NegotiationID   *string             `db:"negotiation_id" json:"negotiation_id,omitempty"`
	Quantity        int                 `db:"quantity" json:"quantity"`
	TotalPrice      decimal.Decimal     `db:"total_price" json:"total_price"`
	NegotiatedPrice decimal.NullDecimal `db:"negotiated_price" json:"negotiated_price"`
	Status          string              `db:"status" json:"status"`
	CreatedAt       string              `db:"created_at" json:"created_at"`
}

// Thread is the latest negotiation for one (product, counterparty) pair as
// seen by a single user. It is derived on read and never stored.
type Thread struct {
	ProductID         string            `json:"product_id"`
	ProductName       string            `json:"product_name"`
	ProductImage      string            `json:"product_image"`
	CounterpartyID    string            `json:"counterparty_id"`
	CounterpartyName  string            `json:"counterparty_name"`
	NegotiationID     string            `json:"negotiation_id"`
	LastMessage       string            `json:"last_message"`
	LastPrice         decimal.Decimal   `json:"last_price"`
	LastQuantity      int               `json:"last_quantity"`
	Status            NegotiationStatus `json:"status"`
	Timestamp         string            `json:"timestamp"`
	TimestampReadable string            `json:"timestamp_readable"`
	Unread            int               `json:"unread_count"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
