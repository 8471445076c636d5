package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"agrimarket/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, buyer_id, product_id, negotiation_id, quantity, total_price, negotiated_price, status, created_at`

// Create inserts a new order.
func (r *OrderRepo) Create(ctx context.Context, o domain.Order) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO orders(`+orderCols+`)
		VALUES(:id, :buyer_id, :product_id, :negotiation_id, :quantity, :total_price, :negotiated_price, :status, :created_at)
	`, o)
	return err
}

func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderCols+`
		FROM orders
		WHERE buyer_id = ?
		ORDER BY created_at DESC
	`, buyerID)
	return out, err
}

// SumQuantity totals the quantity ordered for a product across all orders.
func (r *OrderRepo) SumQuantity(ctx context.Context, productID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(quantity), 0) FROM orders WHERE product_id = ?`, productID)
	return n, err
}
