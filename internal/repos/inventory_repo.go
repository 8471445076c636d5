package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"agrimarket/internal/domain"
)

// InventoryRepo is the ledger of available quantity per product. It touches
// products.quantity and nothing else.
type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Available returns the current stock for a product.
func (r *InventoryRepo) Available(ctx context.Context, productID string) (int, error) {
	var qty int
	err := r.db.GetContext(ctx, &qty, `SELECT quantity FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// Decrement atomically subtracts amount if enough stock exists and returns the
// quantity left. The stock check is part of the UPDATE itself, so concurrent
// callers can never drive the quantity below zero.
func (r *InventoryRepo) Decrement(ctx context.Context, productID string, amount int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?
	`, amount, productID, amount)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	var left int
	err = tx.GetContext(ctx, &left, `SELECT quantity FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return left, fmt.Errorf("%w for %s (need %d, have %d)", domain.ErrInsufficientStock, productID, amount, left)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return left, nil
}

// Restock adds amount back. Used to compensate a decrement whose order could
// not be completed.
func (r *InventoryRepo) Restock(ctx context.Context, productID string, amount int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET quantity = quantity + ? WHERE id = ?`, amount, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	return nil
}
