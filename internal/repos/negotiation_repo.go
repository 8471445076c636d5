package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"agrimarket/internal/domain"
)

type NegotiationRepo struct{ db *sqlx.DB }

func NewNegotiationRepo(db *sqlx.DB) *NegotiationRepo { return &NegotiationRepo{db: db} }

const negotiationCols = `id, product_id, sender_id, receiver_id, suggested_price, quantity, justification, status, is_read, created_at`

func (r *NegotiationRepo) Insert(ctx context.Context, n domain.Negotiation) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO negotiations(`+negotiationCols+`)
		VALUES(:id, :product_id, :sender_id, :receiver_id, :suggested_price, :quantity, :justification, :status, :is_read, :created_at)
	`, n)
	return err
}

func (r *NegotiationRepo) Get(ctx context.Context, id string) (domain.Negotiation, error) {
	var n domain.Negotiation
	err := r.db.GetContext(ctx, &n, `SELECT `+negotiationCols+` FROM negotiations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Negotiation{}, fmt.Errorf("%w: negotiation %s", domain.ErrNotFound, id)
	}
	return n, err
}

// ListForThread returns every negotiation on productID exchanged between a
// and b, in either direction.
func (r *NegotiationRepo) ListForThread(ctx context.Context, productID, a, b string, newestFirst bool) ([]domain.Negotiation, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	out := []domain.Negotiation{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+negotiationCols+`
		FROM negotiations
		WHERE product_id = ?
		  AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		ORDER BY created_at `+order+`, id `+order, productID, a, b, b, a)
	return out, err
}

// ListForUser returns negotiations where userID is sender or receiver,
// newest first. Ids are ULIDs and break ties between equal timestamps.
func (r *NegotiationRepo) ListForUser(ctx context.Context, userID string) ([]domain.Negotiation, error) {
	out := []domain.Negotiation{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+negotiationCols+`
		FROM negotiations
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID, userID)
	return out, err
}

// UnreadIDs lists unread negotiations on productID addressed to receiverID by
// any of senders.
func (r *NegotiationRepo) UnreadIDs(ctx context.Context, productID, receiverID string, senders []string) ([]string, error) {
	if len(senders) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id FROM negotiations
		WHERE product_id = ? AND receiver_id = ? AND is_read = 0 AND sender_id IN (?)
	`, productID, receiverID, senders)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...)
	return ids, err
}

// MarkRead sets the read flag on ids. Already-read rows are left alone, so
// repeating the call is a no-op.
func (r *NegotiationRepo) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE negotiations SET is_read = 1 WHERE is_read = 0 AND id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}

// Transition moves a negotiation from one status to another only if it is
// still in from. A lost race surfaces as ErrInvalidTransition.
func (r *NegotiationRepo) Transition(ctx context.Context, id string, from, to domain.NegotiationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE negotiations SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	cur, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: negotiation %s is %s, not %s", domain.ErrInvalidTransition, id, cur.Status, from)
}
