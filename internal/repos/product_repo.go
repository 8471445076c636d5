package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"agrimarket/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, farmer_id, product_name, commodity, units, price, quantity, image_url, status, uploaded_at`

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return p, err
}

func (r *ProductRepo) Insert(ctx context.Context, p domain.Product) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO products(`+productCols+`)
		VALUES(:id, :farmer_id, :product_name, :commodity, :units, :price, :quantity, :image_url, :status, :uploaded_at)
	`, p)
	return err
}

func (r *ProductRepo) ListByFarmer(ctx context.Context, farmerID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+productCols+`
		FROM products
		WHERE farmer_id = ?
		ORDER BY uploaded_at DESC
	`, farmerID)
	return out, err
}
