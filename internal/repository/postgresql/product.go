package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

type ProductRepo struct {
	db db.DB
}

func NewProductRepo(db db.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(ctx context.Context, p *repository.Product) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO products (id, name, price, description, stock, category_id, image, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, p.ID, p.Name, p.Price, p.Description, p.Stock, p.CategoryID, p.Image, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *ProductRepo) Update(ctx context.Context, p *repository.Product) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE products
        SET name = $2, price = $3, description = $4, stock = $5, category_id = $6, image = $7, updated_at = $8
        WHERE id = $1
    `, p.ID, p.Name, p.Price, p.Description, p.Stock, p.CategoryID, p.Image, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*repository.Product, error) {
	var p repository.Product
	err := r.db.Get(ctx, &p, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) GetAll(ctx context.Context) ([]*repository.Product, error) {
	var products []*repository.Product
	err := r.db.Select(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC")
	return products, err
}

// ReserveStockTx is the atomic conditional decrement: the row is updated only
// when enough stock remains, so two concurrent reservations can never
// oversubscribe a product. Returns false when stock was insufficient or the
// product does not exist; the caller disambiguates with GetByIDTx.
func (r *ProductRepo) ReserveStockTx(ctx context.Context, tx db.Tx, id string, quantity int) (bool, error) {
	tag, err := tx.Exec(ctx, `
        UPDATE products SET stock = stock - $2, updated_at = now()
        WHERE id = $1 AND stock >= $2
    `, id, quantity)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseStockTx reverses exactly one reservation. The lifecycle engine calls
// it in the same transaction as the pending->cancelled status swap.
func (r *ProductRepo) ReleaseStockTx(ctx context.Context, tx db.Tx, id string, quantity int) error {
	tag, err := tx.Exec(ctx, `
        UPDATE products SET stock = stock + $2, updated_at = now()
        WHERE id = $1
    `, id, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *ProductRepo) GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Product, error) {
	var p repository.Product
	err := tx.Get(ctx, &p, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.ExecQueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	return n, err
}
