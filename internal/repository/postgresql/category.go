package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

type CategoryRepo struct {
	db db.DB
}

func NewCategoryRepo(db db.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, c *repository.Category) error {
	_, err := r.db.Exec(ctx, "INSERT INTO categories (id, name) VALUES ($1, $2)", c.ID, c.Name)
	return err
}

func (r *CategoryRepo) Update(ctx context.Context, c *repository.Category) error {
	tag, err := r.db.Exec(ctx, "UPDATE categories SET name = $2 WHERE id = $1", c.ID, c.Name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*repository.Category, error) {
	var c repository.Category
	err := r.db.Get(ctx, &c, "SELECT * FROM categories WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) GetAll(ctx context.Context) ([]*repository.Category, error) {
	var categories []*repository.Category
	err := r.db.Select(ctx, &categories, "SELECT * FROM categories ORDER BY name ASC")
	return categories, err
}
