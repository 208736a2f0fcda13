package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

type ReviewRepo struct {
	db db.DB
}

func NewReviewRepo(db db.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) Create(ctx context.Context, rev *repository.Review) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, rev.ID, rev.ProductID, rev.UserID, rev.Rating, rev.Comment, rev.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *ReviewRepo) ExistsForUserProduct(ctx context.Context, userID, productID string) (bool, error) {
	var n int
	err := r.db.ExecQueryRow(ctx, `
        SELECT COUNT(*) FROM reviews WHERE user_id = $1 AND product_id = $2
    `, userID, productID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ReviewRepo) GetByProductID(ctx context.Context, productID string) ([]*repository.ReviewWithAuthor, error) {
	var reviews []*repository.ReviewWithAuthor
	err := r.db.Select(ctx, &reviews, `
        SELECT r.id, r.product_id, r.user_id, u.name AS author_name, r.rating, r.comment, r.created_at
        FROM reviews r
        JOIN users u ON u.id = r.user_id
        WHERE r.product_id = $1
        ORDER BY r.created_at DESC
    `, productID)
	return reviews, err
}

// RatingAggregates returns average rating and review count per product in one
// round-trip, for the product listing enrichment.
func (r *ReviewRepo) RatingAggregates(ctx context.Context) ([]*repository.ProductRating, error) {
	var ratings []*repository.ProductRating
	err := r.db.Select(ctx, &ratings, `
        SELECT product_id, AVG(rating) AS average_rating, COUNT(*) AS review_count
        FROM reviews
        GROUP BY product_id
    `)
	return ratings, err
}

func (r *ReviewRepo) RatingForProduct(ctx context.Context, productID string) (*repository.ProductRating, error) {
	var rating repository.ProductRating
	err := r.db.Get(ctx, &rating, `
        SELECT product_id, AVG(rating) AS average_rating, COUNT(*) AS review_count
        FROM reviews
        WHERE product_id = $1
        GROUP BY product_id
    `, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &repository.ProductRating{ProductID: productID}, nil
		}
		return nil, err
	}
	return &rating, nil
}
