package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sewain/backend/internal/metrics"
	"github.com/sewain/backend/internal/principal"
	"github.com/sewain/backend/internal/repository"
)

// SubmitReview accepts a review only from an author with a completed order on
// the product, at most once per (product, author) pair.
//
// The completed-order check and the insert are intentionally not one
// transaction: a review racing an order's completion is benign in either
// direction, and the unique index still catches duplicate submissions.
func (s *Service) SubmitReview(ctx context.Context, p principal.Principal, productID string, rating int, comment string) (*repository.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, Invalidf("rating must be between 1 and 5")
	}

	completed, err := s.orders.HasCompletedOrder(ctx, p.UserID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check completed orders: %w", err)
	}
	if !completed {
		return nil, Invalidf("reviews require a completed rental of this product")
	}

	exists, err := s.reviews.ExistsForUserProduct(ctx, p.UserID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		return nil, Invalidf("you have already reviewed this product")
	}

	review := &repository.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    p.UserID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Invalidf("you have already reviewed this product")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	metrics.ReviewsCreatedTotal.Inc()
	s.logger.Info("review submitted",
		zap.String("product_id", productID),
		zap.String("user_id", p.UserID),
		zap.Int("rating", rating))
	return review, nil
}

func (s *Service) ListProductReviews(ctx context.Context, productID string) ([]*repository.ReviewWithAuthor, error) {
	return s.reviews.GetByProductID(ctx, productID)
}
