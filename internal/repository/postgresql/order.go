package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

const orderColumns = `
        id, user_id, product_id, full_name, email, phone, rent_date, return_date,
        quantity, pickup_method, return_method, payment_method, id_card_ref,
        selfie_ref, note, estimated_price, status, payment_date,
        actual_payment_amount, admin_notes, created_at, updated_at, deleted_at`

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO rental_orders (
            id, user_id, product_id, full_name, email, phone, rent_date, return_date,
            quantity, pickup_method, return_method, payment_method, id_card_ref,
            selfie_ref, note, estimated_price, status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    `, order.ID, order.UserID, order.ProductID, order.FullName, order.Email, order.Phone,
		order.RentDate, order.ReturnDate, order.Quantity, order.PickupMethod, order.ReturnMethod,
		order.PaymentMethod, order.IDCardRef, order.SelfieRef, order.Note, order.EstimatedPrice,
		order.Status, order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, `
        SELECT `+orderColumns+`
        FROM rental_orders
        WHERE id = $1 AND deleted_at IS NULL
    `, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetByUserID(ctx context.Context, userID string) ([]*repository.Order, error) {
	var orders []*repository.Order
	err := r.db.Select(ctx, &orders, `
        SELECT `+orderColumns+`
        FROM rental_orders
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC
    `, userID)
	return orders, err
}

func (r *OrderRepo) GetAll(ctx context.Context, statusFilter string) ([]*repository.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM rental_orders
        WHERE deleted_at IS NULL`
	args := []interface{}{}

	if statusFilter != "" {
		query += " AND status = $1"
		args = append(args, statusFilter)
	}
	query += " ORDER BY created_at DESC"

	var orders []*repository.Order
	err := r.db.Select(ctx, &orders, query, args...)
	return orders, err
}

// UpdateStatusGuarded performs the compare-and-swap status write: the row is
// only touched when its persisted status still equals expected. Returns false
// when another transition won the race (or the order vanished) - the caller
// decides between conflict and not-found.
func (r *OrderRepo) UpdateStatusGuarded(ctx context.Context, id, expected, next string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE rental_orders
        SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2 AND deleted_at IS NULL
    `, id, expected, next, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) UpdateStatusGuardedTx(ctx context.Context, tx db.Tx, id, expected, next string, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
        UPDATE rental_orders
        SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2 AND deleted_at IS NULL
    `, id, expected, next, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaidGuarded is the confirmed->paid CAS plus the payment fields, written
// in the same statement so the payment stamp can never land on a stale row.
func (r *OrderRepo) MarkPaidGuarded(ctx context.Context, id string, paymentDate time.Time, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE rental_orders
        SET status = 'paid',
            payment_date = $2,
            actual_payment_amount = estimated_price,
            updated_at = $3
        WHERE id = $1 AND status = 'confirmed' AND deleted_at IS NULL
    `, id, paymentDate, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) MarkPaidGuardedTx(ctx context.Context, tx db.Tx, id string, paymentDate time.Time, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
        UPDATE rental_orders
        SET status = 'paid',
            payment_date = $2,
            actual_payment_amount = estimated_price,
            updated_at = $3
        WHERE id = $1 AND status = 'confirmed' AND deleted_at IS NULL
    `, id, paymentDate, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// OverrideStatus writes an arbitrary status without any precondition. This is
// the administrative escape hatch; it deliberately shares no code with the
// guarded transitions.
func (r *OrderRepo) OverrideStatus(ctx context.Context, id, status string, adminNotes *string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE rental_orders
        SET status = $2,
            admin_notes = COALESCE($3, admin_notes),
            updated_at = $4
        WHERE id = $1 AND deleted_at IS NULL
    `, id, status, adminNotes, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// HasCompletedOrder reports whether the user has at least one completed order
// on the product. Consumed by the review gate.
func (r *OrderRepo) HasCompletedOrder(ctx context.Context, userID, productID string) (bool, error) {
	var n int
	err := r.db.ExecQueryRow(ctx, `
        SELECT COUNT(*) FROM rental_orders
        WHERE user_id = $1 AND product_id = $2 AND status = 'completed' AND deleted_at IS NULL
    `, userID, productID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count completed orders: %w", err)
	}
	return n > 0, nil
}
