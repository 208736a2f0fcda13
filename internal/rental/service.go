//go:generate mockgen -source ./service.go -destination=./mocks/rental.go -package=mock_rental
package rental

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/metrics"
	"github.com/sewain/backend/internal/principal"
	"github.com/sewain/backend/internal/repository"
)

type OrderRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByUserID(ctx context.Context, userID string) ([]*repository.Order, error)
	GetAll(ctx context.Context, statusFilter string) ([]*repository.Order, error)
	UpdateStatusGuardedTx(ctx context.Context, tx db.Tx, id, expected, next string, now time.Time) (bool, error)
	MarkPaidGuardedTx(ctx context.Context, tx db.Tx, id string, paymentDate time.Time, now time.Time) (bool, error)
	OverrideStatus(ctx context.Context, id, status string, adminNotes *string, now time.Time) error
	HasCompletedOrder(ctx context.Context, userID, productID string) (bool, error)
}

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*repository.Product, error)
	GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Product, error)
	ReserveStockTx(ctx context.Context, tx db.Tx, id string, quantity int) (bool, error)
	ReleaseStockTx(ctx context.Context, tx db.Tx, id string, quantity int) error
}

type HistoryRepository interface {
	Create(ctx context.Context, entry *repository.HistoryEntry) error
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error
	GetByOrderID(ctx context.Context, orderID string) ([]*repository.HistoryEntry, error)
}

type OutboxRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *repository.Review) error
	ExistsForUserProduct(ctx context.Context, userID, productID string) (bool, error)
	GetByProductID(ctx context.Context, productID string) ([]*repository.ReviewWithAuthor, error)
}

// Service is the order lifecycle engine. All status movement goes through it;
// stock is mutated only here, via reserve on creation and release on cancel.
type Service struct {
	db       db.DB
	orders   OrderRepository
	products ProductRepository
	history  HistoryRepository
	outbox   OutboxRepository
	reviews  ReviewRepository
	topic    string
	logger   *zap.Logger
}

func NewService(
	database db.DB,
	orders OrderRepository,
	products ProductRepository,
	history HistoryRepository,
	outbox OutboxRepository,
	reviews ReviewRepository,
	topic string,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:       database,
		orders:   orders,
		products: products,
		history:  history,
		outbox:   outbox,
		reviews:  reviews,
		topic:    topic,
		logger:   logger,
	}
}

const (
	DefaultPickupMethod  = "store_pickup"
	DefaultReturnMethod  = "store_dropoff"
	DefaultPaymentMethod = "pay_on_pickup"
)

type CreateOrderInput struct {
	ProductID      string
	FullName       string
	Email          string
	Phone          string
	RentDate       time.Time
	ReturnDate     time.Time
	Quantity       int
	PickupMethod   string
	ReturnMethod   string
	PaymentMethod  string
	Note           string
	IDCardRef      string
	SelfieRef      string
	EstimatedPrice int
}

// Create validates the request, then reserves stock and writes the ledger
// entry in a single transaction. Any failure past BeginTx rolls back
// wholesale, so a reservation can never outlive a failed insert.
func (s *Service) Create(ctx context.Context, p principal.Principal, in CreateOrderInput) (*repository.Order, error) {
	if in.Quantity < 1 {
		return nil, Invalidf("quantity must be at least 1")
	}
	if !in.RentDate.Before(in.ReturnDate) {
		return nil, Invalidf("return date must be after rent date")
	}
	today := truncateToDay(time.Now().UTC())
	if in.RentDate.Before(today) {
		return nil, Invalidf("rent date must not be in the past")
	}
	if in.IDCardRef == "" || in.SelfieRef == "" {
		return nil, Invalidf("identity document and selfie uploads are required")
	}
	if in.FullName == "" || in.Email == "" || in.Phone == "" {
		return nil, Invalidf("full name, email and phone are required")
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, NotFoundf("product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product.Stock < in.Quantity {
		return nil, Invalidf("insufficient stock")
	}

	now := time.Now().UTC()
	order := &repository.Order{
		ID:             uuid.NewString(),
		UserID:         p.UserID,
		ProductID:      in.ProductID,
		FullName:       in.FullName,
		Email:          in.Email,
		Phone:          in.Phone,
		RentDate:       in.RentDate,
		ReturnDate:     in.ReturnDate,
		Quantity:       in.Quantity,
		PickupMethod:   defaultIfEmpty(in.PickupMethod, DefaultPickupMethod),
		ReturnMethod:   defaultIfEmpty(in.ReturnMethod, DefaultReturnMethod),
		PaymentMethod:  defaultIfEmpty(in.PaymentMethod, DefaultPaymentMethod),
		IDCardRef:      in.IDCardRef,
		SelfieRef:      in.SelfieRef,
		Note:           in.Note,
		EstimatedPrice: in.EstimatedPrice,
		Status:         string(StatusPending),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if order.EstimatedPrice <= 0 {
		order.EstimatedPrice = estimatePrice(product.Price, in.Quantity, in.RentDate, in.ReturnDate)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	// Stock sufficiency is re-checked here, inside the transaction, by the
	// conditional decrement itself: the early check above only exists for a
	// friendlier rejection outside the tx.
	reserved, err := s.products.ReserveStockTx(ctx, tx, in.ProductID, in.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	if !reserved {
		if _, err := s.products.GetByIDTx(ctx, tx, in.ProductID); err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return nil, NotFoundf("product not found")
			}
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		return nil, Invalidf("insufficient stock")
	}

	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err := s.history.CreateTx(ctx, tx, &repository.HistoryEntry{
		OrderID:   order.ID,
		Status:    order.Status,
		ChangedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record order history: %w", err)
	}
	if err := s.enqueueEventTx(ctx, tx, "order.created", order.ID, p.UserID, order.ProductID, "", order.Status); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	metrics.OrdersCreatedTotal.Inc()
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", p.UserID),
		zap.String("product_id", order.ProductID),
		zap.Int("quantity", order.Quantity))
	return order, nil
}

// Confirm moves pending -> confirmed. Admin action.
func (s *Service) Confirm(ctx context.Context, p principal.Principal, orderID string) (*repository.Order, error) {
	if !p.IsAdmin() {
		return nil, Forbiddenf("admin role required")
	}
	return s.transition(ctx, orderID, StatusPending, StatusConfirmed, nil)
}

// MarkPaid moves confirmed -> paid and stamps the payment in the same
// guarded write.
func (s *Service) MarkPaid(ctx context.Context, p principal.Principal, orderID string) (*repository.Order, error) {
	if !p.IsAdmin() {
		return nil, Forbiddenf("admin role required")
	}
	now := time.Now().UTC()
	return s.transition(ctx, orderID, StatusConfirmed, StatusPaid, func(ctx context.Context, tx db.Tx) (bool, error) {
		return s.orders.MarkPaidGuardedTx(ctx, tx, orderID, now, now)
	})
}

// Start moves paid -> in_progress: the item has left the store.
func (s *Service) Start(ctx context.Context, p principal.Principal, orderID string) (*repository.Order, error) {
	if !p.IsAdmin() {
		return nil, Forbiddenf("admin role required")
	}
	return s.transition(ctx, orderID, StatusPaid, StatusInProgress, nil)
}

// Complete moves in_progress -> completed and unlocks review eligibility.
func (s *Service) Complete(ctx context.Context, p principal.Principal, orderID string) (*repository.Order, error) {
	if !p.IsAdmin() {
		return nil, Forbiddenf("admin role required")
	}
	return s.transition(ctx, orderID, StatusInProgress, StatusCompleted, nil)
}

// Cancel is owner-only and legal from pending alone. The guarded status swap
// and the stock release share one transaction, so the release happens exactly
// once per cancelled order.
func (s *Service) Cancel(ctx context.Context, p principal.Principal, orderID string) (*repository.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, NotFoundf("order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != p.UserID {
		return nil, Forbiddenf("only the order owner may cancel")
	}

	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	swapped, err := s.orders.UpdateStatusGuardedTx(ctx, tx, orderID, string(StatusPending), string(StatusCancelled), now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !swapped {
		return nil, Conflictf("order is no longer pending")
	}
	if err := s.products.ReleaseStockTx(ctx, tx, order.ProductID, order.Quantity); err != nil {
		return nil, fmt.Errorf("failed to release stock: %w", err)
	}
	if err := s.history.CreateTx(ctx, tx, &repository.HistoryEntry{
		OrderID:   orderID,
		Status:    string(StatusCancelled),
		ChangedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record order history: %w", err)
	}
	if err := s.enqueueEventTx(ctx, tx, "order.status_changed", orderID, order.UserID, order.ProductID, string(StatusPending), string(StatusCancelled)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	metrics.OrdersCancelledTotal.Inc()
	s.logger.Info("order cancelled",
		zap.String("order_id", orderID),
		zap.String("user_id", p.UserID))

	order.Status = string(StatusCancelled)
	order.UpdatedAt = now
	return order, nil
}

// OverrideStatus is the administrative escape hatch: it writes an arbitrary
// status with no precondition and no stock side effects. It deliberately does
// not share the guarded transition path.
func (s *Service) OverrideStatus(ctx context.Context, p principal.Principal, orderID, status string, adminNotes string) (*repository.Order, error) {
	if !p.IsAdmin() {
		return nil, Forbiddenf("admin role required")
	}
	if !Status(status).Valid() {
		return nil, Invalidf("unknown status %q", status)
	}

	before, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, NotFoundf("order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	now := time.Now().UTC()
	var notes *string
	if adminNotes != "" {
		notes = &adminNotes
	}
	if err := s.orders.OverrideStatus(ctx, orderID, status, notes, now); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, NotFoundf("order not found")
		}
		return nil, fmt.Errorf("failed to override status: %w", err)
	}

	if err := s.history.Create(ctx, &repository.HistoryEntry{
		OrderID:   orderID,
		Status:    status,
		ChangedAt: now,
	}); err != nil {
		s.logger.Error("failed to record history for status override",
			zap.String("order_id", orderID), zap.Error(err))
	}

	s.logger.Warn("order status overridden outside the state machine",
		zap.String("order_id", orderID),
		zap.String("admin_id", p.UserID),
		zap.String("old_status", before.Status),
		zap.String("new_status", status))

	before.Status = status
	before.UpdatedAt = now
	return before, nil
}

// Get returns a single order; customers only see their own.
func (s *Service) Get(ctx context.Context, p principal.Principal, orderID string) (*repository.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, NotFoundf("order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !p.IsAdmin() && order.UserID != p.UserID {
		// Hidden rather than forbidden: customers cannot probe for foreign IDs.
		return nil, NotFoundf("order not found")
	}
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, p principal.Principal) ([]*repository.Order, error) {
	return s.orders.GetByUserID(ctx, p.UserID)
}

func (s *Service) ListAll(ctx context.Context, p principal.Principal, statusFilter string) ([]*repository.Order, error) {
	if !p.IsAdmin() {
		return nil, Forbiddenf("admin role required")
	}
	if statusFilter != "" && !Status(statusFilter).Valid() {
		return nil, Invalidf("unknown status %q", statusFilter)
	}
	return s.orders.GetAll(ctx, statusFilter)
}

func (s *Service) History(ctx context.Context, p principal.Principal, orderID string) ([]*repository.HistoryEntry, error) {
	if _, err := s.Get(ctx, p, orderID); err != nil {
		return nil, err
	}
	return s.history.GetByOrderID(ctx, orderID)
}

type guardedWrite func(ctx context.Context, tx db.Tx) (bool, error)

// transition applies one guarded step of the state machine. The row is
// updated only while its persisted status still equals from; a raced request
// sees zero rows and is rejected as a conflict, never silently lost.
func (s *Service) transition(ctx context.Context, orderID string, from, to Status, write guardedWrite) (*repository.Order, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if write == nil {
		write = func(ctx context.Context, tx db.Tx) (bool, error) {
			return s.orders.UpdateStatusGuardedTx(ctx, tx, orderID, string(from), string(to), now)
		}
	}

	swapped, err := write(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !swapped {
		_ = tx.Rollback(context.Background())
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return nil, NotFoundf("order not found")
			}
			return nil, fmt.Errorf("failed to load order: %w", err)
		}
		return nil, Conflictf("order is %s, expected %s", order.Status, from)
	}

	if err := s.history.CreateTx(ctx, tx, &repository.HistoryEntry{
		OrderID:   orderID,
		Status:    string(to),
		ChangedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record order history: %w", err)
	}
	if err := s.enqueueEventTx(ctx, tx, "order.status_changed", orderID, "", "", string(from), string(to)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("order status transitioned",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	return s.orders.GetByID(ctx, orderID)
}

func (s *Service) enqueueEventTx(ctx context.Context, tx db.Tx, event, orderID, userID, productID, oldStatus, newStatus string) error {
	payload, err := json.Marshal(repository.OrderEventPayload{
		Event:     event,
		OrderID:   orderID,
		UserID:    userID,
		ProductID: productID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	if err := s.outbox.CreateTx(ctx, tx, &repository.OutboxTask{
		Payload: payload,
		Topic:   s.topic,
	}); err != nil {
		return fmt.Errorf("failed to enqueue order event: %w", err)
	}
	return nil
}

func defaultIfEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func estimatePrice(unitPrice, quantity int, rentDate, returnDate time.Time) int {
	days := int(returnDate.Sub(rentDate).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return unitPrice * quantity * days
}
