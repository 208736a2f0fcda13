package rental_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/sewain/backend/internal/auth"
	mock_database "github.com/sewain/backend/internal/db/mocks"
	"github.com/sewain/backend/internal/rental"
	mock_rental "github.com/sewain/backend/internal/rental/mocks"
	"github.com/sewain/backend/internal/repository"
)

type serviceMocks struct {
	db       *mock_database.MockDB
	tx       *mock_database.MockTx
	orders   *mock_rental.MockOrderRepository
	products *mock_rental.MockProductRepository
	history  *mock_rental.MockHistoryRepository
	outbox   *mock_rental.MockOutboxRepository
	reviews  *mock_rental.MockReviewRepository
}

func newTestService(t *testing.T) (*rental.Service, serviceMocks) {
	ctrl := gomock.NewController(t)
	m := serviceMocks{
		db:       mock_database.NewMockDB(ctrl),
		tx:       mock_database.NewMockTx(ctrl),
		orders:   mock_rental.NewMockOrderRepository(ctrl),
		products: mock_rental.NewMockProductRepository(ctrl),
		history:  mock_rental.NewMockHistoryRepository(ctrl),
		outbox:   mock_rental.NewMockOutboxRepository(ctrl),
		reviews:  mock_rental.NewMockReviewRepository(ctrl),
	}
	svc := rental.NewService(m.db, m.orders, m.products, m.history, m.outbox, m.reviews, "order-events", zap.NewNop())
	return svc, m
}

// expectTx wires BeginTx to hand out the mock transaction, with the deferred
// rollback tolerated after commit.
func (m serviceMocks) expectTx() {
	m.db.EXPECT().BeginTx(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
}

var customer = auth.Principal{UserID: "user-1", Name: "Customer", Role: auth.RoleCustomer}
var admin = auth.Principal{UserID: "admin-1", Name: "Admin", Role: auth.RoleAdmin}

func validInput() rental.CreateOrderInput {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return rental.CreateOrderInput{
		ProductID:  "prod-1",
		FullName:   "Jane Renter",
		Email:      "jane@example.com",
		Phone:      "+62811111111",
		RentDate:   today,
		ReturnDate: today.AddDate(0, 0, 3),
		Quantity:   2,
		IDCardRef:  "uploads/id.png",
		SelfieRef:  "uploads/selfie.png",
	}
}

func TestCreate_Success(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	in := validInput()

	m.products.EXPECT().GetByID(ctx, "prod-1").
		Return(&repository.Product{ID: "prod-1", Price: 100, Stock: 10}, nil)
	m.expectTx()
	m.products.EXPECT().ReserveStockTx(ctx, m.tx, "prod-1", 2).Return(true, nil)

	var created *repository.Order
	m.orders.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ interface{}, order *repository.Order) error {
			created = order
			return nil
		})
	m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ interface{}, entry *repository.HistoryEntry) error {
			assert.Equal(t, "pending", entry.Status)
			return nil
		})
	m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ interface{}, task *repository.OutboxTask) error {
			assert.Equal(t, "order-events", task.Topic)
			assert.Contains(t, string(task.Payload), "order.created")
			return nil
		})
	m.tx.EXPECT().Commit(ctx).Return(nil)

	order, err := svc.Create(ctx, customer, in)
	require.NoError(t, err)
	assert.Same(t, created, order)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, 2, order.Quantity)
	// 100 per unit * 2 units * 3 days
	assert.Equal(t, 600, order.EstimatedPrice)
	assert.Equal(t, rental.DefaultPickupMethod, order.PickupMethod)
	assert.Equal(t, rental.DefaultReturnMethod, order.ReturnMethod)
	assert.Equal(t, rental.DefaultPaymentMethod, order.PaymentMethod)
}

func TestCreate_KeepsClientEstimate(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	in := validInput()
	in.EstimatedPrice = 999

	m.products.EXPECT().GetByID(ctx, "prod-1").
		Return(&repository.Product{ID: "prod-1", Price: 100, Stock: 10}, nil)
	m.expectTx()
	m.products.EXPECT().ReserveStockTx(ctx, m.tx, "prod-1", 2).Return(true, nil)
	m.orders.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.tx.EXPECT().Commit(ctx).Return(nil)

	order, err := svc.Create(ctx, customer, in)
	require.NoError(t, err)
	assert.Equal(t, 999, order.EstimatedPrice)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rental.CreateOrderInput)
	}{
		{"zero quantity", func(in *rental.CreateOrderInput) { in.Quantity = 0 }},
		{"return before rent", func(in *rental.CreateOrderInput) {
			in.ReturnDate = in.RentDate.AddDate(0, 0, -1)
		}},
		{"return equals rent", func(in *rental.CreateOrderInput) { in.ReturnDate = in.RentDate }},
		{"rent date in the past", func(in *rental.CreateOrderInput) {
			in.RentDate = in.RentDate.AddDate(0, 0, -2)
		}},
		{"missing id card", func(in *rental.CreateOrderInput) { in.IDCardRef = "" }},
		{"missing selfie", func(in *rental.CreateOrderInput) { in.SelfieRef = "" }},
		{"missing contact", func(in *rental.CreateOrderInput) { in.Phone = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			in := validInput()
			tc.mutate(&in)

			// No repository expectations: a rejected request must not touch
			// storage at all.
			_, err := svc.Create(context.Background(), customer, in)
			assert.ErrorIs(t, err, rental.ErrValidation)
		})
	}
}

func TestCreate_ProductNotFound(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.products.EXPECT().GetByID(ctx, "prod-1").Return(nil, repository.ErrObjectNotFound)

	_, err := svc.Create(ctx, customer, validInput())
	assert.ErrorIs(t, err, rental.ErrNotFound)
}

func TestCreate_InsufficientStockEarly(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.products.EXPECT().GetByID(ctx, "prod-1").
		Return(&repository.Product{ID: "prod-1", Price: 100, Stock: 1}, nil)

	_, err := svc.Create(ctx, customer, validInput())
	assert.ErrorIs(t, err, rental.ErrValidation)
	assert.Contains(t, err.Error(), "insufficient stock")
}

func TestCreate_ReservationRaced(t *testing.T) {
	// The early stock check passed, but the conditional decrement found the
	// stock already claimed by a concurrent order. The whole transaction rolls
	// back and no order row is written.
	svc, m := newTestService(t)
	ctx := context.Background()

	m.products.EXPECT().GetByID(ctx, "prod-1").
		Return(&repository.Product{ID: "prod-1", Price: 100, Stock: 2}, nil)
	m.expectTx()
	m.products.EXPECT().ReserveStockTx(ctx, m.tx, "prod-1", 2).Return(false, nil)
	m.products.EXPECT().GetByIDTx(ctx, m.tx, "prod-1").
		Return(&repository.Product{ID: "prod-1", Stock: 1}, nil)

	_, err := svc.Create(ctx, customer, validInput())
	assert.ErrorIs(t, err, rental.ErrValidation)
	assert.Contains(t, err.Error(), "insufficient stock")
}

func TestTransitions_FullLegalPath(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		call func(*rental.Service, context.Context, string) (*repository.Order, error)
	}{
		{"confirm", "pending", "confirmed", func(s *rental.Service, ctx context.Context, id string) (*repository.Order, error) {
			return s.Confirm(ctx, admin, id)
		}},
		{"start", "paid", "in_progress", func(s *rental.Service, ctx context.Context, id string) (*repository.Order, error) {
			return s.Start(ctx, admin, id)
		}},
		{"complete", "in_progress", "completed", func(s *rental.Service, ctx context.Context, id string) (*repository.Order, error) {
			return s.Complete(ctx, admin, id)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newTestService(t)
			ctx := context.Background()

			m.expectTx()
			m.orders.EXPECT().
				UpdateStatusGuardedTx(ctx, m.tx, "order-1", tc.from, tc.to, gomock.Any()).
				Return(true, nil)
			m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ interface{}, entry *repository.HistoryEntry) error {
					assert.Equal(t, tc.to, entry.Status)
					return nil
				})
			m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
			m.tx.EXPECT().Commit(ctx).Return(nil)
			m.orders.EXPECT().GetByID(ctx, "order-1").
				Return(&repository.Order{ID: "order-1", Status: tc.to}, nil)

			order, err := tc.call(svc, ctx, "order-1")
			require.NoError(t, err)
			assert.Equal(t, tc.to, order.Status)
		})
	}
}

func TestTransition_RequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for name, call := range map[string]func() error{
		"confirm":  func() error { _, err := svc.Confirm(ctx, customer, "order-1"); return err },
		"pay":      func() error { _, err := svc.MarkPaid(ctx, customer, "order-1"); return err },
		"start":    func() error { _, err := svc.Start(ctx, customer, "order-1"); return err },
		"complete": func() error { _, err := svc.Complete(ctx, customer, "order-1"); return err },
		"override": func() error { _, err := svc.OverrideStatus(ctx, customer, "order-1", "paid", ""); return err },
		"list all": func() error { _, err := svc.ListAll(ctx, customer, ""); return err },
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), rental.ErrForbidden)
		})
	}
}

func TestTransition_SkipRejectedAsConflict(t *testing.T) {
	// Confirm on an order that is already paid: the guarded write sees zero
	// rows, and the conflict message names the actual status.
	svc, m := newTestService(t)
	ctx := context.Background()

	m.expectTx()
	m.orders.EXPECT().
		UpdateStatusGuardedTx(ctx, m.tx, "order-1", "pending", "confirmed", gomock.Any()).
		Return(false, nil)
	m.orders.EXPECT().GetByID(ctx, "order-1").
		Return(&repository.Order{ID: "order-1", Status: "paid"}, nil)

	_, err := svc.Confirm(ctx, admin, "order-1")
	assert.ErrorIs(t, err, rental.ErrConflict)
	assert.Contains(t, err.Error(), "paid")
}

func TestTransition_NotFound(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.expectTx()
	m.orders.EXPECT().
		UpdateStatusGuardedTx(ctx, m.tx, "missing", "pending", "confirmed", gomock.Any()).
		Return(false, nil)
	m.orders.EXPECT().GetByID(ctx, "missing").Return(nil, repository.ErrObjectNotFound)

	_, err := svc.Confirm(ctx, admin, "missing")
	assert.ErrorIs(t, err, rental.ErrNotFound)
}

func TestMarkPaid_UsesPaymentStamp(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.expectTx()
	m.orders.EXPECT().
		MarkPaidGuardedTx(ctx, m.tx, "order-1", gomock.Any(), gomock.Any()).
		Return(true, nil)
	m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.tx.EXPECT().Commit(ctx).Return(nil)
	paymentDate := time.Now().UTC()
	amount := 600
	m.orders.EXPECT().GetByID(ctx, "order-1").Return(&repository.Order{
		ID:                  "order-1",
		Status:              "paid",
		PaymentDate:         &paymentDate,
		ActualPaymentAmount: &amount,
	}, nil)

	order, err := svc.MarkPaid(ctx, admin, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "paid", order.Status)
	require.NotNil(t, order.ActualPaymentAmount)
	assert.Equal(t, 600, *order.ActualPaymentAmount)
}

func TestCancel_OwnerOnly(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.orders.EXPECT().GetByID(ctx, "order-1").
		Return(&repository.Order{ID: "order-1", UserID: "someone-else", Status: "pending"}, nil)

	_, err := svc.Cancel(ctx, customer, "order-1")
	assert.ErrorIs(t, err, rental.ErrForbidden)
}

func TestCancel_Success(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.orders.EXPECT().GetByID(ctx, "order-1").Return(&repository.Order{
		ID: "order-1", UserID: "user-1", ProductID: "prod-1", Quantity: 2, Status: "pending",
	}, nil)
	m.expectTx()
	m.orders.EXPECT().
		UpdateStatusGuardedTx(ctx, m.tx, "order-1", "pending", "cancelled", gomock.Any()).
		Return(true, nil)
	m.products.EXPECT().ReleaseStockTx(ctx, m.tx, "prod-1", 2).Return(nil)
	m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
	m.tx.EXPECT().Commit(ctx).Return(nil)

	order, err := svc.Cancel(ctx, customer, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", order.Status)
}

func TestCancel_NonPendingConflict(t *testing.T) {
	// Stock must stay untouched: no ReleaseStockTx expectation.
	svc, m := newTestService(t)
	ctx := context.Background()

	m.orders.EXPECT().GetByID(ctx, "order-1").Return(&repository.Order{
		ID: "order-1", UserID: "user-1", ProductID: "prod-1", Quantity: 2, Status: "paid",
	}, nil)
	m.expectTx()
	m.orders.EXPECT().
		UpdateStatusGuardedTx(ctx, m.tx, "order-1", "pending", "cancelled", gomock.Any()).
		Return(false, nil)

	_, err := svc.Cancel(ctx, customer, "order-1")
	assert.ErrorIs(t, err, rental.ErrConflict)
}

func TestOverrideStatus(t *testing.T) {
	t.Run("unknown status rejected", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.OverrideStatus(context.Background(), admin, "order-1", "teleported", "")
		assert.ErrorIs(t, err, rental.ErrValidation)
	})

	t.Run("applies any valid status without precondition", func(t *testing.T) {
		svc, m := newTestService(t)
		ctx := context.Background()

		m.orders.EXPECT().GetByID(ctx, "order-1").
			Return(&repository.Order{ID: "order-1", Status: "completed"}, nil)
		m.orders.EXPECT().
			OverrideStatus(ctx, "order-1", "pending", gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, notes *string, _ time.Time) error {
				require.NotNil(t, notes)
				assert.Equal(t, "resetting after refund", *notes)
				return nil
			})
		m.history.EXPECT().Create(ctx, gomock.Any()).Return(nil)

		order, err := svc.OverrideStatus(ctx, admin, "order-1", "pending", "resetting after refund")
		require.NoError(t, err)
		assert.Equal(t, "pending", order.Status)
	})

	t.Run("history failure does not fail the override", func(t *testing.T) {
		svc, m := newTestService(t)
		ctx := context.Background()

		m.orders.EXPECT().GetByID(ctx, "order-1").
			Return(&repository.Order{ID: "order-1", Status: "pending"}, nil)
		m.orders.EXPECT().
			OverrideStatus(ctx, "order-1", "completed", nil, gomock.Any()).
			Return(nil)
		m.history.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("history down"))

		order, err := svc.OverrideStatus(ctx, admin, "order-1", "completed", "")
		require.NoError(t, err)
		assert.Equal(t, "completed", order.Status)
	})
}

func TestGet_HidesForeignOrders(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.orders.EXPECT().GetByID(ctx, "order-1").
		Return(&repository.Order{ID: "order-1", UserID: "someone-else"}, nil)

	_, err := svc.Get(ctx, customer, "order-1")
	assert.ErrorIs(t, err, rental.ErrNotFound)
}

func TestGet_AdminSeesAll(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.orders.EXPECT().GetByID(ctx, "order-1").
		Return(&repository.Order{ID: "order-1", UserID: "someone-else"}, nil)

	order, err := svc.Get(ctx, admin, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
}

func TestListAll_ValidatesFilter(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListAll(context.Background(), admin, "shipped")
	assert.ErrorIs(t, err, rental.ErrValidation)
}
