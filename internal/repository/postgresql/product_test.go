package postgresql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/sewain/backend/internal/db/mocks"
	"github.com/sewain/backend/internal/repository"
	"github.com/sewain/backend/internal/repository/postgresql"
)

func TestProductRepo_ReserveStockTx(t *testing.T) {
	ctx := context.Background()

	t.Run("reservation decrements when stock suffices", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("prod-1"), gomock.Eq(2)).
			DoAndReturn(func(_ context.Context, query string, _ ...interface{}) (pgconn.CommandTag, error) {
				assert.Contains(t, query, "stock = stock - $2")
				assert.Contains(t, query, "stock >= $2")
				return pgconn.CommandTag("UPDATE 1"), nil
			})

		reserved, err := repo.ReserveStockTx(ctx, mockTx, "prod-1", 2)
		require.NoError(t, err)
		assert.True(t, reserved)
	})

	t.Run("insufficient stock leaves the row untouched", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("prod-1"), gomock.Eq(99)).
			Return(pgconn.CommandTag("UPDATE 0"), nil)

		reserved, err := repo.ReserveStockTx(ctx, mockTx, "prod-1", 99)
		require.NoError(t, err)
		assert.False(t, reserved)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		expectedErr := errors.New("deadlock detected")
		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		_, err := repo.ReserveStockTx(ctx, mockTx, "prod-1", 1)
		assert.Equal(t, expectedErr, err)
	})
}

func TestProductRepo_ReleaseStockTx(t *testing.T) {
	ctx := context.Background()

	t.Run("release increments stock", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("prod-1"), gomock.Eq(2)).
			DoAndReturn(func(_ context.Context, query string, _ ...interface{}) (pgconn.CommandTag, error) {
				assert.Contains(t, query, "stock = stock + $2")
				return pgconn.CommandTag("UPDATE 1"), nil
			})

		err := repo.ReleaseStockTx(ctx, mockTx, "prod-1", 2)
		assert.NoError(t, err)
	})

	t.Run("missing product", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.ReleaseStockTx(ctx, mockTx, "ghost", 1)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestProductRepo_GetByIDTx(t *testing.T) {
	ctx := context.Background()

	t.Run("locks the row for the transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockTx.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("prod-1")).
			DoAndReturn(func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
				assert.Contains(t, query, "FOR UPDATE")
				p := dest.(*repository.Product)
				p.ID = "prod-1"
				p.Stock = 3
				return nil
			})

		product, err := repo.GetByIDTx(ctx, mockTx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, 3, product.Stock)
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockTx.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ghost")).
			Return(pgx.ErrNoRows)

		_, err := repo.GetByIDTx(ctx, mockTx, "ghost")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestProductRepo_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("prod-1")).
			Return(pgconn.CommandTag("DELETE 1"), nil)

		assert.NoError(t, repo.Delete(ctx, "prod-1"))
	})

	t.Run("missing product", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewProductRepo(mockDB)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("ghost")).
			Return(pgconn.CommandTag("DELETE 0"), nil)

		assert.ErrorIs(t, repo.Delete(ctx, "ghost"), repository.ErrObjectNotFound)
	})
}

func TestProductRepo_Count(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewProductRepo(mockDB)

	mockDB.EXPECT().ExecQueryRow(gomock.Any(), gomock.Any()).Return(stubRow{value: 7})

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
