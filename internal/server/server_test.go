package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/sewain/backend/internal/attachment"
	"github.com/sewain/backend/internal/auth"
	"github.com/sewain/backend/internal/cache"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
	mock_server "github.com/sewain/backend/internal/server/mocks"
)

type testEnv struct {
	router      http.Handler
	orders      *mock_server.MockOrderService
	authSvc     *mock_server.MockAuthService
	reports     *mock_server.MockReportingService
	categories  *mock_server.MockCategoryRepository
	products    *mock_server.MockProductRepository
	ratings     *mock_server.MockRatingRepository
	userReports *mock_server.MockReportRepository
}

func newTestEnv(t *testing.T) *testEnv {
	ctrl := gomock.NewController(t)

	env := &testEnv{
		orders:      mock_server.NewMockOrderService(ctrl),
		authSvc:     mock_server.NewMockAuthService(ctrl),
		reports:     mock_server.NewMockReportingService(ctrl),
		categories:  mock_server.NewMockCategoryRepository(ctrl),
		products:    mock_server.NewMockProductRepository(ctrl),
		ratings:     mock_server.NewMockRatingRepository(ctrl),
		userReports: mock_server.NewMockReportRepository(ctrl),
	}

	store, err := attachment.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	srv := New(Deps{
		Orders:       env.orders,
		Auth:         env.authSvc,
		Reports:      env.reports,
		Categories:   env.categories,
		Products:     env.products,
		Ratings:      env.ratings,
		UserReports:  env.userReports,
		ProductCache: cache.NewProductCache(env.products, zap.NewNop()),
		Attachments:  store,
		Logger:       zap.NewNop(),
	})
	env.router = srv.setupRoutes()
	return env
}

func (e *testEnv) asUser(token string, p auth.Principal) {
	e.authSvc.EXPECT().Authenticate(gomock.Any(), token).Return(&p, nil).AnyTimes()
}

func (e *testEnv) do(method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

var (
	customer = auth.Principal{UserID: "user-1", Name: "Jane", Role: auth.RoleCustomer}
	admin    = auth.Principal{UserID: "admin-1", Name: "Root", Role: auth.RoleAdmin}
)

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodGet, "/my-orders", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("rejected token", func(t *testing.T) {
		env := newTestEnv(t)
		env.authSvc.EXPECT().Authenticate(gomock.Any(), "stale").
			Return(nil, rental.Forbiddenf("session expired"))
		rec := env.do(http.MethodGet, "/my-orders", "stale", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)
		env.orders.EXPECT().ListMine(gomock.Any(), customer).Return(nil, nil)

		rec := env.do(http.MethodGet, "/my-orders", "tok", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestAdminGate(t *testing.T) {
	t.Run("customer blocked", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)
		rec := env.do(http.MethodGet, "/admin/orders", "tok", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin allowed", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", admin)
		env.orders.EXPECT().ListAll(gomock.Any(), admin, "pending").Return(nil, nil)
		rec := env.do(http.MethodGet, "/admin/orders?status=pending", "tok", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", rental.Invalidf("quantity must be positive"), http.StatusBadRequest, `{"error":"validation failed: quantity must be positive"}`},
		{"not found", rental.NotFoundf("order not found"), http.StatusNotFound, `{"error":"not found: order not found"}`},
		{"conflict", rental.Conflictf("status changed concurrently"), http.StatusConflict, `{"error":"conflict: status changed concurrently"}`},
		{"forbidden", rental.Forbiddenf("not your order"), http.StatusForbidden, `{"error":"forbidden: not your order"}`},
		{"internal errors stay opaque", errors.New("pg: connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.asUser("tok", customer)
			env.orders.EXPECT().Get(gomock.Any(), customer, "ord-1").Return(nil, tc.err)

			rec := env.do(http.MethodGet, "/orders/ord-1", "tok", nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("file-content"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestHandleCreateOrder(t *testing.T) {
	orderFields := map[string]string{
		"product_id":     "prod-1",
		"full_name":      "Jane Doe",
		"email":          "jane@example.com",
		"phone":          "+6281234567",
		"rent_date":      "2026-09-01",
		"return_date":    "2026-09-04",
		"quantity":       "2",
		"pickup_method":  "pickup",
		"return_method":  "dropoff",
		"payment_method": "transfer",
	}

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)
		env.orders.EXPECT().Create(gomock.Any(), customer, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ auth.Principal, in rental.CreateOrderInput) (*repository.Order, error) {
				assert.Equal(t, "prod-1", in.ProductID)
				assert.Equal(t, 2, in.Quantity)
				assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), in.RentDate)
				assert.True(t, strings.HasPrefix(in.IDCardRef, "uploads/"))
				assert.True(t, strings.HasPrefix(in.SelfieRef, "uploads/"))
				return &repository.Order{ID: "ord-1", Status: string(rental.StatusPending)}, nil
			})

		body, contentType := multipartBody(t, orderFields, map[string]string{
			"id_card": "ktp.jpg",
			"selfie":  "selfie.png",
		})
		req := httptest.NewRequest(http.MethodPost, "/orders", body)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("bad quantity", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)

		fields := map[string]string{}
		for k, v := range orderFields {
			fields[k] = v
		}
		fields["quantity"] = "two"
		body, contentType := multipartBody(t, fields, nil)
		req := httptest.NewRequest(http.MethodPost, "/orders", body)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("disallowed attachment extension", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)

		body, contentType := multipartBody(t, orderFields, map[string]string{
			"id_card": "script.exe",
		})
		req := httptest.NewRequest(http.MethodPost, "/orders", body)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleRegister(t *testing.T) {
	t.Run("password mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		body := bytes.NewBufferString(`{"name":"Jane","email":"jane@example.com","password":"secret1","confirm_password":"secret2"}`)
		rec := env.do(http.MethodPost, "/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.authSvc.EXPECT().Register(gomock.Any(), auth.RegisterInput{
			Name: "Jane", Email: "jane@example.com", Password: "secret1",
		}).Return(&repository.User{
			ID: "u-1", Name: "Jane", Email: "jane@example.com",
			Role: auth.RoleCustomer, IsActive: true,
		}, nil)

		body := bytes.NewBufferString(`{"name":"Jane","email":"jane@example.com","password":"secret1","confirm_password":"secret1"}`)
		rec := env.do(http.MethodPost, "/register", "", body)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "u-1", resp.ID)
		assert.Equal(t, auth.RoleCustomer, resp.Role)
	})
}

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t)
	env.authSvc.EXPECT().Login(gomock.Any(), "jane@example.com", "secret1").
		Return("session-token", &repository.User{ID: "u-1", Email: "jane@example.com"}, nil)

	body := bytes.NewBufferString(`{"email":"jane@example.com","password":"secret1"}`)
	rec := env.do(http.MethodPost, "/login", "", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string       `json:"token"`
		User  userResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-token", resp.Token)
	assert.Equal(t, "u-1", resp.User.ID)
}

func TestHandleRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.authSvc.EXPECT().Refresh(gomock.Any(), "old-token").Return("new-token", nil)

	rec := env.do(http.MethodPost, "/token/refresh", "old-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"new-token"}`, rec.Body.String())
}

func TestHandleGetProduct_CacheMissThenHit(t *testing.T) {
	env := newTestEnv(t)
	product := &repository.Product{ID: "prod-1", Name: "Camera", Price: 100, Stock: 3, CategoryID: "cat-1"}

	env.products.EXPECT().GetByID(gomock.Any(), "prod-1").Return(product, nil).Times(1)
	env.ratings.EXPECT().RatingForProduct(gomock.Any(), "prod-1").
		Return(&repository.ProductRating{ProductID: "prod-1", AverageRating: 4.5, ReviewCount: 2}, nil).Times(2)

	rec := env.do(http.MethodGet, "/products/prod-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second request must be served from the cache.
	rec = env.do(http.MethodGet, "/products/prod-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name          string  `json:"Name"`
		AverageRating float64 `json:"average_rating"`
		ReviewCount   int     `json:"review_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Camera", resp.Name)
	assert.Equal(t, 4.5, resp.AverageRating)
	assert.Equal(t, 2, resp.ReviewCount)
}

func TestHandleListProducts_JoinsRatings(t *testing.T) {
	env := newTestEnv(t)
	env.products.EXPECT().GetAll(gomock.Any()).Return([]*repository.Product{
		{ID: "prod-1", Name: "Camera"},
		{ID: "prod-2", Name: "Tripod"},
	}, nil)
	env.ratings.EXPECT().RatingAggregates(gomock.Any()).Return([]*repository.ProductRating{
		{ProductID: "prod-2", AverageRating: 3.0, ReviewCount: 1},
	}, nil)

	rec := env.do(http.MethodGet, "/products", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []struct {
		ID            string  `json:"ID"`
		AverageRating float64 `json:"average_rating"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, 0.0, resp[0].AverageRating)
	assert.Equal(t, 3.0, resp[1].AverageRating)
}

func TestHandleCreateProduct(t *testing.T) {
	t.Run("unknown category rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", admin)
		env.categories.EXPECT().GetByID(gomock.Any(), "ghost").
			Return(nil, repository.ErrObjectNotFound)

		body, contentType := multipartBody(t, map[string]string{
			"name": "Camera", "price": "100", "stock": "3", "category_id": "ghost",
		}, nil)
		req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", admin)
		env.categories.EXPECT().GetByID(gomock.Any(), "cat-1").
			Return(&repository.Category{ID: "cat-1", Name: "Electronics"}, nil)
		env.products.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p *repository.Product) error {
				assert.Equal(t, "Camera", p.Name)
				assert.Equal(t, 100, p.Price)
				assert.Equal(t, 3, p.Stock)
				assert.NotEmpty(t, p.ID)
				return nil
			})

		body, contentType := multipartBody(t, map[string]string{
			"name": "Camera", "price": "100", "stock": "3", "category_id": "cat-1",
		}, nil)
		req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
		req.Header.Set("Authorization", "Bearer tok")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestTransitionRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.asUser("tok", admin)
	env.orders.EXPECT().Confirm(gomock.Any(), admin, "ord-1").
		Return(&repository.Order{ID: "ord-1", Status: string(rental.StatusConfirmed)}, nil)

	rec := env.do(http.MethodPut, "/admin/orders/ord-1/confirm", "tok", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string `json:"Status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(rental.StatusConfirmed), resp.Status)
}

func TestHandleOverrideStatus(t *testing.T) {
	env := newTestEnv(t)
	env.asUser("tok", admin)
	env.orders.EXPECT().OverrideStatus(gomock.Any(), admin, "ord-1", "completed", "returned late").
		Return(&repository.Order{ID: "ord-1", Status: string(rental.StatusCompleted)}, nil)

	body := bytes.NewBufferString(`{"status":"completed","admin_notes":"returned late"}`)
	rec := env.do(http.MethodPut, "/admin/orders/ord-1/status", "tok", body)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	env.asUser("tok", customer)
	env.orders.EXPECT().Cancel(gomock.Any(), customer, "ord-1").
		Return(nil, rental.Conflictf("only pending orders can be cancelled"))

	rec := env.do(http.MethodPut, "/orders/ord-1/cancel", "tok", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleReportUser(t *testing.T) {
	t.Run("self report rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)

		body := bytes.NewBufferString(`{"reason":"spam"}`)
		rec := env.do(http.MethodPost, "/users/user-1/report", "tok", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)
		env.userReports.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rep *repository.Report) error {
				assert.Equal(t, "user-1", rep.ReporterID)
				assert.Equal(t, "user-2", rep.ReportedUserID)
				assert.Equal(t, "spam", rep.Reason)
				return nil
			})

		body := bytes.NewBufferString(`{"reason":"spam"}`)
		rec := env.do(http.MethodPost, "/users/user-2/report", "tok", body)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestHandleDeleteUserReport(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", admin)
		env.userReports.EXPECT().Delete(gomock.Any(), "rep-1").Return(nil)

		rec := env.do(http.MethodDelete, "/admin/user-reports/rep-1", "tok", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing report", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", admin)
		env.userReports.EXPECT().Delete(gomock.Any(), "ghost").
			Return(repository.ErrObjectNotFound)

		rec := env.do(http.MethodDelete, "/admin/user-reports/ghost", "tok", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("customer blocked", func(t *testing.T) {
		env := newTestEnv(t)
		env.asUser("tok", customer)

		rec := env.do(http.MethodDelete, "/admin/user-reports/rep-1", "tok", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.asUser("tok", admin)
	env.reports.EXPECT().Dashboard(gomock.Any()).Return(nil, errors.New("db down"))

	rec := env.do(http.MethodGet, "/admin/dashboard", "tok", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
