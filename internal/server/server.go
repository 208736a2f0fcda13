//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sewain/backend/internal/attachment"
	"github.com/sewain/backend/internal/auth"
	"github.com/sewain/backend/internal/cache"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/reporting"
	"github.com/sewain/backend/internal/repository"
)

type OrderService interface {
	Create(ctx context.Context, p auth.Principal, in rental.CreateOrderInput) (*repository.Order, error)
	Get(ctx context.Context, p auth.Principal, orderID string) (*repository.Order, error)
	ListMine(ctx context.Context, p auth.Principal) ([]*repository.Order, error)
	ListAll(ctx context.Context, p auth.Principal, statusFilter string) ([]*repository.Order, error)
	History(ctx context.Context, p auth.Principal, orderID string) ([]*repository.HistoryEntry, error)
	Confirm(ctx context.Context, p auth.Principal, orderID string) (*repository.Order, error)
	MarkPaid(ctx context.Context, p auth.Principal, orderID string) (*repository.Order, error)
	Start(ctx context.Context, p auth.Principal, orderID string) (*repository.Order, error)
	Complete(ctx context.Context, p auth.Principal, orderID string) (*repository.Order, error)
	Cancel(ctx context.Context, p auth.Principal, orderID string) (*repository.Order, error)
	OverrideStatus(ctx context.Context, p auth.Principal, orderID, status, adminNotes string) (*repository.Order, error)
	SubmitReview(ctx context.Context, p auth.Principal, productID string, rating int, comment string) (*repository.Review, error)
	ListProductReviews(ctx context.Context, productID string) ([]*repository.ReviewWithAuthor, error)
}

type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*repository.User, error)
	Login(ctx context.Context, email, password string) (string, *repository.User, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (string, error)
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Deactivate(ctx context.Context, userID string) error
	ForceLogout(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]*repository.User, error)
	GetProfile(ctx context.Context, userID string) (*repository.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in auth.ProfileUpdateInput) (*repository.Profile, error)
}

type ReportingService interface {
	Dashboard(ctx context.Context) (*reporting.Dashboard, error)
	RangeReport(ctx context.Context, rangeSelector string) ([]*repository.OrderReportRow, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *repository.Category) error
	Update(ctx context.Context, c *repository.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*repository.Category, error)
	GetAll(ctx context.Context) ([]*repository.Category, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *repository.Product) error
	Update(ctx context.Context, p *repository.Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*repository.Product, error)
	GetAll(ctx context.Context) ([]*repository.Product, error)
}

type RatingRepository interface {
	RatingAggregates(ctx context.Context) ([]*repository.ProductRating, error)
	RatingForProduct(ctx context.Context, productID string) (*repository.ProductRating, error)
}

type ReportRepository interface {
	Create(ctx context.Context, rep *repository.Report) error
	GetAll(ctx context.Context) ([]*repository.ReportWithNames, error)
	Delete(ctx context.Context, id string) error
}

type Server struct {
	orders       OrderService
	authSvc      AuthService
	reports      ReportingService
	categories   CategoryRepository
	products     ProductRepository
	ratings      RatingRepository
	userReports  ReportRepository
	productCache *cache.ProductCache
	attachments  *attachment.Store
	AuditManager *AuditManager
	logger       *zap.Logger
	server       *http.Server
}

type Deps struct {
	Orders       OrderService
	Auth         AuthService
	Reports      ReportingService
	Categories   CategoryRepository
	Products     ProductRepository
	Ratings      RatingRepository
	UserReports  ReportRepository
	ProductCache *cache.ProductCache
	Attachments  *attachment.Store
	Audit        *AuditManager
	Logger       *zap.Logger
}

func New(d Deps) *Server {
	return &Server{
		orders:       d.Orders,
		authSvc:      d.Auth,
		reports:      d.Reports,
		categories:   d.Categories,
		products:     d.Products,
		ratings:      d.Ratings,
		userReports:  d.UserReports,
		productCache: d.ProductCache,
		attachments:  d.Attachments,
		AuditManager: d.Audit,
		logger:       d.Logger,
	}
}

// Run blocks serving HTTP until ctx is cancelled, then drains in-flight
// requests and the audit pipeline.
func (s *Server) Run(ctx context.Context, port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if s.AuditManager != nil {
		s.AuditManager.Start(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("http server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	if s.AuditManager != nil {
		s.AuditManager.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	// Public surface.
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/token/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	r.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", s.handleGetProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}/reviews", s.handleListProductReviews).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.PathPrefix("/uploads/").HandlerFunc(s.handleServeAttachment).Methods(http.MethodGet)

	// Authenticated surface.
	api := r.NewRoute().Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodDelete)
	api.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/my-orders", s.handleMyOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/history", s.handleOrderHistory).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods(http.MethodPut)
	api.HandleFunc("/reviews", s.handleCreateReview).Methods(http.MethodPost)
	api.HandleFunc("/profile", s.handleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/profile/password", s.handleChangePassword).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/report", s.handleReportUser).Methods(http.MethodPost)

	// Admin surface; mutations go through the audit pipeline.
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.authMiddleware, s.requireAdmin, s.auditMiddleware)
	admin.HandleFunc("/orders", s.handleAdminListOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/confirm", s.handleConfirmOrder).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/pay", s.handleMarkPaid).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/start", s.handleStartOrder).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/complete", s.handleCompleteOrder).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/status", s.handleOverrideStatus).Methods(http.MethodPut)
	admin.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/reports", s.handleRangeReport).Methods(http.MethodGet)
	admin.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	admin.HandleFunc("/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	admin.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)
	admin.HandleFunc("/products", s.handleCreateProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}", s.handleUpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", s.handleDeleteProduct).Methods(http.MethodDelete)
	admin.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/deactivate", s.handleDeactivateUser).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}/force-logout", s.handleForceLogout).Methods(http.MethodPost)
	admin.HandleFunc("/user-reports", s.handleListUserReports).Methods(http.MethodGet)
	admin.HandleFunc("/user-reports/{id}", s.handleDeleteUserReport).Methods(http.MethodDelete)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleServeAttachment(w http.ResponseWriter, r *http.Request) {
	f, err := s.attachments.Open(r.URL.Path[1:])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, f.Name(), time.Time{}, f)
}
