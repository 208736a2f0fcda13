package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sewain/backend/internal/attachment"
	"github.com/sewain/backend/internal/auth"
	"github.com/sewain/backend/internal/cache"
	"github.com/sewain/backend/internal/config"
	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/kafka"
	"github.com/sewain/backend/internal/logger"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/reporting"
	"github.com/sewain/backend/internal/repository/postgresql"
	"github.com/sewain/backend/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.New()
	defer log.Sync()

	cfg := config.Load()

	database, err := db.New(ctx, cfg)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close()

	orderRepo := postgresql.NewOrderRepo(database)
	productRepo := postgresql.NewProductRepo(database)
	categoryRepo := postgresql.NewCategoryRepo(database)
	historyRepo := postgresql.NewHistoryRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo()
	reviewRepo := postgresql.NewReviewRepo(database)
	reportRepo := postgresql.NewReportRepo(database)
	reportingRepo := postgresql.NewReportingRepo(database)
	userRepo := postgresql.NewUserRepo(database)
	sessionRepo := postgresql.NewSessionRepo(database)
	profileRepo := postgresql.NewProfileRepo(database)

	rentalSvc := rental.NewService(database, orderRepo, productRepo, historyRepo, outboxRepo, reviewRepo, cfg.OrderTopic, log)
	reportingSvc := reporting.NewService(reportingRepo, userRepo, productRepo)
	authSvc := auth.NewService(userRepo, sessionRepo, profileRepo, cfg.SessionTTL, log)

	if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("admin seed failed", zap.Error(err))
	}

	attachments, err := attachment.NewStore(cfg.UploadDir, log)
	if err != nil {
		log.Fatal("attachment store init failed", zap.Error(err))
	}

	productCache := cache.NewProductCache(productRepo, log)
	if err := productCache.LoadInitialData(ctx); err != nil {
		log.Warn("product cache warmup failed", zap.Error(err))
	}

	var producer kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewWriterProducer(cfg.KafkaBrokers, log)
	} else {
		producer = kafka.NewConsoleProducer(log)
	}

	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    10,
		MaxAttempts:  3,
	}, log)

	audit := server.NewAuditManager(2, 5, 500*time.Millisecond, producer, cfg.AuditTopic, log)

	srv := server.New(server.Deps{
		Orders:       rentalSvc,
		Auth:         authSvc,
		Reports:      reportingSvc,
		Categories:   categoryRepo,
		Products:     productRepo,
		Ratings:      reviewRepo,
		UserReports:  reportRepo,
		ProductCache: productCache,
		Attachments:  attachments,
		Audit:        audit,
		Logger:       log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, cfg.HTTPPort)
	})

	g.Go(func() error {
		publisher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				authSvc.CleanupExpiredSessions(gctx)
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("shutdown complete")
}
