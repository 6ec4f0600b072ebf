// Package server boots the whole application: config, logging, storage,
// queue workers, scheduler, and both the HTTP and gRPC listeners.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/adityaraj/bazario/app/jobs"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/app/routes"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/cache"
	"github.com/adityaraj/bazario/pkg/database"
	bazgrpc "github.com/adityaraj/bazario/pkg/grpc"
	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/metrics"
	"github.com/adityaraj/bazario/pkg/middleware"
	"github.com/adityaraj/bazario/pkg/queue"
	"github.com/adityaraj/bazario/pkg/reqid"
	"github.com/adityaraj/bazario/pkg/router"
	"github.com/adityaraj/bazario/pkg/schedule"
	"github.com/adityaraj/bazario/pkg/session"
	"github.com/adityaraj/bazario/pkg/storage"
	"github.com/adityaraj/bazario/pkg/ws"
)

const (
	queueWorkers    = 5
	shutdownTimeout = 15 * time.Second
)

// Start boots every subsystem and blocks until SIGINT/SIGTERM.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.Load(); err != nil {
		return err
	}

	// Audit trail to Mongo, fanned out from the structured logger.
	if uri := config.AuditMongoURI(); uri != "" {
		h, err := logger.NewMongoHandler(uri, config.AuditMongoDB(), "audit_log")
		if err != nil {
			logger.Warn("audit log disabled", "error", err)
		} else {
			logger.EnableAudit(h)
			defer h.Close()
		}
	}

	db, err := database.Connect()
	if err != nil {
		return err
	}

	if err := cache.Connect(); err != nil {
		logger.Warn("redis unavailable, falling back to direct reads", "error", err)
	}
	storage.Connect()

	// Queue: Redis-backed when available, in-memory otherwise. Failed jobs
	// land in the relational store either way.
	queue.UseDB(db)
	if cache.RDB != nil {
		queue.SetDriver(queue.NewRedisDriver(cache.RDB))
	}
	jobs.RegisterAll()
	queue.StartWorkers(ctx, queueWorkers)

	// Wiring. Repositories get the handle by injection; services get
	// repositories the same way.
	userRepo := repositories.NewUserRepository(db)
	productRepo := repositories.NewProductRepository(db)
	orderRepo := repositories.NewOrderRepository(db)

	issuer := newIssuer()
	authService := services.NewAuthService(userRepo, issuer, config.BcryptCost())
	googleService := services.NewGoogleService()
	catalogService := services.NewCatalogService(productRepo)
	userService := services.NewUserService(userRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, catalogService)

	hub := ws.NewHub()
	go hub.Run()

	registerListeners(userRepo, hub)
	registerSchedules(orderService)
	schedule.Start(ctx)

	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		session.Middleware(session.DefaultOptions()),
		middleware.CORS(middleware.DefaultCORSOptions()),
		middleware.RateLimit(300, time.Minute),
	)

	routes.RegisterAPI(r, routes.Deps{
		Auth:    authService,
		Google:  googleService,
		Catalog: catalogService,
		Users:   userService,
		Orders:  orderService,
		Hub:     hub,
	})

	grpcSrv, _, err := bazgrpc.Start(config.GRPCPort())
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: server listening", "port", config.AppPort(), "env", config.AppEnv())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http: shutdown", "error", err)
	}
	bazgrpc.Stop(grpcSrv)

	return nil
}
