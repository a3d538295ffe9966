package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vehiclemarket/sales-system/sales-service/config"
	"github.com/vehiclemarket/sales-system/sales-service/handlers"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/logging"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
	"golang.org/x/sync/errgroup"
)

func main() {
	bootLog := logging.New("sales-service", os.Stdout)

	// Load configuration
	cfg, err := config.ReadConfig()
	if err != nil {
		bootLog.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	deps, err := config.BuildDependencies(ctx, cfg)
	if err != nil {
		bootLog.WithError(err).Error("failed to build dependencies")
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Logger.WithError(err).Error("error closing dependencies")
		}
	}()

	logger := deps.Logger
	logger.Infof("starting sales service", map[string]interface{}{
		"env":     cfg.Env,
		"port":    cfg.Port,
		"storage": cfg.Storage.Driver,
	})

	// Start event subscriber
	if deps.EventSubscriber != nil {
		if err := deps.EventSubscriber.Subscribe(ctx, events.PaymentGatewayNotificationEvent, deps.SaleEventHandlers); err != nil {
			logger.WithError(err).Error("failed to start event subscriber")
			os.Exit(1)
		}
	}

	// Start saga recovery
	if deps.RecoveryJob != nil {
		deps.RecoveryJob.Start(ctx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down sales service")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("sales service stopped with error")
		return
	}

	logger.Info("sales service stopped")
}

func setupRouter(deps *config.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// Telemetry middleware (inject telemetry into context)
	if deps.Telemetry != nil {
		r.Use(telemetry.Middleware(deps.Telemetry))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", handlers.NewMetricsHandler())

	// Register sale routes
	deps.SaleHandlers.RegisterRoutes(r)

	return r
}
