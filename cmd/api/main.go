package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cimillas/ticket-rush/internal/app"
	"github.com/cimillas/ticket-rush/internal/clients"
	"github.com/cimillas/ticket-rush/internal/clock"
	"github.com/cimillas/ticket-rush/internal/config"
	"github.com/cimillas/ticket-rush/internal/storage/postgres"
	redisstore "github.com/cimillas/ticket-rush/internal/storage/redis"
	transporthttp "github.com/cimillas/ticket-rush/internal/transport/http"
	"github.com/cimillas/ticket-rush/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := run(logger); err != nil {
		logger.WithError(err).Fatal("api exited")
	}
}

func run(logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return err
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		return err
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.WithError(err).Warn("close redis")
		}
	}()
	if err := rdb.Ping(startupCtx).Err(); err != nil {
		return err
	}

	clk := clock.NewSystem()

	eventRepo := postgres.NewEventRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	holdStore := redisstore.NewHoldStore(rdb, clk)
	admissionQueue := redisstore.NewAdmissionQueue(rdb, clk)

	// Inventory can run in-process or as a remote service behind the same
	// HTTP boundary this process serves.
	var inventory app.InventoryStore = eventRepo
	if cfg.InventoryBaseURL != "" {
		inventory = clients.NewInventoryClient(cfg.InventoryBaseURL)
		logger.WithField("base_url", cfg.InventoryBaseURL).Info("using remote inventory")
	}

	payments := app.NewSimulatedProcessor(time.Now().UnixNano(), 0.9)

	eventSvc := app.NewEventService(eventRepo, clk)
	queueSvc := app.NewQueueService(admissionQueue, app.WithPerUserWait(cfg.PerUserWaitEstimate))
	bookingSvc := app.NewBookingService(
		orderRepo, inventory, holdStore, admissionQueue, payments, clk, logger,
		app.WithHoldTTL(cfg.HoldTTL),
	)
	sweeper := app.NewSweeper(orderRepo, inventory, holdStore, clk, logger, cfg.SweepInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/queue/join", transporthttp.HandleQueueJoin(queueSvc))
	mux.Handle("/queue/position/", transporthttp.HandleQueuePosition(queueSvc))
	mux.Handle("/queue/admit", transporthttp.HandleQueueAdmit(queueSvc))
	mux.Handle("/queue/status", transporthttp.HandleQueueStatus(queueSvc))
	mux.Handle("/queue/remove/", transporthttp.HandleQueueRemove(queueSvc))
	mux.Handle("/bookings", transporthttp.HandleBookings(bookingSvc))
	mux.Handle("/bookings/payment", transporthttp.HandleConfirmPayment(bookingSvc))
	mux.Handle("/bookings/", transporthttp.HandleBookingByID(bookingSvc))
	mux.Handle("/events", transporthttp.HandleEvents(eventSvc))
	mux.Handle("/inventory/", transporthttp.HandleInventory(eventSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(stopCtx)

	g.Go(func() error {
		logger.WithField("port", cfg.Port).Info("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := sweeper.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown signal received, stopping server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
