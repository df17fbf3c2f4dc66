package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/application"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/config"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/events"
	httptransport "github.com/YoussefMachkour/Reservation-room-sub001/internal/http"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/lock"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/logging"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/metrics"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence/memory"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence/sqlite"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/recurrence"
	"github.com/YoussefMachkour/Reservation-room-sub001/internal/store"
)

const (
	serviceName    = "reservation"
	requestTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("reservation service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr, "storage", cfg.StorageDriver, "lock", cfg.LockDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// app is the wired process: the HTTP handler plus everything that must be
// released on shutdown.
type app struct {
	handler http.Handler
	closers []func() error
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() error {
	var errs []error
	for _, closeFn := range slices.Backward(a.closers) {
		errs = append(errs, closeFn())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	checks := make(map[string]httptransport.HealthCheck)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(serviceName)
	}

	var backend store.Backend
	switch cfg.StorageDriver {
	case config.StorageMemory:
		backend = memory.Open()
	default:
		storage, openErr := sqlite.OpenWithConfig(sqlite.DefaultConfig(cfg.SQLiteDSN), logger)
		if openErr != nil {
			return nil, fmt.Errorf("open storage: %w", openErr)
		}
		a.closers = append(a.closers, storage.Close)
		if err = storage.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		if m != nil {
			if err = m.RegisterDB(storage.DB(), "sqlite"); err != nil {
				return nil, fmt.Errorf("register db metrics: %w", err)
			}
		}
		checks["storage"] = storage.Ping
		backend = storage
	}

	var locker application.Locker
	switch cfg.LockDriver {
	case config.LockRedis:
		client, dialErr := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if dialErr != nil {
			return nil, dialErr
		}
		a.closers = append(a.closers, client.Close)
		checks["lock"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		locker = lock.NewRedisLocker(client, lock.RedisOptions{TTL: cfg.LockTTL, Logger: logger})
	default:
		locker = lock.NewMemoryLocker()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, dialErr := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue, logger)
		if dialErr != nil {
			return nil, fmt.Errorf("connect event broker: %w", dialErr)
		}
		publisher = amqpPublisher
	}
	a.closers = append(a.closers, publisher.Close)

	var recorder application.Recorder
	if m != nil {
		recorder = m
	}

	now := time.Now
	idGenerator := uuid.NewString
	resources := store.NewResources(backend, now)
	reservations := store.NewReservations(backend)

	availabilityService := application.NewAvailabilityServiceWithLogger(resources, reservations, application.AvailabilityOptions{
		MaxDays:  cfg.AvailabilityMaxDays,
		CacheTTL: cfg.AvailabilityCacheTTL,
		Recorder: recorder,
	}, now, logger)
	resourceService := application.NewResourceServiceWithLogger(resources, availabilityService, idGenerator, now, logger)
	bookingService := application.NewBookingService(application.BookingServiceDeps{
		Resources:    resources,
		Reservations: reservations,
		Locker:       locker,
		Events:       publisher,
		Recorder:     recorder,
		Invalidator:  availabilityService,
		Engine:       recurrence.NewEngine(time.UTC),
		IDGenerator:  idGenerator,
		Now:          now,
		Horizon:      cfg.RecurrenceHorizon,
		Logger:       logger,
	})

	middleware := []mux.MiddlewareFunc{
		httptransport.Recoverer(logger),
		httptransport.RequestLogger(logger),
	}
	routerCfg := httptransport.RouterConfig{
		Resources:    httptransport.NewResourceHandlerWithLogger(resourceService, logger),
		Availability: httptransport.NewAvailabilityHandlerWithLogger(availabilityService, logger),
		Bookings:     httptransport.NewBookingHandlerWithLogger(bookingService, logger),
		Health:       httptransport.NewHealthHandler(checks, logger),
	}
	if m != nil {
		middleware = append(middleware, m.Middleware())
		routerCfg.Metrics = m.Handler()
		routerCfg.MetricsPath = cfg.MetricsPath
	}
	routerCfg.Middleware = middleware

	router := httptransport.NewRouter(routerCfg)
	a.handler = http.TimeoutHandler(router, requestTimeout, `{"error_code":"TIMEOUT","message":"request timed out"}`)
	return a, nil
}
