package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ticket-marketplace/internal/config"
	"ticket-marketplace/internal/database"
	"ticket-marketplace/internal/logging"
	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/repositories"
	"ticket-marketplace/internal/services"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	consumerGroup   = "ticket-marketplace"
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

// App owns the long-lived resources of a running server
type App struct {
	logger      *logrus.Entry
	db          *database.DB
	redis       *redis.Client
	pubSub      *services.PubSub
	router      *message.Router
	selections  *services.SelectionService
	rateLimiter *middleware.CheckoutRateLimiter
	server      *http.Server
}

// New connects every backing service described by cfg and assembles the HTTP server
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	entry := logrus.NewEntry(logger)
	app := &App{logger: entry}

	db, err := database.NewConnection(database.Config{
		Driver:   cfg.Database.Driver,
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := db.RunMigrations(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var cartStore services.CartStore = services.NewMemoryCartStore()
	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cartStore = services.NewRedisCartStore(app.redis, cfg.Redis.CartTTL)
		entry.WithField("addr", cfg.Redis.Addr).Info("Using redis cart store and event stream")
	}

	app.pubSub, err = services.NewPubSub(app.redis, consumerGroup, logging.NewWatermillAdapter(entry.WithField("component", "events")))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.router, err = services.NewAuditRouter(app.pubSub.Subscriber, entry.WithField("component", "audit"))
	if err != nil {
		app.Close()
		return nil, err
	}

	catalog := services.NewCatalogService(catalogProvider(cfg), entry.WithField("component", "catalog"))
	result, err := catalog.Load(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(result.Rejected) > 0 {
		entry.WithField("rejected", len(result.Rejected)).Warn("Catalog records rejected")
	}

	codec, err := services.NewQRCodec(cfg.QR.Secret, cfg.QR.Size)
	if err != nil {
		app.Close()
		return nil, err
	}

	var checkIn services.CheckInClient
	if cfg.Checkout.CheckInURL != "" {
		checkIn = services.NewHTTPCheckInClient(cfg.Checkout.CheckInURL, cfg.Checkout.APIKey, cfg.Checkout.Timeout)
	}

	publisher := services.NewEventBus(app.pubSub.Publisher)
	ledgerRepo := repositories.NewLedgerRepository(db.DB)
	backend := services.NewCheckoutBackend(cfg.Checkout.BackendURL, cfg.Checkout.APIKey, cfg.Checkout.Timeout, entry)

	app.selections = services.NewSelectionService(catalog, cfg.Server.SelectionTTL)
	cart := services.NewCartService(cartStore, catalog, entry.WithField("component", "cart"))
	checkout := services.NewCheckoutService(cart, catalog, backend, ledgerRepo, codec, publisher, entry.WithField("component", "checkout"))
	ledger := services.NewLedgerService(ledgerRepo, codec, checkIn, publisher, entry.WithField("component", "ledger"))

	if cfg.Checkout.RateLimit > 0 {
		app.rateLimiter = middleware.NewCheckoutRateLimiter(cfg.Checkout.RateLimit, cfg.Checkout.RateLimitWindow)
	}

	handler := NewRouter(Dependencies{
		Logger:         entry,
		SessionStore:   newSessionStore(cfg),
		DB:             db,
		Catalog:        catalog,
		Selections:     app.selections,
		Cart:           cart,
		Checkout:       checkout,
		Ledger:         ledger,
		QRCodec:        codec,
		RateLimiter:    app.rateLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
	})

	app.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// Run serves HTTP and consumes domain events until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	errgrp, ctx := errgroup.WithContext(ctx)

	errgrp.Go(func() error {
		return a.router.Run(ctx)
	})

	errgrp.Go(func() error {
		// Don't accept checkouts before the audit consumer is ready
		select {
		case <-a.router.Running():
		case <-ctx.Done():
			return nil
		}

		a.logger.WithField("addr", a.server.Addr).Info("HTTP server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	errgrp.Go(func() error {
		a.selections.RunJanitor(ctx, janitorInterval)
		return nil
	})

	errgrp.Go(func() error {
		<-ctx.Done()
		return a.router.Close()
	})

	errgrp.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down HTTP server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := errgrp.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases every resource opened by New
func (a *App) Close() error {
	var errs []error

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	if a.router != nil {
		if err := a.router.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.pubSub != nil {
		if err := a.pubSub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func catalogProvider(cfg *config.Config) services.CatalogProvider {
	if cfg.Catalog.ProviderURL != "" {
		return services.NewRemoteCatalogProvider(cfg.Catalog.ProviderURL, cfg.Checkout.APIKey, cfg.Checkout.Timeout)
	}
	return services.NewFileCatalogProvider(cfg.Catalog.File)
}

func newSessionStore(cfg *config.Config) sessions.Store {
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
