package server

import (
	"net/http"

	"ticket-marketplace/internal/handlers"
	"ticket-marketplace/internal/middleware"
	"ticket-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

// Dependencies is everything the HTTP layer needs
type Dependencies struct {
	Logger       *logrus.Entry
	SessionStore sessions.Store
	DB           handlers.Pinger

	Catalog     services.CatalogServiceInterface
	Selections  *services.SelectionService
	Cart        *services.CartService
	Checkout    *services.CheckoutService
	Ledger      *services.LedgerService
	QRCodec     *services.QRCodec
	RateLimiter *middleware.CheckoutRateLimiter

	AllowedOrigins []string
	TrustProxy     bool
}

// NewRouter builds the JSON API router
func NewRouter(deps Dependencies) http.Handler {
	sessionMiddleware := middleware.NewSessionMiddleware(deps.SessionStore, deps.Logger)

	healthHandler := handlers.NewHealthHandler(deps.DB)
	eventHandler := handlers.NewEventHandler(deps.Catalog)
	selectionHandler := handlers.NewSelectionHandler(deps.Selections, deps.Cart)
	cartHandler := handlers.NewCartHandler(deps.Cart)
	checkoutHandler := handlers.NewCheckoutHandler(deps.Checkout)
	ticketHandler := handlers.NewTicketHandler(deps.Ledger, deps.Catalog, deps.QRCodec)

	r := chi.NewRouter()

	if deps.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(deps.AllowedOrigins)))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/healthz", healthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.Handler)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", eventHandler.Get)
				r.Post("/views", selectionHandler.Open)
				r.Get("/buyers", ticketHandler.Buyers)
			})
		})

		r.Route("/views/{viewID}", func(r chi.Router) {
			r.Get("/", selectionHandler.Get)
			r.Delete("/", selectionHandler.Close)
			r.Post("/increment", selectionHandler.Increment)
			r.Post("/decrement", selectionHandler.Decrement)
			r.Post("/cart", selectionHandler.AddToCart)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{eventID}/{ticketTypeID}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(middleware.CheckoutRateLimit(deps.RateLimiter))
			}
			r.Post("/", checkoutHandler.Checkout)
			r.Get("/", checkoutHandler.Status)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", ticketHandler.ListMine)
			r.Route("/{ticketID}", func(r chi.Router) {
				r.Get("/", ticketHandler.Get)
				r.Get("/qr.png", ticketHandler.QRCode)
				r.Post("/validate", ticketHandler.Validate)
			})
		})

		r.Post("/checkins", ticketHandler.CheckIn)
	})

	return r
}
