package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouterConfig carries the services the router exposes.
type RouterConfig struct {
	Transfers TransferRunner
	Accounts  AccountService
	Carts     CartAPI
	Bookings  BookingAPI
	Catalog   CatalogAPI
	Theaters  TheaterAPI
	Sweeper   SweepRunner

	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter assembles the full HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", HandleHealth)

	r.Post("/accounts", HandleCreateAccount(cfg.Accounts))
	r.Get("/accounts/{id}", HandleGetAccount(cfg.Accounts))
	r.Post("/transfers", HandleTransfer(cfg.Transfers))
	r.Get("/transfers/{id}", HandleGetTransaction(cfg.Transfers))
	r.Post("/transfers/{id}/resume", HandleResumeTransfer(cfg.Transfers))

	r.Post("/carts", HandleCreateCart(cfg.Carts))
	r.Get("/carts/{id}", HandleGetCart(cfg.Carts))
	r.Post("/carts/{id}/items", HandleAddItems(cfg.Carts))
	r.Put("/carts/{id}/items/{resourceID}", HandleUpdateItem(cfg.Carts))
	r.Delete("/carts/{id}/items/{resourceID}", HandleRemoveItem(cfg.Carts))
	r.Post("/carts/{id}/checkout", HandleCheckout(cfg.Carts))

	r.Post("/bookings", HandleCreateBooking(cfg.Bookings))
	r.Get("/bookings/{id}", HandleGetBooking(cfg.Bookings))
	r.Post("/bookings/{id}/seats", HandleBookSeats(cfg.Bookings))
	r.Delete("/bookings/{id}/seats/{sessionID}", HandleReleaseSeats(cfg.Bookings))
	r.Post("/bookings/{id}/checkout", HandleBookingCheckout(cfg.Bookings))

	r.Get("/sessions/{id}", HandleGetSession(cfg.Theaters))

	r.Route("/admin", func(r chi.Router) {
		r.Post("/items", HandleCreateItem(cfg.Catalog))
		r.Get("/items/{id}", HandleGetItem(cfg.Catalog))
		r.Post("/theaters", HandleCreateTheater(cfg.Theaters))
		r.Post("/sessions", HandleCreateSession(cfg.Theaters))
		r.Post("/sweep", HandleSweep(cfg.Sweeper))
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})

	return RequestLogger(CORS(cfg.CORSOrigins, r), cfg.Logger)
}
