package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

// BookingAPI is the minimal interface needed by the seat booking
// endpoints.
type BookingAPI interface {
	CreateBooking(ctx context.Context) (domain.Cart, error)
	GetBooking(ctx context.Context, id string) (domain.Cart, error)
	BookSeats(ctx context.Context, bookingID string, groups []app.SeatGroup) error
	ReleaseSeats(ctx context.Context, bookingID, sessionID string) error
	Checkout(ctx context.Context, in app.CheckoutInput) (domain.Order, error)
}

// HandleCreateBooking opens an empty booking.
func HandleCreateBooking(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking, err := svc.CreateBooking(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)
	}
}

// HandleGetBooking returns the booking with its seat line items.
func HandleGetBooking(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking, err := svc.GetBooking(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

type bookSeatsRequest struct {
	Groups []seatGroupRequest `json:"groups"`
}

type seatGroupRequest struct {
	SessionID string        `json:"session_id"`
	Seats     []domain.Seat `json:"seats"`
}

// HandleBookSeats reserves every requested seat group or none.
func HandleBookSeats(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := chi.URLParam(r, "id")

		var req bookSeatsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.Groups) == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "groups are required")
			return
		}

		groups := make([]app.SeatGroup, 0, len(req.Groups))
		for _, g := range req.Groups {
			groups = append(groups, app.SeatGroup{
				SessionID: g.SessionID,
				Seats:     g.Seats,
			})
		}

		if err := svc.BookSeats(r.Context(), bookingID, groups); err != nil {
			writeDomainError(w, err)
			return
		}

		booking, err := svc.GetBooking(r.Context(), bookingID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

// HandleReleaseSeats frees a session's seats from the booking.
func HandleReleaseSeats(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.ReleaseSeats(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleBookingCheckout turns the booking's seat holds into sold seats.
func HandleBookingCheckout(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		order, err := svc.Checkout(r.Context(), app.CheckoutInput{
			CartID:   chi.URLParam(r, "id"),
			Shipping: req.Shipping,
			Payment:  req.Payment,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	}
}
