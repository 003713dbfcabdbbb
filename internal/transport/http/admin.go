package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

// CatalogAPI is the minimal interface needed to manage inventory items.
type CatalogAPI interface {
	CreateItem(ctx context.Context, in app.CreateItemInput) (domain.InventoryItem, error)
	GetItem(ctx context.Context, id string) (domain.InventoryItem, error)
}

// TheaterAPI is the minimal interface needed to manage theaters and
// sessions.
type TheaterAPI interface {
	CreateTheater(ctx context.Context, in app.CreateTheaterInput) (domain.Theater, error)
	GetTheater(ctx context.Context, id string) (domain.Theater, error)
	CreateSession(ctx context.Context, in app.CreateSessionInput) (domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
}

// SweepRunner triggers one reclamation pass.
type SweepRunner interface {
	Sweep(ctx context.Context) (int, error)
}

type createItemRequest struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// HandleCreateItem registers an inventory item.
func HandleCreateItem(svc CatalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		item, err := svc.CreateItem(r.Context(), app.CreateItemInput{
			ID:       req.ID,
			Quantity: req.Quantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// HandleGetItem returns an item with its availability and open holds.
func HandleGetItem(svc CatalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.GetItem(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

type createTheaterRequest struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// HandleCreateTheater registers a theater seat plan.
func HandleCreateTheater(svc TheaterAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTheaterRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		theater, err := svc.CreateTheater(r.Context(), app.CreateTheaterInput{
			Name: req.Name,
			Rows: req.Rows,
			Cols: req.Cols,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, theater)
	}
}

type createSessionRequest struct {
	TheaterID string `json:"theater_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}

// HandleCreateSession opens a session over a theater's seat plan.
func HandleCreateSession(svc TheaterAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		session, err := svc.CreateSession(r.Context(), app.CreateSessionInput{
			TheaterID: req.TheaterID,
			Name:      req.Name,
			Price:     req.Price,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

// HandleGetSession returns a session with its seat map.
func HandleGetSession(svc TheaterAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

type sweepResponse struct {
	Released int `json:"released"`
}

// HandleSweep runs one reclamation pass and reports how many holds it
// released.
func HandleSweep(svc SweepRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		released, err := svc.Sweep(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sweepResponse{Released: released})
	}
}
