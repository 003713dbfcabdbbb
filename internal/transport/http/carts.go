package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

// CartAPI is the minimal interface needed by the cart endpoints.
type CartAPI interface {
	Create(ctx context.Context) (domain.Cart, error)
	Get(ctx context.Context, id string) (domain.Cart, error)
	AddItem(ctx context.Context, in app.AddItemInput) error
	AddItems(ctx context.Context, cartID string, items []domain.LineItem) error
	UpdateItem(ctx context.Context, in app.UpdateItemInput) error
	RemoveItem(ctx context.Context, cartID, resourceID string) error
	Checkout(ctx context.Context, in app.CheckoutInput) (domain.Order, error)
}

// HandleCreateCart opens an empty active cart.
func HandleCreateCart(svc CartAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := svc.Create(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, cart)
	}
}

// HandleGetCart returns the cart with its line items.
func HandleGetCart(svc CartAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)
	}
}

type addItemsRequest struct {
	Items []lineItemRequest `json:"items"`
}

type lineItemRequest struct {
	ResourceID string `json:"resource_id"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	Price      int64  `json:"price"`
}

// HandleAddItems reserves and records one or more line items. A single
// item goes through the plain path; multiple items are all-or-nothing.
func HandleAddItems(svc CartAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID := chi.URLParam(r, "id")

		var req addItemsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "items are required")
			return
		}

		items := make([]domain.LineItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, domain.LineItem{
				ResourceID: it.ResourceID,
				Name:       it.Name,
				Quantity:   it.Quantity,
				Price:      it.Price,
			})
		}

		var err error
		if len(items) == 1 {
			err = svc.AddItem(r.Context(), app.AddItemInput{CartID: cartID, Item: items[0]})
		} else {
			err = svc.AddItems(r.Context(), cartID, items)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		cart, err := svc.Get(r.Context(), cartID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)
	}
}

type updateItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// HandleUpdateItem changes a line item's quantity.
func HandleUpdateItem(svc CartAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateItemRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		err := svc.UpdateItem(r.Context(), app.UpdateItemInput{
			CartID:     chi.URLParam(r, "id"),
			ResourceID: chi.URLParam(r, "resourceID"),
			Quantity:   req.Quantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRemoveItem releases the item's hold and drops the line item.
func HandleRemoveItem(svc CartAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "resourceID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type checkoutRequest struct {
	Shipping domain.Shipping `json:"shipping"`
	Payment  domain.Payment  `json:"payment"`
}

// HandleCheckout turns the cart into an order.
func HandleCheckout(svc CartAPI) http.HandlerFunc {
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
