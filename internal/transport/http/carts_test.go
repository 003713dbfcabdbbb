package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

func TestHandleAddItems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "single item",
			body:           `{"items":[{"resource_id":"sku-1","name":"widget","quantity":2,"price":100}]}`,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"id":"cart-1"`,
		},
		{
			name:           "multiple items",
			body:           `{"items":[{"resource_id":"a","quantity":1,"price":5},{"resource_id":"b","quantity":2,"price":5}]}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid json",
			body:           `{"items":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty items",
			body:           `{"items":[]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "insufficient",
			body:           `{"items":[{"resource_id":"sku-1","quantity":99,"price":100}]}`,
			serviceErr:     domain.ErrInsufficientResource,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "partial failure",
			body:           `{"items":[{"resource_id":"a","quantity":1},{"resource_id":"b","quantity":9}]}`,
			serviceErr:     &app.PartialFailure{Failed: []app.FailedRequest{{Request: app.ReserveRequest{ResourceID: "b"}, Err: domain.ErrInsufficientResource}}},
			expectedStatus: http.StatusConflict,
			expectedSubstr: `reservation failed for b`,
		},
		{
			name:           "cart not active",
			body:           `{"items":[{"resource_id":"sku-1","quantity":1}]}`,
			serviceErr:     domain.ErrCartNotActive,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "cart not found",
			body:           `{"items":[{"resource_id":"sku-1","quantity":1}]}`,
			serviceErr:     domain.ErrCartNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCartService{
				cart: domain.Cart{ID: "cart-1", State: domain.CartActive, Items: []domain.LineItem{}},
				err:  tt.serviceErr,
			}
			router := chi.NewRouter()
			router.Post("/carts/{id}/items", HandleAddItems(svc))

			req := httptest.NewRequest(http.MethodPost, "/carts/cart-1/items", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleCheckout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"total":200`,
		},
		{
			name:           "empty cart",
			serviceErr:     domain.ErrCartEmpty,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "already completed",
			serviceErr:     domain.ErrCartNotActive,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing cart",
			serviceErr:     domain.ErrCartNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCartService{
				order: domain.Order{ID: "order-1", CartID: "cart-1", Total: 200},
				err:   tt.serviceErr,
			}
			router := chi.NewRouter()
			router.Post("/carts/{id}/checkout", HandleCheckout(svc))

			body := `{"shipping":{"name":"A","address":"B"},"payment":{"method":"card"}}`
			req := httptest.NewRequest(http.MethodPost, "/carts/cart-1/checkout", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestRouterNotFound(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), codeNotFound) {
		t.Fatalf("expected JSON error body, got %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}
}

type stubCartService struct {
	cart  domain.Cart
	order domain.Order
	err   error
}

func (s *stubCartService) Create(_ context.Context) (domain.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) Get(_ context.Context, _ string) (domain.Cart, error) {
	return s.cart, nil
}

func (s *stubCartService) AddItem(_ context.Context, _ app.AddItemInput) error {
	return s.err
}

func (s *stubCartService) AddItems(_ context.Context, _ string, _ []domain.LineItem) error {
	return s.err
}

func (s *stubCartService) UpdateItem(_ context.Context, _ app.UpdateItemInput) error {
	return s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _, _ string) error {
	return s.err
}

func (s *stubCartService) Checkout(_ context.Context, _ app.CheckoutInput) (domain.Order, error) {
	return s.order, s.err
}
