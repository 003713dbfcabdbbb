package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

// AccountService is the minimal interface needed by the account
// endpoints.
type AccountService interface {
	CreateAccount(ctx context.Context, in app.CreateAccountInput) (domain.Account, error)
	GetAccount(ctx context.Context, id string) (domain.Account, error)
}

type createAccountRequest struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

// HandleCreateAccount registers a ledger account.
func HandleCreateAccount(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAccountRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		account, err := svc.CreateAccount(r.Context(), app.CreateAccountInput{
			ID:      req.ID,
			Balance: req.Balance,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	}
}

// HandleGetAccount returns an account with its balance and pending tags.
func HandleGetAccount(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := svc.GetAccount(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}
