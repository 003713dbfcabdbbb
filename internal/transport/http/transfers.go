package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

// TransferRunner is the minimal interface needed by the transfer
// endpoints.
type TransferRunner interface {
	Transfer(ctx context.Context, in app.TransferInput) (string, error)
	Resume(ctx context.Context, txnID string) error
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)
}

type transferRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Amount int64  `json:"amount"`
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	State         string `json:"state,omitempty"`
	Error         string `json:"error,omitempty"`
}

// HandleTransfer runs a transfer. A failed transfer that produced a
// transaction record still returns its id and the record's durable
// state: usually canceled, but committed when the failure struck after
// the point of no return and the funds have moved.
func HandleTransfer(svc TransferRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		txnID, err := svc.Transfer(r.Context(), app.TransferInput{
			FromID: req.FromID,
			ToID:   req.ToID,
			Amount: req.Amount,
		})
		if err != nil {
			if txnID == "" {
				writeDomainError(w, err)
				return
			}
			state := string(domain.TxCanceled)
			if txn, getErr := svc.GetTransaction(r.Context(), txnID); getErr == nil {
				state = string(txn.State)
			}
			writeJSON(w, http.StatusConflict, transferResponse{
				TransactionID: txnID,
				State:         state,
				Error:         err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusCreated, transferResponse{
			TransactionID: txnID,
			State:         string(domain.TxDone),
		})
	}
}

// HandleResumeTransfer continues a transfer from its stored state.
func HandleResumeTransfer(svc TransferRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID := chi.URLParam(r, "id")

		if err := svc.Resume(r.Context(), txnID); err != nil {
			writeDomainError(w, err)
			return
		}

		txn, err := svc.GetTransaction(r.Context(), txnID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transferResponse{
			TransactionID: txn.ID,
			State:         string(txn.State),
		})
	}
}

// HandleGetTransaction returns the durable transaction record.
func HandleGetTransaction(svc TransferRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txn, err := svc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, txn)
	}
}
