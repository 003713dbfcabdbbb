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

func TestHandleTransfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		txnID          string
		txn            domain.Transaction
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"from_id":"alice","to_id":"bob","amount":100}`,
			txnID:          "txn-1",
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"transaction_id":"txn-1"`,
		},
		{
			name:           "invalid json",
			body:           `{"from_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid amount",
			body:           `{"from_id":"alice","to_id":"bob","amount":0}`,
			serviceErr:     domain.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "same account",
			body:           `{"from_id":"alice","to_id":"alice","amount":10}`,
			serviceErr:     domain.ErrSameAccount,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "insufficient funds keeps transaction id",
			body:           `{"from_id":"alice","to_id":"bob","amount":100}`,
			txnID:          "txn-2",
			txn:            domain.Transaction{ID: "txn-2", State: domain.TxCanceled},
			serviceErr:     domain.ErrInsufficientResource,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"transaction_id":"txn-2"`,
		},
		{
			name:           "failure past commitment reports the committed record",
			body:           `{"from_id":"alice","to_id":"bob","amount":100}`,
			txnID:          "txn-3",
			txn:            domain.Transaction{ID: "txn-3", State: domain.TxCommitted},
			serviceErr:     errors.New("clear source tag: connection reset"),
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"state":"committed"`,
		},
		{
			name:           "account not found",
			body:           `{"from_id":"ghost","to_id":"bob","amount":100}`,
			serviceErr:     domain.ErrAccountNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			body:           `{"from_id":"alice","to_id":"bob","amount":100}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubTransferService{txnID: tt.txnID, err: tt.serviceErr, txn: tt.txn}
			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleTransfer(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleResumeTransfer(t *testing.T) {
	t.Parallel()

	t.Run("resumes and reports the final state", func(t *testing.T) {
		svc := &stubTransferService{
			txn: domain.Transaction{ID: "txn-1", State: domain.TxDone},
		}
		router := chi.NewRouter()
		router.Post("/transfers/{id}/resume", HandleResumeTransfer(svc))

		req := httptest.NewRequest(http.MethodPost, "/transfers/txn-1/resume", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"state":"done"`) {
			t.Fatalf("expected done state, got %q", rec.Body.String())
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		svc := &stubTransferService{resumeErr: domain.ErrTransactionNotFound}
		router := chi.NewRouter()
		router.Post("/transfers/{id}/resume", HandleResumeTransfer(svc))

		req := httptest.NewRequest(http.MethodPost, "/transfers/nope/resume", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

type stubTransferService struct {
	txnID     string
	err       error
	resumeErr error
	txn       domain.Transaction
}

func (s *stubTransferService) Transfer(_ context.Context, _ app.TransferInput) (string, error) {
	return s.txnID, s.err
}

func (s *stubTransferService) Resume(_ context.Context, _ string) error {
	return s.resumeErr
}

func (s *stubTransferService) GetTransaction(_ context.Context, _ string) (domain.Transaction, error) {
	if s.txn.ID == "" {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return s.txn, nil
}
