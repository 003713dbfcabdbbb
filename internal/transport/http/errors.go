package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidAmount        = "invalid_amount"
	codeInvalidSeat          = "invalid_seat"
	codeSameAccount          = "same_account"
	codeInsufficientResource = "insufficient_resource"
	codeDuplicateHold        = "duplicate_hold"
	codeReservationFailed    = "reservation_failed"
	codeStaleState           = "stale_state"
	codeAccountNotFound      = "account_not_found"
	codeTransactionNotFound  = "transaction_not_found"
	codeResourceNotFound     = "resource_not_found"
	codeResourceExists       = "resource_exists"
	codeTheaterNotFound      = "theater_not_found"
	codeSessionNotFound      = "session_not_found"
	codeCartNotFound         = "cart_not_found"
	codeCartNotActive        = "cart_not_active"
	codeCartEmpty            = "cart_empty"
	codeItemNotFound         = "item_not_found"
	codeOrderNotFound        = "order_not_found"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps service errors onto status codes. Conflicts of
// capacity and concurrency are 409; everything unmapped is a 500 with
// the detail kept out of the response.
func writeDomainError(w http.ResponseWriter, err error) {
	var partial *app.PartialFailure
	if errors.As(err, &partial) {
		writeError(w, http.StatusConflict, codeReservationFailed, partial.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrInvalidSeat):
		writeError(w, http.StatusBadRequest, codeInvalidSeat, err.Error())
	case errors.Is(err, domain.ErrSameAccount):
		writeError(w, http.StatusBadRequest, codeSameAccount, err.Error())
	case errors.Is(err, domain.ErrInsufficientResource):
		writeError(w, http.StatusConflict, codeInsufficientResource, err.Error())
	case errors.Is(err, domain.ErrDuplicateHold):
		writeError(w, http.StatusConflict, codeDuplicateHold, err.Error())
	case errors.Is(err, domain.ErrStaleState):
		writeError(w, http.StatusConflict, codeStaleState, err.Error())
	case errors.Is(err, domain.ErrCartNotActive):
		writeError(w, http.StatusConflict, codeCartNotActive, err.Error())
	case errors.Is(err, domain.ErrCartEmpty):
		writeError(w, http.StatusConflict, codeCartEmpty, err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, codeAccountNotFound, err.Error())
	case errors.Is(err, domain.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, codeTransactionNotFound, err.Error())
	case errors.Is(err, domain.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case errors.Is(err, domain.ErrTheaterNotFound):
		writeError(w, http.StatusNotFound, codeTheaterNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, codeSessionNotFound, err.Error())
	case errors.Is(err, domain.ErrCartNotFound):
		writeError(w, http.StatusNotFound, codeCartNotFound, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrResourceExists):
		writeError(w, http.StatusConflict, codeResourceExists, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}
