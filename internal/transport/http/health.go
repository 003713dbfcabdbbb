package http

import (
	stdhttp "net/http"
)

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth reports basic liveness for the service.
func HandleHealth(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, healthResponse{Status: "ok"})
}
