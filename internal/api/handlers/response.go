package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nehallsharma/roaster-management/internal/infrastructure/observability"
	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps an error chain onto an HTTP status. Only
// client-caused messages are echoed back.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	switch {
	case appErr.Type == apperrors.ErrorTypeNotFound:
		status, message = http.StatusNotFound, appErr.Message
	case appErr.IsClientError():
		status, message = http.StatusBadRequest, appErr.Message
	case appErr.Type == apperrors.ErrorTypeExternal:
		status, message = http.StatusBadGateway, "upstream dependency failed"
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondWithJSON(w, status, errorResponse{Error: message, Type: string(appErr.Type)})
}
