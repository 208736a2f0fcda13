package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sewain/backend/internal/rental"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the business error taxonomy to HTTP status codes.
// Anything outside the taxonomy is a storage or programming failure and is
// logged, with a generic 500 returned so internals do not leak to clients.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rental.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rental.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rental.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rental.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
