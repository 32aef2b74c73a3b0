package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/gad-tramites/internal/domain"
	"go.uber.org/zap"
)

// ErrorResponse — единый формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: msg})
}

// writeError переводит доменные ошибки в HTTP статусы.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	resp := ErrorResponse{Message: err.Error()}
	var status int

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, resp.Error = http.StatusUnprocessableEntity, "validation_failed"
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			resp.Field = ve.Field
		}
		if errors.Is(err, domain.ErrPaymentNotRequired) {
			resp.Error = "payment_not_required"
		}
	case errors.Is(err, domain.ErrNotFound):
		status, resp.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, resp.Error = http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrStateConflict):
		status, resp.Error = http.StatusConflict, "state_conflict"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		status, resp.Error = http.StatusConflict, "concurrent_modification"
	case errors.Is(err, domain.ErrRenderFailure):
		status, resp.Error = http.StatusBadGateway, "render_failed"
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, resp.Error = http.StatusUnauthorized, "invalid_credentials"
	default:
		// Детали инфраструктурных ошибок наружу не отдаем
		logger.Error("request failed", zap.Error(err))
		status, resp.Error, resp.Message = http.StatusInternalServerError, "internal", "internal error"
	}
	writeJSON(w, status, resp)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
