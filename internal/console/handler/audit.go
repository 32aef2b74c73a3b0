package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/gad-tramites/internal/audit"
	"go.uber.org/zap"
)

type AuditService interface {
	FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Event, error)
}

type AuditHandler struct {
	service AuditService
	logger  *zap.Logger
}

func NewAuditHandler(s AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger.Named("audit")}
}

// GetLogs возвращает события журнала с фильтрацией
// GET /v1/audit?instance_id=...&actor=...&limit=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		badRequest(w, "limit must be a number")
		return
	}

	logs, err := h.service.FetchLogs(r.Context(), audit.Filter{
		InstanceID: q.Get("instance_id"),
		Actor:      q.Get("actor"),
		Limit:      limit,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
