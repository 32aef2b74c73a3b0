package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/gad-tramites/internal/tracking"
	"go.uber.org/zap"
)

type Tracker interface {
	TrackByFolio(ctx context.Context, folio, document string) (*tracking.View, error)
}

type TrackingHandler struct {
	tracker Tracker
	logger  *zap.Logger
}

func NewTrackingHandler(t Tracker, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: t, logger: logger.Named("tracking")}
}

// Track GET /v1/tracking/{folio}?document=
func (h *TrackingHandler) Track(w http.ResponseWriter, r *http.Request) {
	view, err := h.tracker.TrackByFolio(r.Context(), chi.URLParam(r, "folio"), r.URL.Query().Get("document"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}
