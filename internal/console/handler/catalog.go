package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"go.uber.org/zap"
)

type CatalogService interface {
	List(ctx context.Context, activeOnly bool) ([]*domain.ProcedureDefinition, error)
	Get(ctx context.Context, id string) (*domain.ProcedureDefinition, error)
	Upsert(ctx context.Context, def *domain.ProcedureDefinition) (*domain.ProcedureDefinition, error)
}

type CatalogHandler struct {
	service CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(s CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{service: s, logger: logger.Named("catalog")}
}

// List GET /v1/catalog — только активные процедуры.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.List(r.Context(), true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	def, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// Put PUT /v1/catalog/{id} — создание или изменение записи (catalog:write).
func (h *CatalogHandler) Put(w http.ResponseWriter, r *http.Request) {
	var def domain.ProcedureDefinition
	if err := decode(r, &def); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	def.ID = chi.URLParam(r, "id")

	saved, err := h.service.Upsert(r.Context(), &def)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
