package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/gad-tramites/internal/attachment"
	"github.com/xela07ax/gad-tramites/internal/console/service"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/infra/auth"
	"github.com/xela07ax/gad-tramites/internal/render"
	"go.uber.org/zap"
)

// WorkflowEngine — операции ядра, доступные через HTTP.
type WorkflowEngine interface {
	CreateDraft(ctx context.Context, definitionID string, citizen domain.Citizen, motive string) (*domain.ProcedureInstance, error)
	AddAttachment(ctx context.Context, id string, f attachment.File) (*domain.Attachment, error)
	Submit(ctx context.Context, id string) (*domain.ProcedureInstance, error)
	Observe(ctx context.Context, id, actor, note string) (*domain.ProcedureInstance, error)
	Approve(ctx context.Context, id, actor, comment string) (*domain.ProcedureInstance, error)
	Reject(ctx context.Context, id, actor, note string) (*domain.ProcedureInstance, error)
	RegisterPayment(ctx context.Context, id, actor, code, receiptRef string) (*domain.ProcedureInstance, error)
	Deliver(ctx context.Context, id, actor string) (*domain.ProcedureInstance, *render.Document, error)
}

type InboxService interface {
	List(ctx context.Context, f domain.InstanceFilter) (*service.Page, error)
	Get(ctx context.Context, id string) (*domain.ProcedureInstance, error)
}

type TramiteHandler struct {
	engine WorkflowEngine
	inbox  InboxService
	logger *zap.Logger
}

func NewTramiteHandler(engine WorkflowEngine, inbox InboxService, logger *zap.Logger) *TramiteHandler {
	return &TramiteHandler{engine: engine, inbox: inbox, logger: logger.Named("tramites")}
}

type CreateDraftRequest struct {
	DefinitionID string         `json:"definition_id"`
	Citizen      domain.Citizen `json:"citizen"`
	Motive       string         `json:"motive"`
}

// CreateDraft POST /v1/tramites
func (h *TramiteHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	inst, err := h.engine.CreateDraft(r.Context(), req.DefinitionID, req.Citizen, req.Motive)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

// AddAttachment POST /v1/tramites/{id}/attachments
func (h *TramiteHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	var f attachment.File
	if err := decode(r, &f); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	a, err := h.engine.AddAttachment(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Submit POST /v1/tramites/{id}/submit
func (h *TramiteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.engine.Submit(r.Context(), chi.URLParam(r, "id")))
}

type NoteRequest struct {
	Note    string `json:"note"`
	Comment string `json:"comment"`
}

// Observe POST /v1/tramites/{id}/observe
func (h *TramiteHandler) Observe(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	h.respond(w)(h.engine.Observe(r.Context(), chi.URLParam(r, "id"), auth.Actor(r.Context()), req.Note))
}

// Approve POST /v1/tramites/{id}/approve (тело необязательно)
func (h *TramiteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid request body")
		return
	}
	h.respond(w)(h.engine.Approve(r.Context(), chi.URLParam(r, "id"), auth.Actor(r.Context()), req.Comment))
}

// Reject POST /v1/tramites/{id}/reject
func (h *TramiteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	h.respond(w)(h.engine.Reject(r.Context(), chi.URLParam(r, "id"), auth.Actor(r.Context()), req.Note))
}

type PaymentRequest struct {
	Code       string `json:"code"`
	ReceiptRef string `json:"receipt_ref"`
}

// RegisterPayment POST /v1/tramites/{id}/payment
func (h *TramiteHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	h.respond(w)(h.engine.RegisterPayment(r.Context(), chi.URLParam(r, "id"), auth.Actor(r.Context()), req.Code, req.ReceiptRef))
}

// Deliver POST /v1/tramites/{id}/deliver — отдает выпущенный документ.
func (h *TramiteHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	inst, doc, err := h.engine.Deliver(r.Context(), chi.URLParam(r, "id"), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("X-Folio", inst.FolioValue())
	w.Header().Set("X-Tramite-State", string(inst.State))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		h.logger.Warn("document write interrupted", zap.String("instance_id", inst.ID), zap.Error(err))
	}
}

// Get GET /v1/tramites/{id} — полная карточка для сотрудника.
func (h *TramiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.inbox.Get(r.Context(), chi.URLParam(r, "id")))
}

// Inbox GET /v1/inbox?state=&definition_id=&limit=&offset=
func (h *TramiteHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := domain.ParseState(q.Get("state"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	f := domain.InstanceFilter{State: st, DefinitionID: q.Get("definition_id")}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		badRequest(w, "limit must be a number")
		return
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		badRequest(w, "offset must be a number")
		return
	}

	page, err := h.inbox.List(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *TramiteHandler) respond(w http.ResponseWriter) func(*domain.ProcedureInstance, error) {
	return func(inst *domain.ProcedureInstance, err error) {
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, inst)
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
