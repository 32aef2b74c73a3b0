package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/gad-tramites/internal/console/handler"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/infra/auth"
	"go.uber.org/zap"
)

// Server — HTTP API портала: публичный поток гражданина, отслеживание и консоль сотрудников.
type Server struct {
	router *chi.Mux
	logger *zap.Logger

	// Проверка токенов сотрудников (RS256)
	authValidator auth.TokenValidator

	authHandler     *handler.AuthHandler      // /auth/token
	catalogHandler  *handler.CatalogHandler   // /v1/catalog
	tramiteHandler  *handler.TramiteHandler   // /v1/tramites, /v1/inbox
	trackingHandler *handler.TrackingHandler  // /v1/tracking
	dashHandler     *handler.DashboardHandler // /api/v1/dashboard
	auditHandler    *handler.AuditHandler     // /v1/audit
}

func NewServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	catalogH *handler.CatalogHandler,
	tramiteH *handler.TramiteHandler,
	trackingH *handler.TrackingHandler,
	dashH *handler.DashboardHandler,
	auditH *handler.AuditHandler,
) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		logger:          logger.Named("portal-api"),
		authValidator:   validator,
		authHandler:     authH,
		catalogHandler:  catalogH,
		tramiteHandler:  tramiteH,
		trackingHandler: trackingH,
		dashHandler:     dashH,
		auditHandler:    auditH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (гражданин и отслеживание) ---
	r.Group(func(r chi.Router) {
		r.Post("/auth/token", s.authHandler.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Get("/v1/catalog", s.catalogHandler.List)
		r.Get("/v1/catalog/{id}", s.catalogHandler.Get)

		r.Post("/v1/tramites", s.tramiteHandler.CreateDraft)
		r.Post("/v1/tramites/{id}/attachments", s.tramiteHandler.AddAttachment)
		r.Post("/v1/tramites/{id}/submit", s.tramiteHandler.Submit)

		r.Get("/v1/tracking/{folio}", s.trackingHandler.Track)
	})

	// --- 3. КОНСОЛЬ СОТРУДНИКОВ (RS256 токен + scopes) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		r.Get("/api/v1/dashboard/stats", s.dashHandler.GetStats)
		r.Get("/v1/inbox", s.tramiteHandler.Inbox)
		r.Get("/v1/tramites/{id}", s.tramiteHandler.Get)

		review := r.With(auth.RequireScope(domain.ScopeReview))
		review.Post("/v1/tramites/{id}/observe", s.tramiteHandler.Observe)
		review.Post("/v1/tramites/{id}/approve", s.tramiteHandler.Approve)
		review.Post("/v1/tramites/{id}/reject", s.tramiteHandler.Reject)

		r.With(auth.RequireScope(domain.ScopeCashier)).Post("/v1/tramites/{id}/payment", s.tramiteHandler.RegisterPayment)
		r.With(auth.RequireScope(domain.ScopeDeliver)).Post("/v1/tramites/{id}/deliver", s.tramiteHandler.Deliver)

		r.With(auth.RequireScope(domain.ScopeCatalog)).Put("/v1/catalog/{id}", s.catalogHandler.Put)
		r.With(auth.RequireScope(domain.ScopeAuditLog)).Get("/v1/audit", s.auditHandler.GetLogs)
	})
}

// requestLogger — access log через zap вместо стандартного логгера chi.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()))
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
