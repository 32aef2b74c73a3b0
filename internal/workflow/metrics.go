package workflow

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

type Metrics struct {
	// Traffic: переходы по действиям и результату
	TransitionsTotal *prometheus.CounterVec

	// Latency: время перехода (включая хранилище)
	TransitionDuration *prometheus.HistogramVec

	// Latency внешнего рендера документов
	RenderDuration *prometheus.HistogramVec

	FoliosIssued prometheus.Counter

	// Saturation: проигравшие гонку писатели
	ConcurrencyConflicts prometheus.Counter

	// Journal: заполненность буфера (backpressure)
	JournalBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		TransitionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tramites_transitions_total",
			Help: "Total number of workflow actions by result.",
		}, []string{"action", "result"}),

		TransitionDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tramites_transition_duration_seconds",
			Help:    "Histogram of workflow action latencies.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"action"}),

		RenderDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tramites_render_duration_seconds",
			Help:    "Histogram of document render latencies.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"result"}),

		FoliosIssued: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "tramites_folios_issued_total",
			Help: "Total number of folios issued at submission.",
		}),

		ConcurrencyConflicts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "tramites_concurrency_conflicts_total",
			Help: "Total number of writes rejected by version compare-and-set.",
		}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "tramites_journal_buffer_events",
			Help: "Current number of events in the workflow journal buffer.",
		}),
	}
}

// resultLabel классифицирует исход операции для метрик.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrRenderFailure):
		return "render_failure"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
