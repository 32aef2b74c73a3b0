package render

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"golang.org/x/time/rate"
)

// ReliabilitySettings — параметры предохранителя и лимитера для внешнего рендера.
type ReliabilitySettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	Attempts    uint
	RatePerSec  float64
	Burst       int
}

// ReliabilityWrapper оборачивает медленный внешний рендер: Rate Limit -> Circuit Breaker -> Retry.
type ReliabilityWrapper struct {
	next    Renderer
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	tries   uint
}

func NewReliabilityWrapper(next Renderer, s ReliabilitySettings) *ReliabilityWrapper {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Attempts == 0 {
		s.Attempts = 3
	}
	if s.RatePerSec <= 0 {
		s.RatePerSec = 20
	}
	if s.Burst <= 0 {
		s.Burst = 5
	}

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "document-renderer",
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &ReliabilityWrapper{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(s.RatePerSec), s.Burst),
		tries:   s.Attempts,
	}
}

func (w *ReliabilityWrapper) Render(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) (*Document, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("render rate limit exceeded: %w", err)
	}

	var doc *Document

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.tries),
			retry.DelayType(retry.BackOffDelay),
		)
		retryErr := r.Do(func() error {
			var callErr error
			doc, callErr = w.next.Render(ctx, inst, def)
			return callErr
		})
		return doc, retryErr
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
