package memory

import (
	"context"
	"sync"

	"github.com/xela07ax/gad-tramites/internal/audit"
)

// JournalStore — приемник пакетов журнала в памяти.
type JournalStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewJournalStore() *JournalStore {
	return &JournalStore{}
}

func (s *JournalStore) WriteBatch(_ context.Context, events []audit.Event) error {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	return nil
}

// FetchLogs возвращает события новые сверху.
func (s *JournalStore) FetchLogs(_ context.Context, f audit.Filter) ([]audit.Event, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Event, 0, f.Limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < f.Limit; i-- {
		e := s.events[i]
		if f.InstanceID != "" && e.InstanceID != f.InstanceID {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
