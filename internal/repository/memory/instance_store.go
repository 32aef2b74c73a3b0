package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

type InstanceStore struct {
	items *Collection[*domain.ProcedureInstance]
}

func NewInstanceStore() *InstanceStore {
	return &InstanceStore{items: NewCollection((*domain.ProcedureInstance).Clone)}
}

func (s *InstanceStore) Create(_ context.Context, inst *domain.ProcedureInstance) error {
	if !s.items.Insert(inst.ID, inst) {
		return fmt.Errorf("instance %s already exists: %w", inst.ID, domain.ErrStateConflict)
	}
	return nil
}

func (s *InstanceStore) Get(_ context.Context, id string) (*domain.ProcedureInstance, error) {
	inst, ok := s.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	return inst, nil
}

func (s *InstanceStore) GetByFolio(_ context.Context, folio string) (*domain.ProcedureInstance, error) {
	inst, ok := s.items.Find(func(p *domain.ProcedureInstance) bool {
		return p.Folio != nil && *p.Folio == folio
	})
	if !ok {
		return nil, fmt.Errorf("folio %s: %w", folio, domain.ErrNotFound)
	}
	return inst, nil
}

// Update — compare-and-set по Version.
func (s *InstanceStore) Update(_ context.Context, inst *domain.ProcedureInstance, expectedVersion int64) error {
	err := s.items.Swap(inst.ID, func(cur *domain.ProcedureInstance, found bool) (*domain.ProcedureInstance, error) {
		if !found {
			return nil, fmt.Errorf("instance %s: %w", inst.ID, domain.ErrNotFound)
		}
		if cur.Version != expectedVersion {
			return nil, fmt.Errorf("instance %s at version %d, expected %d: %w",
				inst.ID, cur.Version, expectedVersion, domain.ErrConcurrencyConflict)
		}
		next := inst.Clone()
		next.Version = expectedVersion + 1
		return next, nil
	})
	if err != nil {
		return err
	}
	inst.Version = expectedVersion + 1
	return nil
}

// List — очередь сотрудников: новые сверху, затем постранично.
func (s *InstanceStore) List(_ context.Context, f domain.InstanceFilter) ([]*domain.ProcedureInstance, int, error) {
	f = f.Normalize()
	all := s.items.Select(
		func(p *domain.ProcedureInstance) bool {
			if f.State != "" && p.State != f.State {
				return false
			}
			return f.DefinitionID == "" || p.DefinitionID == f.DefinitionID
		},
		func(a, b *domain.ProcedureInstance) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID > b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
	)

	total := len(all)
	if f.Offset >= total {
		return []*domain.ProcedureInstance{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

// Stats считает сводку дашборда. since — начало текущих суток в часовом поясе офиса.
func (s *InstanceStore) Stats(_ context.Context, since time.Time) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{ByState: make(map[domain.State]int64, len(domain.AllStates))}
	for _, p := range s.items.Select(nil, nil) {
		stats.ByState[p.State]++
		for _, h := range p.History {
			if h.Timestamp.Before(since) {
				continue
			}
			switch h.Action {
			case domain.ActionSubmit:
				stats.SubmittedToday++
			case domain.ActionDeliver:
				stats.DeliveredToday++
			}
		}
	}
	stats.Fill()
	return stats, nil
}

// HasOpenInstances — есть ли незавершенные заявки по процедуре (для правила неизменности каталога).
func (s *InstanceStore) HasOpenInstances(_ context.Context, definitionID string) (bool, error) {
	_, found := s.items.Find(func(p *domain.ProcedureInstance) bool {
		return p.DefinitionID == definitionID && !p.State.IsTerminal()
	})
	return found, nil
}
