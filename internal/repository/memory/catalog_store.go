package memory

import (
	"context"
	"fmt"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

type CatalogStore struct {
	items *Collection[*domain.ProcedureDefinition]
}

func NewCatalogStore(defs ...domain.ProcedureDefinition) *CatalogStore {
	s := &CatalogStore{items: NewCollection(func(d *domain.ProcedureDefinition) *domain.ProcedureDefinition {
		c := *d
		return &c
	})}
	for i := range defs {
		s.items.Put(defs[i].ID, &defs[i])
	}
	return s
}

func (s *CatalogStore) GetDefinition(_ context.Context, id string) (*domain.ProcedureDefinition, error) {
	def, ok := s.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("procedure %s: %w", id, domain.ErrNotFound)
	}
	return def, nil
}

func (s *CatalogStore) ListDefinitions(_ context.Context, activeOnly bool) ([]*domain.ProcedureDefinition, error) {
	return s.items.Select(
		func(d *domain.ProcedureDefinition) bool { return !activeOnly || d.Active },
		func(a, b *domain.ProcedureDefinition) bool { return a.ID < b.ID },
	), nil
}

// UpsertDefinition сохраняет запись каталога, CreatedAt существующей записи не меняется.
func (s *CatalogStore) UpsertDefinition(_ context.Context, def *domain.ProcedureDefinition) error {
	return s.items.Swap(def.ID, func(cur *domain.ProcedureDefinition, found bool) (*domain.ProcedureDefinition, error) {
		if found {
			def.CreatedAt = cur.CreatedAt
		}
		return def, nil
	})
}
