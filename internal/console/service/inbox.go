package service

import (
	"context"
	"errors"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

type InstanceLister interface {
	Get(ctx context.Context, id string) (*domain.ProcedureInstance, error)
	List(ctx context.Context, f domain.InstanceFilter) ([]*domain.ProcedureInstance, int, error)
}

// Page — страница очереди сотрудников.
type Page struct {
	Items  []*domain.ProcedureInstance `json:"items"`
	Total  int                         `json:"total"`
	Limit  int                         `json:"limit"`
	Offset int                         `json:"offset"`
}

// InboxService — чтение заявок для консоли сотрудников. Заявки не изменяет.
type InboxService struct {
	repo InstanceLister
}

func NewInboxService(repo InstanceLister) *InboxService {
	return &InboxService{repo: repo}
}

func (s *InboxService) List(ctx context.Context, f domain.InstanceFilter) (*Page, error) {
	f = f.Normalize()
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *InboxService) Get(ctx context.Context, id string) (*domain.ProcedureInstance, error) {
	return s.repo.Get(ctx, id)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
