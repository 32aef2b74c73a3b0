package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/gad-tramites/internal/domain"
	"go.uber.org/zap"
)

type CatalogRepository interface {
	GetDefinition(ctx context.Context, id string) (*domain.ProcedureDefinition, error)
	ListDefinitions(ctx context.Context, activeOnly bool) ([]*domain.ProcedureDefinition, error)
	UpsertDefinition(ctx context.Context, def *domain.ProcedureDefinition) error
}

// OpenInstanceChecker сообщает, есть ли незавершенные заявки по процедуре.
type OpenInstanceChecker interface {
	HasOpenInstances(ctx context.Context, definitionID string) (bool, error)
}

// DefinitionLocker — общий с ядром замок процедуры. Пока он взят, новые черновики
// по этой процедуре не создаются.
type DefinitionLocker interface {
	LockDefinition(definitionID string) (unlock func())
}

type CatalogService struct {
	repo      CatalogRepository
	instances OpenInstanceChecker
	locks     DefinitionLocker
	logger    *zap.Logger
	now       func() time.Time
}

func NewCatalogService(repo CatalogRepository, instances OpenInstanceChecker, locks DefinitionLocker, logger *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, instances: instances, locks: locks, logger: logger.Named("catalog"), now: time.Now}
}

func (s *CatalogService) List(ctx context.Context, activeOnly bool) ([]*domain.ProcedureDefinition, error) {
	return s.repo.ListDefinitions(ctx, activeOnly)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.ProcedureDefinition, error) {
	return s.repo.GetDefinition(ctx, id)
}

// Upsert создает или обновляет запись каталога. Пока по процедуре есть незавершенные
// заявки, менять можно только флаг active: условия уже поданных заявок не меняются.
func (s *CatalogService) Upsert(ctx context.Context, def *domain.ProcedureDefinition) (*domain.ProcedureDefinition, error) {
	def.ID = strings.TrimSpace(def.ID)
	def.Name = strings.TrimSpace(def.Name)
	if err := def.Validate(); err != nil {
		return nil, err
	}

	// Проверка открытых заявок и запись идут под одним замком с CreateDraft
	unlock := s.locks.LockDefinition(def.ID)
	defer unlock()

	now := s.now()
	current, err := s.repo.GetDefinition(ctx, def.ID)
	switch {
	case err == nil:
		open, err := s.instances.HasOpenInstances(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		if open && !onlyActiveChanged(current, def) {
			return nil, fmt.Errorf("procedure %s has open instances, only the active flag may change: %w",
				def.ID, domain.ErrStateConflict)
		}
		def.CreatedAt = current.CreatedAt
	case isNotFound(err):
		def.CreatedAt = now
	default:
		return nil, err
	}
	def.UpdatedAt = now

	if err := s.repo.UpsertDefinition(ctx, def); err != nil {
		return nil, fmt.Errorf("catalog_service: upsert %s: %w", def.ID, err)
	}
	s.logger.Info("catalog entry saved", zap.String("definition_id", def.ID), zap.Bool("active", def.Active))
	return def, nil
}

func onlyActiveChanged(a, b *domain.ProcedureDefinition) bool {
	return a.Name == b.Name &&
		a.Category == b.Category &&
		a.CostCents == b.CostCents &&
		a.ExpectedDuration == b.ExpectedDuration &&
		a.Requirements == b.Requirements &&
		a.RequiresAttachment == b.RequiresAttachment &&
		a.MinAttachments == b.MinAttachments
}
