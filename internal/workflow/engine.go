// Package workflow — ядро жизненного цикла заявки. Engine — единственный компонент,
// который изменяет состояние ProcedureInstance: проверяет переходы по таблице автомата,
// дописывает историю, выдает фолио, регистрирует вложения и оплату, вызывает рендер документа.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/gad-tramites/internal/attachment"
	"github.com/xela07ax/gad-tramites/internal/audit"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/render"
	"go.uber.org/zap"
)

// InstanceStore — порт хранилища заявок.
// Update записывает агрегат, только если текущая версия равна expectedVersion,
// иначе возвращает domain.ErrConcurrencyConflict. При успехе inst.Version = expectedVersion+1.
type InstanceStore interface {
	Create(ctx context.Context, inst *domain.ProcedureInstance) error
	Get(ctx context.Context, id string) (*domain.ProcedureInstance, error)
	Update(ctx context.Context, inst *domain.ProcedureInstance, expectedVersion int64) error
}

// Catalog — источник определений процедур (read-mostly).
type Catalog interface {
	GetDefinition(ctx context.Context, id string) (*domain.ProcedureDefinition, error)
}

type FolioIssuer interface {
	Issue(ctx context.Context, at time.Time) (string, error)
}

// Notifier получает сигнал после каждого зафиксированного перехода.
type Notifier interface {
	StatusChanged(ctx context.Context, inst *domain.ProcedureInstance) error
}

type Engine struct {
	store       InstanceStore
	catalog     Catalog
	folios      FolioIssuer
	attachments *attachment.Register
	renderer    render.Renderer

	journal       audit.Auditor
	notifier      Notifier
	locks         *Locker
	metrics       *Metrics
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
	renderTimeout time.Duration
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithJournal(j audit.Auditor) Option { return func(e *Engine) { e.journal = j } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithLocker(l *Locker) Option { return func(e *Engine) { e.locks = l } }

func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// WithRenderTimeout ограничивает время рендера при выдаче документа.
func WithRenderTimeout(d time.Duration) Option { return func(e *Engine) { e.renderTimeout = d } }

func NewEngine(
	store InstanceStore,
	catalog Catalog,
	folios FolioIssuer,
	renderer render.Renderer,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:       store,
		catalog:     catalog,
		folios:      folios,
		attachments: attachment.NewRegister(),
		renderer:    renderer,
		logger:      logger.Named("workflow"),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locks == nil {
		e.locks = NewLocker(defaultLockShards)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.journal == nil {
		e.journal = nopAuditor{}
	}
	return e
}

// CreateDraft создает черновик заявки по активной процедуре каталога.
func (e *Engine) CreateDraft(ctx context.Context, definitionID string, citizen domain.Citizen, motive string) (*domain.ProcedureInstance, error) {
	citizen.Name = strings.TrimSpace(citizen.Name)
	citizen.DocumentNumber = strings.TrimSpace(citizen.DocumentNumber)
	citizen.Email = strings.TrimSpace(citizen.Email)
	citizen.Phone = strings.TrimSpace(citizen.Phone)
	if err := citizen.Validate(); err != nil {
		return nil, err
	}

	// Запись каталога не меняется, пока черновик не сохранен
	unlock := e.locks.LockDefinition(definitionID)
	defer unlock()

	def, err := e.catalog.GetDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if !def.Active {
		return nil, &domain.ValidationError{Field: "definition_id", Reason: "procedure is not active", Err: domain.ErrInactiveProcedure}
	}

	now := e.now()
	inst := &domain.ProcedureInstance{
		ID:           e.newID(),
		DefinitionID: def.ID,
		State:        domain.StateDraft,
		Citizen:      citizen,
		Motive:       strings.TrimSpace(motive),
		Attachments:  []domain.Attachment{},
		History:      []domain.AuditEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.Create(ctx, inst); err != nil {
		e.logger.Error("failed to persist draft", zap.String("definition_id", def.ID), zap.Error(err))
		return nil, fmt.Errorf("create draft: %w", err)
	}

	e.journal.Log(audit.Event{
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		Action:       "create_draft",
		ToState:      string(inst.State),
		Actor:        citizen.Name,
		Timestamp:    now,
	})
	e.logger.Info("draft created", zap.String("instance_id", inst.ID), zap.String("definition_id", def.ID))
	return inst.Clone(), nil
}

// AddAttachment регистрирует вложение (только в Draft и Submitted).
func (e *Engine) AddAttachment(ctx context.Context, id string, f attachment.File) (*domain.Attachment, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	inst, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	a, err := e.attachments.Add(inst, f, now)
	if err != nil {
		e.logger.Warn("attachment rejected", zap.String("instance_id", id), zap.String("state", string(inst.State)), zap.Error(err))
		return nil, err
	}
	if now.After(inst.UpdatedAt) {
		inst.UpdatedAt = now
	}
	if err := e.store.Update(ctx, inst, inst.Version); err != nil {
		e.countConflict(err)
		return nil, err
	}

	e.journal.Log(audit.Event{
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		Folio:        inst.FolioValue(),
		Action:       "add_attachment",
		ToState:      string(inst.State),
		Actor:        inst.Citizen.Name,
		Comment:      a.Name,
		Timestamp:    now,
	})
	return &a, nil
}

// Submit: Draft -> Submitted. Проверяет обязательные вложения и выдает фолио.
func (e *Engine) Submit(ctx context.Context, id string) (*domain.ProcedureInstance, error) {
	return e.apply(ctx, id, step{
		action: domain.ActionSubmit,
		prepare: func(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition, now time.Time) error {
			if err := attachment.Satisfies(inst, def); err != nil {
				return err
			}
			if inst.Folio != nil {
				return fmt.Errorf("instance %s already has folio %s: %w", inst.ID, *inst.Folio, domain.ErrStateConflict)
			}
			f, err := e.folios.Issue(ctx, now)
			if err != nil {
				return err
			}
			inst.Folio = &f
			e.metrics.FoliosIssued.Inc()
			return nil
		},
		actorFrom: func(inst *domain.ProcedureInstance) string { return inst.Citizen.Name },
	})
}

// Observe: Submitted -> UnderObservation. Замечание обязательно.
func (e *Engine) Observe(ctx context.Context, id, actor, note string) (*domain.ProcedureInstance, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, e.reject(domain.ActionObserve, domain.NewValidationError("note", "is required"))
	}
	return e.apply(ctx, id, step{action: domain.ActionObserve, actor: actor, comment: note})
}

// Approve: Submitted | UnderObservation -> Approved. Комментарий необязателен.
func (e *Engine) Approve(ctx context.Context, id, actor, comment string) (*domain.ProcedureInstance, error) {
	return e.apply(ctx, id, step{action: domain.ActionApprove, actor: actor, comment: strings.TrimSpace(comment)})
}

// Reject: Submitted | UnderObservation -> Rejected (терминальное). Причина обязательна.
func (e *Engine) Reject(ctx context.Context, id, actor, note string) (*domain.ProcedureInstance, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, e.reject(domain.ActionReject, domain.NewValidationError("note", "is required"))
	}
	return e.apply(ctx, id, step{action: domain.ActionReject, actor: actor, comment: note})
}

// RegisterPayment: Approved -> Paid, только для платных процедур.
func (e *Engine) RegisterPayment(ctx context.Context, id, actor, code, receiptRef string) (*domain.ProcedureInstance, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, e.reject(domain.ActionRegisterPayment, domain.NewValidationError("code", "is required"))
	}
	receiptRef = strings.TrimSpace(receiptRef)

	return e.apply(ctx, id, step{
		action:  domain.ActionRegisterPayment,
		actor:   actor,
		comment: code,
		prepare: func(_ context.Context, inst *domain.ProcedureInstance, _ *domain.ProcedureDefinition, now time.Time) error {
			if inst.Payment != nil {
				return fmt.Errorf("payment already registered for %s: %w", inst.ID, domain.ErrStateConflict)
			}
			inst.Payment = &domain.Payment{
				Code:         code,
				ReceiptRef:   receiptRef,
				RegisteredBy: actor,
				RegisteredAt: now,
			}
			return nil
		},
	})
}

// Deliver: Paid (или Approved для бесплатной процедуры) -> Delivered.
// Рендер выполняется без удержания блокировки: предпроверка состояния, рендер,
// затем compare-and-set по версии. Если за время рендера заявку изменили,
// возвращается ErrConcurrencyConflict и документ отбрасывается. При сбое рендера состояние не меняется.
func (e *Engine) Deliver(ctx context.Context, id, actor string) (_ *domain.ProcedureInstance, _ *render.Document, err error) {
	start := time.Now()
	defer func() { e.observe(domain.ActionDeliver, id, start, err) }()

	// 1. Оптимистичная предпроверка
	unlock := e.locks.Lock(id)
	snapshot, def, err := e.load(ctx, id)
	if err == nil {
		_, err = snapshot.Plan(domain.ActionDeliver, def)
	}
	unlock()
	if err != nil {
		return nil, nil, err
	}

	// 2. Рендер (может быть медленным, I/O-bound)
	doc, err := e.render(ctx, snapshot, def)
	if err != nil {
		return nil, nil, err
	}

	// 3. Финальный compare-and-set
	unlock = e.locks.Lock(id)
	defer unlock()

	current, def, err := e.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if current.Version != snapshot.Version {
		e.metrics.ConcurrencyConflicts.Inc()
		return nil, nil, fmt.Errorf("instance %s changed during rendering: %w", id, domain.ErrConcurrencyConflict)
	}
	next, err := current.Plan(domain.ActionDeliver, def)
	if err != nil {
		return nil, nil, err
	}
	from := current.State
	s := step{action: domain.ActionDeliver, actor: actor}
	if err := e.commit(ctx, current, next, s, e.now()); err != nil {
		return nil, nil, err
	}
	e.published(ctx, current, from, s)
	return current.Clone(), doc, nil
}

type step struct {
	action    domain.Action
	actor     string
	comment   string
	actorFrom func(inst *domain.ProcedureInstance) string
	prepare   func(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition, now time.Time) error
}

// apply — унифицированный read-modify-write одного агрегата под блокировкой заявки.
func (e *Engine) apply(ctx context.Context, id string, s step) (_ *domain.ProcedureInstance, err error) {
	start := time.Now()
	defer func() { e.observe(s.action, id, start, err) }()

	unlock := e.locks.Lock(id)
	defer unlock()

	inst, def, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	from := inst.State
	next, err := inst.Plan(s.action, def)
	if err != nil {
		return nil, err
	}
	if s.actorFrom != nil {
		s.actor = s.actorFrom(inst)
	}

	now := e.now()
	if s.prepare != nil {
		if err := s.prepare(ctx, inst, def, now); err != nil {
			return nil, err
		}
	}
	if err := e.commit(ctx, inst, next, s, now); err != nil {
		return nil, err
	}
	e.published(ctx, inst, from, s)
	return inst.Clone(), nil
}

func (e *Engine) load(ctx context.Context, id string) (*domain.ProcedureInstance, *domain.ProcedureDefinition, error) {
	inst, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	def, err := e.catalog.GetDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("definition %s of instance %s: %w", inst.DefinitionID, id, err)
	}
	return inst, def, nil
}

// commit применяет переход к агрегату и записывает его с проверкой версии.
func (e *Engine) commit(ctx context.Context, inst *domain.ProcedureInstance, next domain.State, s step, now time.Time) error {
	expected := inst.Version
	inst.State = next
	entry := inst.Record(s.action, s.actor, s.comment, now)
	inst.UpdatedAt = entry.Timestamp

	if err := e.store.Update(ctx, inst, expected); err != nil {
		e.countConflict(err)
		return err
	}
	return nil
}

// published — побочные эффекты после фиксации: журнал, сигнал, лог.
func (e *Engine) published(ctx context.Context, inst *domain.ProcedureInstance, from domain.State, s step) {
	last := inst.History[len(inst.History)-1]
	e.journal.Log(audit.Event{
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		Folio:        inst.FolioValue(),
		Action:       string(s.action),
		FromState:    string(from),
		ToState:      string(inst.State),
		Actor:        last.Actor,
		Comment:      last.Comment,
		Timestamp:    last.Timestamp,
	})

	if e.notifier != nil {
		if err := e.notifier.StatusChanged(ctx, inst); err != nil {
			e.logger.Warn("status signal delivery failed",
				zap.String("instance_id", inst.ID),
				zap.Error(err))
		}
	}

	e.logger.Info("transition committed",
		zap.String("instance_id", inst.ID),
		zap.String("folio", inst.FolioValue()),
		zap.String("action", string(s.action)),
		zap.String("from", string(from)),
		zap.String("to", string(inst.State)),
		zap.String("actor", last.Actor))
}

func (e *Engine) render(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) (*render.Document, error) {
	if e.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.renderTimeout)
		defer cancel()
	}

	start := time.Now()
	doc, err := e.renderer.Render(ctx, inst, def)
	if err == nil && (doc == nil || len(doc.Content) == 0) {
		err = errors.New("renderer returned empty document")
	}
	if err != nil {
		e.metrics.RenderDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		e.logger.Error("document render failed",
			zap.String("instance_id", inst.ID),
			zap.String("folio", inst.FolioValue()),
			zap.Error(err))
		return nil, &domain.RenderError{Cause: err}
	}
	e.metrics.RenderDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	return doc, nil
}

// observe пишет метрики и логирует отклоненные попытки.
func (e *Engine) observe(action domain.Action, id string, start time.Time, err error) {
	result := resultLabel(err)
	e.metrics.TransitionsTotal.WithLabelValues(string(action), result).Inc()
	e.metrics.TransitionDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}
	if result == "error" {
		e.logger.Error("workflow action failed", zap.String("action", string(action)), zap.String("instance_id", id), zap.Error(err))
		return
	}
	e.logger.Warn("workflow action rejected",
		zap.String("action", string(action)),
		zap.String("instance_id", id),
		zap.String("result", result),
		zap.Error(err))
}

// reject учитывает ошибку валидации аргументов, обнаруженную до чтения заявки.
func (e *Engine) reject(action domain.Action, err error) error {
	e.metrics.TransitionsTotal.WithLabelValues(string(action), resultLabel(err)).Inc()
	return err
}

func (e *Engine) countConflict(err error) {
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		e.metrics.ConcurrencyConflicts.Inc()
	}
}

type nopAuditor struct{}

func (nopAuditor) Log(audit.Event) {}
