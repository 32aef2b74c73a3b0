// Package tracking — публичный просмотр статуса заявки по фолио, без аутентификации.
// Только чтение: пакет не изменяет заявки. Персональные данные гражданина маскируются,
// если вызывающий не подтвердил номер документа.
package tracking

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/folio"
	"go.uber.org/zap"
)

type InstanceReader interface {
	GetByFolio(ctx context.Context, folio string) (*domain.ProcedureInstance, error)
}

type Catalog interface {
	GetDefinition(ctx context.Context, id string) (*domain.ProcedureDefinition, error)
}

type CitizenView struct {
	Name           string `json:"name"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

type AttachmentView struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// View — публичное представление заявки.
type View struct {
	Folio         string              `json:"folio"`
	State         domain.State        `json:"state"`
	DefinitionID  string              `json:"definition_id"`
	ProcedureName string              `json:"procedure_name"`
	Citizen       CitizenView         `json:"citizen"`
	Motive        string              `json:"motive,omitempty"`
	Attachments   []AttachmentView    `json:"attachments"`
	History       []domain.AuditEntry `json:"history"`
	Paid          bool                `json:"paid"`
	Masked        bool                `json:"masked"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type Service struct {
	instances      InstanceReader
	catalog        Catalog
	exposePersonal bool
	logger         *zap.Logger
}

func NewService(instances InstanceReader, catalog Catalog, exposePersonal bool, logger *zap.Logger) *Service {
	return &Service{
		instances:      instances,
		catalog:        catalog,
		exposePersonal: exposePersonal,
		logger:         logger.Named("tracking"),
	}
}

// TrackByFolio ищет заявку только по фолио. document — необязательное подтверждение
// (номер документа заявителя): при совпадении данные гражданина показываются полностью.
func (s *Service) TrackByFolio(ctx context.Context, code, document string) (*View, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !folio.Valid(code) {
		return nil, fmt.Errorf("folio %q: %w", code, domain.ErrNotFound)
	}

	inst, err := s.instances.GetByFolio(ctx, code)
	if err != nil {
		return nil, err
	}

	name := inst.DefinitionID
	def, err := s.catalog.GetDefinition(ctx, inst.DefinitionID)
	switch {
	case err == nil:
		name = def.Name
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("definition missing for tracked instance", zap.String("folio", code), zap.String("definition_id", inst.DefinitionID))
	default:
		return nil, err
	}

	reveal := s.exposePersonal || proves(inst.Citizen.DocumentNumber, document)
	return buildView(inst, name, reveal), nil
}

func buildView(inst *domain.ProcedureInstance, procedureName string, reveal bool) *View {
	v := &View{
		Folio:         inst.FolioValue(),
		State:         inst.State,
		DefinitionID:  inst.DefinitionID,
		ProcedureName: procedureName,
		Attachments:   make([]AttachmentView, 0, len(inst.Attachments)),
		History:       append([]domain.AuditEntry{}, inst.History...),
		Paid:          inst.Payment != nil,
		Masked:        !reveal,
		CreatedAt:     inst.CreatedAt,
		UpdatedAt:     inst.UpdatedAt,
	}
	for _, a := range inst.Attachments {
		v.Attachments = append(v.Attachments, AttachmentView{Name: a.Name, AddedAt: a.AddedAt})
	}

	if reveal {
		v.Citizen = CitizenView(inst.Citizen)
		v.Motive = inst.Motive
		return v
	}
	v.Citizen = CitizenView{
		Name:           MaskName(inst.Citizen.Name),
		DocumentNumber: MaskDocument(inst.Citizen.DocumentNumber),
	}
	return v
}

func proves(expected, supplied string) bool {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

// MaskName оставляет первую букву каждого слова: "María Pérez" -> "M*** P***".
func MaskName(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		r, _ := utf8.DecodeRuneInString(p)
		parts[i] = string(r) + "***"
	}
	return strings.Join(parts, " ")
}

// MaskDocument оставляет три последние цифры.
func MaskDocument(doc string) string {
	const visible = 3
	if len(doc) <= visible {
		return strings.Repeat("*", len(doc))
	}
	return strings.Repeat("*", len(doc)-visible) + doc[len(doc)-visible:]
}
