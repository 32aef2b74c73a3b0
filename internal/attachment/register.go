// Package attachment ведет реестр вложений заявки. Содержимое файлов не проверяется
// (этим занимается сервис загрузки), реестр хранит только имя и ссылку на хранилище.
package attachment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

// File — входные данные от сервиса загрузки.
type File struct {
	Name       string `json:"name"`
	StorageRef string `json:"storage_ref"`
}

type Register struct {
	newID func() string
}

func NewRegister() *Register {
	return &Register{newID: func() string { return uuid.New().String() }}
}

// Add добавляет вложение к агрегату. После начала рассмотрения (UnderObservation и далее)
// вложения не принимаются: сотрудник должен видеть ровно то, что рассматривал.
func (r *Register) Add(inst *domain.ProcedureInstance, f File, at time.Time) (domain.Attachment, error) {
	if !inst.State.AcceptsAttachments() {
		return domain.Attachment{}, fmt.Errorf("attachments closed for instance %s in state %s: %w",
			inst.ID, inst.State, domain.ErrStateConflict)
	}

	name := strings.TrimSpace(f.Name)
	ref := strings.TrimSpace(f.StorageRef)
	if name == "" {
		return domain.Attachment{}, domain.NewValidationError("name", "is required")
	}
	if ref == "" {
		return domain.Attachment{}, domain.NewValidationError("storage_ref", "is required")
	}

	a := domain.Attachment{
		ID:         r.newID(),
		Name:       name,
		StorageRef: ref,
		AddedAt:    at,
	}
	inst.Attachments = append(inst.Attachments, a)
	return a, nil
}

// Satisfies проверяет минимальное число вложений, которого требует каталог.
func Satisfies(inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) error {
	need := def.RequiredAttachments()
	if len(inst.Attachments) < need {
		return domain.NewValidationError("attachments",
			fmt.Sprintf("at least %d required, got %d", need, len(inst.Attachments)))
	}
	return nil
}
