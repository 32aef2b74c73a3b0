package domain

import (
	"strings"
	"time"
)

// Category классифицирует тип процедуры в каталоге.
type Category string

const (
	CategoryCertification Category = "CERTIFICACION" // Сертификаты и справки
	CategoryPermit        Category = "PERMISO"       // Разрешения (функционирование, строительство и т.д.)
)

func (c Category) IsValid() bool {
	return c == CategoryCertification || c == CategoryPermit
}

// ProcedureDefinition — запись каталога (read-mostly). Заявки ссылаются на нее по ID
// и не копируют ее поля, поэтому изменения каталога не меняют заявки "задним числом".
type ProcedureDefinition struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         Category `json:"category"`
	CostCents        int64    `json:"cost_cents"`        // 0 — бесплатная процедура, оплата не требуется
	ExpectedDuration string   `json:"expected_duration"` // Человекочитаемо: "3 días hábiles"
	Requirements     string   `json:"requirements"`

	// Явный флаг вместо поиска ключевых слов в тексте требований
	RequiresAttachment bool `json:"requires_attachment"`
	MinAttachments     int  `json:"min_attachments,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFree — бесплатные процедуры идут на выдачу без регистрации оплаты.
func (d *ProcedureDefinition) IsFree() bool {
	return d.CostCents == 0
}

// RequiredAttachments возвращает минимальное число вложений для подачи заявки.
func (d *ProcedureDefinition) RequiredAttachments() int {
	if !d.RequiresAttachment {
		return 0
	}
	if d.MinAttachments < 1 {
		return 1
	}
	return d.MinAttachments
}

// Validate проверяет запись перед сохранением в каталог.
func (d *ProcedureDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return NewValidationError("id", "is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if !d.Category.IsValid() {
		return NewValidationError("category", "must be CERTIFICACION or PERMISO")
	}
	if d.CostCents < 0 {
		return NewValidationError("cost_cents", "must not be negative")
	}
	if d.MinAttachments < 0 {
		return NewValidationError("min_attachments", "must not be negative")
	}
	return nil
}
