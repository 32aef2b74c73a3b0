package domain

import (
	"net/mail"
	"strings"
	"time"
)

// SystemActor — автор записей аудита, созданных без участия сотрудника.
const SystemActor = "System"

// DocumentNumberLength — длина номера удостоверения личности (cédula).
const DocumentNumberLength = 10

// Citizen — снимок данных заявителя, встроенный в заявку (собственного жизненного цикла нет).
type Citizen struct {
	Name           string `json:"name"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

func (c Citizen) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("citizen.name", "is required")
	}
	if len(c.DocumentNumber) != DocumentNumberLength {
		return NewValidationError("citizen.document_number", "must have exactly 10 digits")
	}
	for _, r := range c.DocumentNumber {
		if r < '0' || r > '9' {
			return NewValidationError("citizen.document_number", "must be numeric")
		}
	}
	if c.Email != "" {
		// Только голый адрес: "María <m@x.com>" уйдет в уведомления как есть
		addr, err := mail.ParseAddress(c.Email)
		if err != nil || addr.Address != c.Email {
			return NewValidationError("citizen.email", "is not a valid address")
		}
	}
	return nil
}

// Attachment — ссылка на загруженный документ. Только добавляется, никогда не редактируется.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StorageRef string    `json:"storage_ref"`
	AddedAt    time.Time `json:"added_at"`
}

// AuditEntry — неизменяемая запись истории заявки.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	State     State     `json:"state"` // Состояние после перехода
	Actor     string    `json:"actor"`
	Comment   string    `json:"comment,omitempty"`
}

// Payment фиксируется один раз при переходе Approved -> Paid.
type Payment struct {
	Code         string    `json:"code"`
	ReceiptRef   string    `json:"receipt_ref,omitempty"`
	RegisteredBy string    `json:"registered_by"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ProcedureInstance — агрегат заявки. Изменяется только через Workflow Engine.
type ProcedureInstance struct {
	ID           string  `json:"id"`
	DefinitionID string  `json:"definition_id"`
	Folio        *string `json:"folio"` // nil ровно пока заявка в Draft
	State        State   `json:"state"`
	Citizen      Citizen `json:"citizen"`
	Motive       string  `json:"motive"`

	Attachments []Attachment `json:"attachments"`
	History     []AuditEntry `json:"history"`
	Payment     *Payment     `json:"payment,omitempty"`

	// Version растет на каждую запись, используется для compare-and-set в хранилище
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FolioValue возвращает фолио или пустую строку для черновика.
func (p *ProcedureInstance) FolioValue() string {
	if p.Folio == nil {
		return ""
	}
	return *p.Folio
}

// Record добавляет запись в историю. Метки времени не убывают:
// если часы "отстали", запись получает время предыдущей.
func (p *ProcedureInstance) Record(action Action, actor, comment string, at time.Time) AuditEntry {
	if n := len(p.History); n > 0 && at.Before(p.History[n-1].Timestamp) {
		at = p.History[n-1].Timestamp
	}
	if actor == "" {
		actor = SystemActor
	}
	entry := AuditEntry{
		Timestamp: at,
		Action:    action,
		State:     p.State,
		Actor:     actor,
		Comment:   comment,
	}
	p.History = append(p.History, entry)
	return entry
}

// Clone делает глубокую копию, чтобы читатели не могли изменить сохраненный агрегат.
func (p *ProcedureInstance) Clone() *ProcedureInstance {
	if p == nil {
		return nil
	}
	c := *p
	if p.Folio != nil {
		f := *p.Folio
		c.Folio = &f
	}
	if p.Payment != nil {
		pay := *p.Payment
		c.Payment = &pay
	}
	c.Attachments = append(make([]Attachment, 0, len(p.Attachments)), p.Attachments...)
	c.History = append(make([]AuditEntry, 0, len(p.History)), p.History...)
	return &c
}

// InstanceFilter — параметры выборки для очереди сотрудников.
type InstanceFilter struct {
	State        State
	DefinitionID string
	Limit        int
	Offset       int
}

// Normalize выставляет лимиты по умолчанию (как LIMIT 100 в очереди решений).
func (f InstanceFilter) Normalize() InstanceFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
