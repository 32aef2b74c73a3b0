package audit

import "time"

// Event — запись глобального журнала действий (по всем заявкам).
// История конкретной заявки живет в самом агрегате; журнал нужен для
// сквозного аудита сотрудников и аналитики.
type Event struct {
	ID           string    `json:"id"`
	InstanceID   string    `json:"instance_id"`
	DefinitionID string    `json:"definition_id"`
	Folio        string    `json:"folio,omitempty"`
	Action       string    `json:"action"` // submit, approve, ..., а также create_draft / add_attachment
	FromState    string    `json:"from_state,omitempty"`
	ToState      string    `json:"to_state"`
	Actor        string    `json:"actor"`
	Comment      string    `json:"comment,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Filter — параметры выборки журнала для консоли.
type Filter struct {
	InstanceID string
	Actor      string
	Limit      int
}
