package domain

import "strings"

// State — статусы конечного автомата заявки.
type State string

const (
	StateDraft            State = "DRAFT"
	StateSubmitted        State = "SUBMITTED"
	StateUnderObservation State = "UNDER_OBSERVATION"
	StateApproved         State = "APPROVED"
	StateRejected         State = "REJECTED"
	StatePaid             State = "PAID"
	StateDelivered        State = "DELIVERED"
)

// AllStates в порядке жизненного цикла (для дашборда и валидации фильтров).
var AllStates = []State{
	StateDraft, StateSubmitted, StateUnderObservation, StateApproved,
	StateRejected, StatePaid, StateDelivered,
}

// ParseState принимает статус в любом регистре. Пустая строка — "без фильтра".
func ParseState(s string) (State, error) {
	if s == "" {
		return "", nil
	}
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStates {
		if st == known {
			return st, nil
		}
	}
	return "", NewValidationError("state", "is unknown")
}

// IsTerminal — из Rejected и Delivered переходов нет.
func (s State) IsTerminal() bool {
	return s == StateRejected || s == StateDelivered
}

// AcceptsAttachments — вложения принимаются только до начала рассмотрения.
func (s State) AcceptsAttachments() bool {
	return s == StateDraft || s == StateSubmitted
}

// Action — действие гражданина или сотрудника над заявкой.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionObserve         Action = "observe"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRegisterPayment Action = "register_payment"
	ActionDeliver         Action = "deliver"
)

// transitions — таблица допустимых переходов: источник -> действие -> цель.
// Approved -> deliver допустим только для бесплатных процедур (проверяется в Plan).
var transitions = map[State]map[Action]State{
	StateDraft: {
		ActionSubmit: StateSubmitted,
	},
	StateSubmitted: {
		ActionObserve: StateUnderObservation,
		ActionApprove: StateApproved,
		ActionReject:  StateRejected,
	},
	StateUnderObservation: {
		ActionApprove: StateApproved,
		ActionReject:  StateRejected,
	},
	StateApproved: {
		ActionRegisterPayment: StatePaid,
		ActionDeliver:         StateDelivered,
	},
	StatePaid: {
		ActionDeliver: StateDelivered,
	},
}

// NextState проверяет правила конечного автомата без учета каталога.
func NextState(from State, action Action) (State, error) {
	next, ok := transitions[from][action]
	if !ok {
		return "", &TransitionError{From: from, Action: action}
	}
	return next, nil
}

// Plan вычисляет целевое состояние с учетом стоимости процедуры:
//   - оплата бесплатной процедуры отклоняется (ErrPaymentNotRequired);
//   - выдача из Approved разрешена только для бесплатной процедуры, платные идут через Paid.
func (p *ProcedureInstance) Plan(action Action, def *ProcedureDefinition) (State, error) {
	next, err := NextState(p.State, action)
	if err != nil {
		return "", err
	}
	switch {
	case action == ActionRegisterPayment && def.IsFree():
		return "", &ValidationError{Field: "code", Reason: "payment is not required for a free procedure", Err: ErrPaymentNotRequired}
	case action == ActionDeliver && p.State == StateApproved && !def.IsFree():
		return "", &TransitionError{From: p.State, Action: action}
	}
	return next, nil
}
