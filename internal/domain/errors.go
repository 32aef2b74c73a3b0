package domain

import (
	"errors"
	"fmt"
)

// Таксономия ошибок ядра. Все ошибки переходов возвращаются явно,
// частичное применение изменений не допускается.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrStateConflict       = errors.New("operation not allowed in current state")
	ErrRenderFailure       = errors.New("document render failed")
	ErrConcurrencyConflict = errors.New("concurrent modification, reload and retry")
	ErrPaymentNotRequired  = errors.New("payment not required for free procedure")
	ErrInactiveProcedure   = errors.New("procedure is not active")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// ValidationError указывает поле, не прошедшее проверку.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // Дополнительная причина (например ErrPaymentNotRequired)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// TransitionError — действие недопустимо из текущего состояния.
type TransitionError struct {
	From   State
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s not allowed from %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// RenderError — сбой Document Renderer. Состояние заявки при этом не меняется.
type RenderError struct {
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("document render failed: %v", e.Cause)
}

func (e *RenderError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrRenderFailure, e.Cause}
	}
	return []error{ErrRenderFailure}
}
