package render

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

func approvedInstance() (*domain.ProcedureInstance, *domain.ProcedureDefinition) {
	folio := "GAD-202603-0007"
	at := time.Date(2026, 3, 12, 15, 30, 0, 0, time.UTC)
	inst := &domain.ProcedureInstance{
		ID:      "inst-1",
		Folio:   &folio,
		State:   domain.StatePaid,
		Citizen: domain.Citizen{Name: "Juan Pérez", DocumentNumber: "1712345678"},
		Motive:  "Trámite bancario",
		History: []domain.AuditEntry{
			{Timestamp: at.Add(-time.Hour), Action: domain.ActionSubmit, State: domain.StateSubmitted, Actor: domain.SystemActor},
			{Timestamp: at, Action: domain.ActionApprove, State: domain.StateApproved, Actor: "María López"},
		},
		Payment: &domain.Payment{Code: "PAY-001"},
	}
	def := &domain.ProcedureDefinition{ID: "cert-no-adeudar", Name: "Certificado de no adeudar", CostCents: 2500}
	return inst, def
}

func TestTemplateRendererIsDeterministic(t *testing.T) {
	r := NewTemplateRenderer("GAD Municipal", time.UTC)
	inst, def := approvedInstance()

	first, err := r.Render(context.Background(), inst, def)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), inst, def)
	require.NoError(t, err)

	assert.NotEmpty(t, first.Content)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, "GAD-202603-0007.html", first.FileName)
	assert.Contains(t, string(first.Content), "Certificado de no adeudar")
	assert.Contains(t, string(first.Content), "PAY-001")
	assert.Contains(t, string(first.Content), "12/03/2026")
}

func TestTemplateRendererFailsWithoutApproval(t *testing.T) {
	r := NewTemplateRenderer("GAD", nil)
	inst, def := approvedInstance()
	inst.History = inst.History[:1]

	_, err := r.Render(context.Background(), inst, def)
	require.Error(t, err)

	inst.Folio = nil
	_, err = r.Render(context.Background(), inst, def)
	require.Error(t, err)
}

type flakyRenderer struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyRenderer) Render(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) (*Document, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("template service unavailable")
	}
	return &Document{Content: []byte("%PDF"), ContentType: "application/pdf"}, nil
}

func TestReliabilityWrapperRetries(t *testing.T) {
	inner := &flakyRenderer{failures: 2}
	w := NewReliabilityWrapper(inner, ReliabilitySettings{Attempts: 3, Timeout: time.Second})
	inst, def := approvedInstance()

	doc, err := w.Render(context.Background(), inst, def)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), doc.Content)
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestReliabilityWrapperGivesUp(t *testing.T) {
	inner := &flakyRenderer{failures: 100}
	w := NewReliabilityWrapper(inner, ReliabilitySettings{Attempts: 2, Timeout: time.Second})
	inst, def := approvedInstance()

	_, err := w.Render(context.Background(), inst, def)
	require.Error(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}
