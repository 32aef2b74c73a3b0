package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/gad-tramites/internal/audit"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

func newInstance(id string, created time.Time, st domain.State) *domain.ProcedureInstance {
	return &domain.ProcedureInstance{
		ID:           id,
		DefinitionID: "CERT-RES",
		State:        st,
		Citizen:      domain.Citizen{Name: "Ana", DocumentNumber: "0102030405"},
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestInstanceStore_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewInstanceStore()
	inst := newInstance("i-1", time.Now(), domain.StateDraft)
	require.NoError(t, s.Create(ctx, inst))
	assert.ErrorIs(t, s.Create(ctx, inst), domain.ErrStateConflict)

	first, err := s.Get(ctx, "i-1")
	require.NoError(t, err)
	second, err := s.Get(ctx, "i-1")
	require.NoError(t, err)

	first.Motive = "winner"
	require.NoError(t, s.Update(ctx, first, 0))
	assert.Equal(t, int64(1), first.Version)

	second.Motive = "loser"
	err = s.Update(ctx, second, second.Version)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	stored, err := s.Get(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, "winner", stored.Motive)
	assert.Equal(t, int64(1), stored.Version)
}

func TestInstanceStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInstanceStore()
	require.NoError(t, s.Create(ctx, newInstance("i-1", time.Now(), domain.StateDraft)))

	got, err := s.Get(ctx, "i-1")
	require.NoError(t, err)
	got.State = domain.StateDelivered
	got.History = append(got.History, domain.AuditEntry{Action: domain.ActionDeliver})

	again, err := s.Get(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDraft, again.State)
	assert.Empty(t, again.History)
}

func TestInstanceStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewInstanceStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetByFolio(ctx, "GAD-202601-0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, newInstance("missing", time.Now(), domain.StateDraft), 0), domain.ErrNotFound)
}

func TestInstanceStore_GetByFolio(t *testing.T) {
	ctx := context.Background()
	s := NewInstanceStore()
	inst := newInstance("i-1", time.Now(), domain.StateSubmitted)
	f := "GAD-202601-0007"
	inst.Folio = &f
	require.NoError(t, s.Create(ctx, inst))
	require.NoError(t, s.Create(ctx, newInstance("i-2", time.Now(), domain.StateDraft)))

	got, err := s.GetByFolio(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "i-1", got.ID)
}

func TestInstanceStore_ListAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewInstanceStore()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	states := []domain.State{domain.StateDraft, domain.StateSubmitted, domain.StateSubmitted, domain.StateUnderObservation, domain.StateDelivered}
	for i, st := range states {
		inst := newInstance(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), st)
		if st != domain.StateDraft {
			inst.History = append(inst.History, domain.AuditEntry{Timestamp: base.Add(time.Hour), Action: domain.ActionSubmit})
		}
		if st == domain.StateDelivered {
			inst.History = append(inst.History, domain.AuditEntry{Timestamp: base.Add(2 * time.Hour), Action: domain.ActionDeliver})
		}
		require.NoError(t, s.Create(ctx, inst))
	}

	list, total, err := s.List(ctx, domain.InstanceFilter{State: domain.StateSubmitted})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID, "newest first")

	page, total, err := s.List(ctx, domain.InstanceFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	stats, err := s.Stats(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.AwaitingReview)
	assert.Equal(t, int64(4), stats.SubmittedToday)
	assert.Equal(t, int64(1), stats.DeliveredToday)

	stats, err = s.Stats(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, stats.SubmittedToday)
}

func TestCatalogStore_Upsert(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCatalogStore(
		domain.ProcedureDefinition{ID: "B", Name: "Permiso", Active: false, CreatedAt: created},
		domain.ProcedureDefinition{ID: "A", Name: "Certificado", Active: true, CreatedAt: created},
	)

	active, err := s.ListDefinitions(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].ID)

	require.NoError(t, s.UpsertDefinition(ctx, &domain.ProcedureDefinition{ID: "B", Name: "Permiso v2", Active: true}))
	b, err := s.GetDefinition(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "Permiso v2", b.Name)
	assert.Equal(t, created, b.CreatedAt)

	_, err = s.GetDefinition(ctx, "Z")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJournalStore_FetchLogs(t *testing.T) {
	ctx := context.Background()
	s := NewJournalStore()
	require.NoError(t, s.WriteBatch(ctx, []audit.Event{
		{ID: "1", InstanceID: "i-1", Actor: "ana"},
		{ID: "2", InstanceID: "i-2", Actor: "luis"},
		{ID: "3", InstanceID: "i-1", Actor: "luis"},
	}))

	all, err := s.FetchLogs(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)

	byInst, err := s.FetchLogs(ctx, audit.Filter{InstanceID: "i-1", Actor: "luis"})
	require.NoError(t, err)
	require.Len(t, byInst, 1)
	assert.Equal(t, "3", byInst[0].ID)
}
