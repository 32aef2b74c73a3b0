package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/folio"
	"github.com/xela07ax/gad-tramites/internal/infra/auth"
	"github.com/xela07ax/gad-tramites/internal/render"
	"github.com/xela07ax/gad-tramites/internal/repository/memory"
	"github.com/xela07ax/gad-tramites/internal/workflow"
)

func TestAuthService_GenerateToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	hash, err := HashPassword("s3creto", bcrypt.MinCost)
	require.NoError(t, err)

	users := memory.NewUserStore(
		domain.User{ID: "u-1", Username: "lruiz", FullName: "Luis Ruiz", PasswordHash: hash, Active: true,
			Scopes: map[string]bool{domain.ScopeReview: true}},
		domain.User{ID: "u-2", Username: "baja", FullName: "Ex Empleado", PasswordHash: hash, Active: false},
	)
	svc := NewAuthService(users, key, "gad-tramites", time.Hour)

	resp, err := svc.GenerateToken(context.Background(), "lruiz", "s3creto")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := auth.NewBaseValidator(&key.PublicKey, "gad-tramites").VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Luis Ruiz", claims.Name)
	assert.True(t, claims.Scopes[domain.ScopeReview])

	for _, tc := range []struct{ user, pass string }{
		{"lruiz", "wrong"},
		{"nadie", "s3creto"},
		{"baja", "s3creto"},
	} {
		_, err := svc.GenerateToken(context.Background(), tc.user, tc.pass)
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials, tc.user)
	}
}

func TestCatalogService_Upsert(t *testing.T) {
	ctx := context.Background()
	catalog := memory.NewCatalogStore()
	instances := memory.NewInstanceStore()
	svc := NewCatalogService(catalog, instances, workflow.NewLocker(4), zap.NewNop())

	def := &domain.ProcedureDefinition{ID: "PERM-OBRA", Name: "Permiso de construcción", Category: domain.CategoryPermit, CostCents: 5000, Active: true}
	saved, err := svc.Upsert(ctx, def)
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())

	_, err = svc.Upsert(ctx, &domain.ProcedureDefinition{ID: "X", Name: "Sin categoría"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, instances.Create(ctx, &domain.ProcedureInstance{ID: "i-1", DefinitionID: "PERM-OBRA", State: domain.StateSubmitted}))

	priced := *def
	priced.CostCents = 9000
	_, err = svc.Upsert(ctx, &priced)
	assert.ErrorIs(t, err, domain.ErrStateConflict, "cost is frozen while instances are open")

	retired := *def
	retired.Active = false
	_, err = svc.Upsert(ctx, &retired)
	require.NoError(t, err)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

// racingChecker запускает действие в момент проверки открытых заявок.
type racingChecker struct {
	*memory.InstanceStore
	during func()
}

func (c *racingChecker) HasOpenInstances(ctx context.Context, definitionID string) (bool, error) {
	if c.during != nil {
		c.during()
		c.during = nil
	}
	return c.InstanceStore.HasOpenInstances(ctx, definitionID)
}

func TestCatalogService_UpsertExcludesConcurrentDrafts(t *testing.T) {
	ctx := context.Background()
	def := domain.ProcedureDefinition{ID: "CERT-RES", Name: "Certificado de residencia", Category: domain.CategoryCertification, Active: true}
	catalog := memory.NewCatalogStore(def)
	instances := memory.NewInstanceStore()
	locker := workflow.NewLocker(4)

	engine := workflow.NewEngine(instances, catalog,
		folio.NewIssuer("GAD", time.UTC, folio.NewMemorySequencer()),
		render.NewTemplateRenderer("GAD", time.UTC),
		zap.NewNop(),
		workflow.WithLocker(locker),
	)
	checker := &racingChecker{InstanceStore: instances}
	svc := NewCatalogService(catalog, checker, locker, zap.NewNop())

	created := make(chan error, 1)
	interleaved := false
	checker.during = func() {
		go func() {
			_, err := engine.CreateDraft(ctx, def.ID, domain.Citizen{Name: "Ana Torres", DocumentNumber: "1712345678"}, "")
			created <- err
		}()
		select {
		case <-created:
			interleaved = true
		case <-time.After(50 * time.Millisecond):
		}
	}

	priced := def
	priced.CostCents = 300
	_, err := svc.Upsert(ctx, &priced)
	require.NoError(t, err)
	assert.False(t, interleaved, "draft was created between the open-instance check and the write")
	if !interleaved {
		require.NoError(t, <-created)
	}

	// Черновик создан уже по новой цене и теперь замораживает запись
	again := priced
	again.CostCents = 0
	_, err = svc.Upsert(ctx, &again)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

type fixedStats struct{ since time.Time }

func (f *fixedStats) Stats(_ context.Context, since time.Time) (*domain.DashboardStats, error) {
	f.since = since
	s := &domain.DashboardStats{}
	s.Fill()
	return s, nil
}

func TestDashboardService_UsesOfficeMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/Guayaquil")
	require.NoError(t, err)
	repo := &fixedStats{}
	svc := NewDashboardService(repo, loc)
	// 03:00 UTC — еще предыдущий день в Гуаякиле (UTC-5)
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC) }

	_, err = svc.GetGlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 3, 0, 0, 0, 0, loc), repo.since)
}

func TestInboxService_List(t *testing.T) {
	ctx := context.Background()
	instances := memory.NewInstanceStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, instances.Create(ctx, &domain.ProcedureInstance{ID: id, State: domain.StateSubmitted, CreatedAt: time.Now()}))
	}
	svc := NewInboxService(instances)

	page, err := svc.List(ctx, domain.InstanceFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Limit)

	_, err = svc.Get(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
