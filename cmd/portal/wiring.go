package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xela07ax/gad-tramites/internal/audit"
	"github.com/xela07ax/gad-tramites/internal/console/service"
	"github.com/xela07ax/gad-tramites/internal/db"
	"github.com/xela07ax/gad-tramites/internal/db/migrate"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/folio"
	"github.com/xela07ax/gad-tramites/internal/infra"
	"github.com/xela07ax/gad-tramites/internal/infra/auth"
	"github.com/xela07ax/gad-tramites/internal/notify"
	"github.com/xela07ax/gad-tramites/internal/render"
	"github.com/xela07ax/gad-tramites/internal/repository/memory"
	"github.com/xela07ax/gad-tramites/internal/repository/postgres"
	"github.com/xela07ax/gad-tramites/internal/workflow"
)

// instanceStore — все, что портал читает и пишет о заявках.
type instanceStore interface {
	workflow.InstanceStore
	service.InstanceLister
	service.OpenInstanceChecker
	service.StatsProvider
	GetByFolio(ctx context.Context, folio string) (*domain.ProcedureInstance, error)
}

type catalogStore interface {
	service.CatalogRepository
}

type userStore interface {
	service.AuthProvider
	SaveUser(ctx context.Context, u *domain.User) error
}

type journalStore interface {
	audit.StorageInterface
	service.AuditLogProvider
}

type backends struct {
	instances    instanceStore
	catalog      catalogStore
	users        userStore
	journalStore journalStore
	folios       *folio.Issuer
	renderer     render.Renderer
	notifier     workflow.Notifier

	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackends(ctx context.Context, cfg *infra.Config, loc *time.Location, logger *zap.Logger) (*backends, error) {
	b := &backends{}
	w := cfg.Workflow

	// 1. Хранилище заявок, каталога, сотрудников и журнала
	var pgRepo *postgres.Repo
	switch w.Storage {
	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := migrate.Run(cfg.Database.URL, "up"); err != nil {
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		pool, err := db.Open(ctx, cfg.Database.URL, db.PoolOptions{MaxConns: cfg.Database.MaxConns, MinConns: cfg.Database.MinConns})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		pgRepo = postgres.NewRepo(pool)
		b.instances, b.catalog, b.users, b.journalStore = pgRepo, pgRepo, pgRepo, pgRepo
	default:
		logger.Warn("in-memory storage selected, data is lost on restart")
		b.instances = memory.NewInstanceStore()
		b.catalog = memory.NewCatalogStore(memory.SeedCatalog(time.Now())...)
		b.users = memory.NewUserStore()
		b.journalStore = memory.NewJournalStore()
	}

	// 2. Redis: счетчик фолио и сигналы смены статуса
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			b.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.notifier = notify.NewRedisPublisher(rdb)
	}

	// 3. Счетчик фолио
	var seq folio.Sequencer
	switch w.FolioBackend {
	case "redis":
		if rdb == nil {
			b.Close()
			return nil, errors.New("workflow.folio_backend=redis requires redis.addr")
		}
		seq = folio.NewRedisSequencer(rdb)
	case "postgres":
		if pgRepo == nil {
			b.Close()
			return nil, errors.New("workflow.folio_backend=postgres requires workflow.storage=postgres")
		}
		seq = postgres.NewFolioSequencer(pgRepo)
	default:
		seq = folio.NewMemorySequencer()
	}
	b.folios = folio.NewIssuer(w.OfficePrefix, loc, seq)

	// 4. Рендер документов
	switch w.Renderer {
	case "grpc":
		conn, err := grpc.NewClient(w.RendererAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("renderer client: %w", err)
		}
		b.closers = append(b.closers, func() { _ = conn.Close() })
		b.renderer = render.NewReliabilityWrapper(render.NewGRPCRenderer(conn, w.RenderTimeout), render.ReliabilitySettings{
			MaxRequests: w.CBMaxRequests,
			Interval:    w.CBInterval,
			Timeout:     w.CBTimeout,
			Attempts:    w.RenderAttempts,
			RatePerSec:  w.RenderRatePerSec,
			Burst:       w.RenderBurst,
		})
	default:
		b.renderer = render.NewTemplateRenderer(w.OfficeName, loc)
	}

	return b, nil
}

// loadSigningKeys читает RSA пару. Без ключей (локальный запуск) генерируется временная пара:
// выданные токены перестают действовать после перезапуска.
func loadSigningKeys(cfg infra.AuthConfig, logger *zap.Logger) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if len(cfg.PrivateKey) == 0 {
		logger.Warn("auth keys are not configured, using an ephemeral RSA key pair")
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, nil, fmt.Errorf("generate rsa key: %w", err)
		}
		return key, &key.PublicKey, nil
	}

	priv, err := auth.ParseRSAPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.PublicKey) == 0 {
		return priv, &priv.PublicKey, nil
	}
	pub, err := auth.ParseRSAPublicKey(cfg.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

// bootstrapStaff заводит первого сотрудника со всеми правами.
func bootstrapStaff(ctx context.Context, cfg infra.AuthConfig, users userStore, logger *zap.Logger) error {
	if cfg.BootstrapUser == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	hash, err := service.HashPassword(cfg.BootstrapPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	now := time.Now()
	u := &domain.User{
		ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte(cfg.BootstrapUser)).String(),
		Username:     cfg.BootstrapUser,
		FullName:     cfg.BootstrapUser,
		PasswordHash: hash,
		Scopes: map[string]bool{
			domain.ScopeReview:   true,
			domain.ScopeCashier:  true,
			domain.ScopeDeliver:  true,
			domain.ScopeCatalog:  true,
			domain.ScopeAuditLog: true,
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("bootstrap staff user: %w", err)
	}
	logger.Info("bootstrap staff user ready", zap.String("username", u.Username))
	return nil
}

