package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/gad-tramites/internal/audit"
	"github.com/xela07ax/gad-tramites/internal/console/handler"
	"github.com/xela07ax/gad-tramites/internal/console/server"
	"github.com/xela07ax/gad-tramites/internal/console/service"
	"github.com/xela07ax/gad-tramites/internal/infra"
	"github.com/xela07ax/gad-tramites/internal/infra/auth"
	"github.com/xela07ax/gad-tramites/internal/tracking"
	"github.com/xela07ax/gad-tramites/internal/workflow"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("portal stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст жизненного цикла: SIGINT/SIGTERM запускают graceful shutdown
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Workflow.Location()
	if err != nil {
		return err
	}

	// 1. Инфраструктура: хранилища, Redis, рендер
	deps, err := buildBackends(appCtx, cfg, loc, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := workflow.NewMetrics(reg)

	// 3. Журнал действий (асинхронный, пакетный)
	journal := audit.NewJournal(deps.journalStore, logger, audit.Options{
		BufferSize:    cfg.Journal.BufferSize,
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		BufferGauge:   metrics.JournalBufferFill,
	})
	journal.Start()
	defer journal.Stop()

	// 4. Ядро. Замки общие для ядра и каталога
	locker := workflow.NewLocker(cfg.Workflow.LockShards)
	opts := []workflow.Option{
		workflow.WithJournal(journal),
		workflow.WithMetrics(metrics),
		workflow.WithLocker(locker),
		workflow.WithRenderTimeout(cfg.Workflow.RenderTimeout),
	}
	if deps.notifier != nil {
		opts = append(opts, workflow.WithNotifier(deps.notifier))
	}
	engine := workflow.NewEngine(deps.instances, deps.catalog, deps.folios, deps.renderer, logger, opts...)

	// 5. Аутентификация сотрудников
	privateKey, publicKey, err := loadSigningKeys(cfg.Auth, logger)
	if err != nil {
		return err
	}
	if err := bootstrapStaff(appCtx, cfg.Auth, deps.users, logger); err != nil {
		return err
	}

	// 6. HTTP слой
	srv := server.NewServer(logger,
		auth.NewBaseValidator(publicKey, cfg.Auth.Issuer),
		handler.NewAuthHandler(service.NewAuthService(deps.users, privateKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL), logger),
		handler.NewCatalogHandler(service.NewCatalogService(deps.catalog, deps.instances, locker, logger), logger),
		handler.NewTramiteHandler(engine, service.NewInboxService(deps.instances), logger),
		handler.NewTrackingHandler(tracking.NewService(deps.instances, deps.catalog, cfg.Tracking.ExposePersonalData, logger), logger),
		handler.NewDashboardHandler(service.NewDashboardService(deps.instances, loc), logger),
		handler.NewAuditHandler(service.NewAuditService(deps.journalStore), logger),
	)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("metrics endpoint started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		logger.Info("portal API started",
			zap.String("addr", httpSrv.Addr),
			zap.String("storage", cfg.Workflow.Storage),
			zap.String("folio_backend", cfg.Workflow.FolioBackend),
			zap.String("renderer", cfg.Workflow.Renderer))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-appCtx.Done():
		logger.Info("portal stopping...")
	case err := <-errCh:
		return err
	}

	// 7. Graceful Shutdown: сначала перестаем принимать запросы, затем дописываем журнал (defer)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	logger.Info("portal exited properly")
	return nil
}
