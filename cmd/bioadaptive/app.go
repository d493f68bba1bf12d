package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bioadaptive/backend/internal/audit"
	auditrepo "bioadaptive/backend/internal/audit/repository"
	"bioadaptive/backend/internal/config"
	"bioadaptive/backend/internal/db"
	"bioadaptive/backend/internal/health"
	"bioadaptive/backend/internal/planner/engine"
	"bioadaptive/backend/internal/planner/policy"
	"bioadaptive/backend/internal/planner/service"
	"bioadaptive/backend/internal/planner/store"
	telemetryotel "bioadaptive/backend/internal/telemetry/otel"
)

const shutdownTimeout = 5 * time.Second

// app is the wired planner with its backing services.
type app struct {
	logger  *zap.Logger
	planner *service.PlannerService
	audits  auditrepo.Repository
	health  *health.Checker
	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger}
	if err := a.wire(ctx, cfg); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config) error {
	logger := a.logger
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	a.closers = append(a.closers, providers.Shutdown)

	engCfg, err := engineConfig(cfg)
	if err != nil {
		return err
	}

	modules, err := policy.LoadModules(cfg.GuardrailPolicyDir)
	if err != nil {
		return err
	}
	guardrails, err := policy.NewOPAEvaluator(ctx, modules)
	if err != nil {
		return err
	}

	var (
		st     store.Store
		pinger health.Pinger
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return conn.Close() })
		st = store.NewPostgresStore(conn)
		a.audits = auditrepo.NewPostgresRepository(conn)
		pinger = conn
	default:
		st = store.NewMemoryStore()
		a.audits = auditrepo.NewMemoryRepository()
	}

	a.planner = service.NewPlannerService(
		st,
		engine.New(engCfg),
		guardrails,
		audit.NewLogger(a.audits, logger),
		telemetryotel.NewEventEmitter(providers.LoggerProvider),
		logger,
	)
	a.health = health.NewChecker(pinger, guardrails)

	logger.Debug("planner ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("engine_config", engCfg.Version),
		zap.Int("history_days", engCfg.Thresholds.HistoryDays),
		zap.Int("policy_modules", len(modules)),
	)
	return nil
}

// engineConfig loads ENGINE_CONFIG_FILE over the defaults. HISTORY_DAYS always wins over the
// file's history_days so one setting controls how much history is read.
func engineConfig(cfg *config.Config) (engine.Config, error) {
	engCfg := engine.DefaultConfig()
	if cfg.EngineConfigFile != "" {
		loaded, err := engine.LoadConfig(cfg.EngineConfigFile)
		if err != nil {
			return engine.Config{}, err
		}
		engCfg = loaded
	}
	engCfg.Thresholds.HistoryDays = cfg.HistoryDays
	if err := engCfg.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("HISTORY_DAYS=%d: %w", cfg.HistoryDays, err)
	}
	return engCfg, nil
}

func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
	}
	a.closers = nil
}
