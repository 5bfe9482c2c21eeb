// Package app wires configuration, logging, the database and the user
// repository together for the binaries in cmd/ and the walkthrough in main.go.
package app

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Skryldev/userstore/config"
	"github.com/Skryldev/userstore/db"
	"github.com/Skryldev/userstore/logging"
	"github.com/Skryldev/userstore/migrations"
	"github.com/Skryldev/userstore/repo"
	"github.com/Skryldev/userstore/validator"
)

// App is a ready-to-use set of collaborators. Close releases them.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *db.DB
	Users  repo.UserRepository

	// Metrics is nil unless Monitoring.MetricsEnabled.
	Metrics *prometheus.Registry
}

// New builds the logger, opens the database with the configured hooks,
// applies migrations when AutoMigrate is set and returns the repository.
// A nil log builds one from cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		var err error
		log, err = logging.New(cfg.App.Env.IsDev(), cfg.App.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("app: logger: %w", err)
		}
	}

	a := &App{Config: cfg, Log: log}

	hooks := []db.Hook{
		db.NewLogHook(db.LogHookConfig{
			Logger:             log.Named("db"),
			SlowQueryThreshold: cfg.Database.SlowQuery,
			LogArgs:            cfg.Database.LogArgs && cfg.App.Env.IsDev(),
		}),
	}
	if cfg.Monitoring.MetricsEnabled {
		a.Metrics = prometheus.NewRegistry()
		collector, err := db.NewPrometheusCollector(a.Metrics, "userstore")
		if err != nil {
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
		hooks = append(hooks, db.NewMetricsHook(collector))
	}
	if cfg.Monitoring.TracingEnabled {
		hooks = append(hooks, db.NewTracingHook(db.NewOTelTracer(nil, cfg.Database.Driver)))
	}

	d, err := db.Open(cfg.DBConfig(hooks...))
	if err != nil {
		return nil, err
	}
	a.DB = d

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, d, log); err != nil {
			_ = d.Close()
			return nil, err
		}
	}

	a.Users = repo.NewUserRepo(d,
		repo.WithLogger(log),
		repo.WithValidator(validator.New(validator.RequirePassword(cfg.Security.RequirePassword))),
	)

	log.Debug("app ready",
		zap.String("env", string(cfg.App.Env)),
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("metrics", a.Metrics != nil),
	)
	return a, nil
}

// Close logs the statement counters, if any, and closes the database.
func (a *App) Close() error {
	if a.Metrics != nil {
		a.logCounters()
	}
	err := a.DB.Close()
	logging.Sync(a.Log)
	return err
}

func (a *App) logCounters() {
	families, err := a.Metrics.Gather()
	if err != nil {
		a.Log.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			fields := []zap.Field{zap.String("metric", mf.GetName()), zap.Float64("value", c.GetValue())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			a.Log.Info("db counter", fields...)
		}
	}
}
