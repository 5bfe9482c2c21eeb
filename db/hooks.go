package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────────────────────
// Hook interface
// ─────────────────────────────────────────────────────────────────────────────

// Hook is called before and after every statement execution.
//
// Implementations MUST be goroutine-safe and SHOULD be non-blocking.
// Panics inside a hook are recovered by the hook chain and logged.
type Hook interface {
	// BeforeQuery is invoked immediately before the statement is sent to the
	// driver.
	BeforeQuery(ctx context.Context, query string, args []any)

	// AfterQuery is invoked after the driver returns. err is the already
	// mapped error returned to the caller, nil on success.
	AfterQuery(ctx context.Context, query string, args []any, duration time.Duration, err error)
}

// ─────────────────────────────────────────────────────────────────────────────
// hookChain
// ─────────────────────────────────────────────────────────────────────────────

type hookChain struct {
	hooks []Hook
}

func newHookChain(hooks []Hook) hookChain {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return hookChain{hooks: filtered}
}

func (c hookChain) Before(ctx context.Context, query string, args []any) {
	for _, h := range c.hooks {
		safeBeforeQuery(h, ctx, query, args)
	}
}

func (c hookChain) After(ctx context.Context, query string, args []any, d time.Duration, err error) {
	for _, h := range c.hooks {
		safeAfterQuery(h, ctx, query, args, d, err)
	}
}

func safeBeforeQuery(h Hook, ctx context.Context, query string, args []any) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("userstore/db: hook panic in BeforeQuery", zap.Any("panic", r))
		}
	}()
	h.BeforeQuery(ctx, query, args)
}

func safeAfterQuery(h Hook, ctx context.Context, query string, args []any, d time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("userstore/db: hook panic in AfterQuery", zap.Any("panic", r))
		}
	}()
	h.AfterQuery(ctx, query, args, d, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging hook
// ─────────────────────────────────────────────────────────────────────────────

// LogHookConfig configures the structured logging hook.
type LogHookConfig struct {
	// Logger defaults to zap.L() if nil.
	Logger *zap.Logger
	// SlowQueryThreshold logs a warning when duration exceeds this value.
	// Zero disables slow-query logging.
	SlowQueryThreshold time.Duration
	// LogArgs includes bound parameters in log entries. Arguments may carry
	// passwords; keep it off outside development.
	LogArgs bool
}

// NewLogHook returns a Hook that emits structured log entries via zap.
func NewLogHook(cfg LogHookConfig) Hook {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &logHook{cfg: cfg, logger: logger}
}

type logHook struct {
	cfg    LogHookConfig
	logger *zap.Logger
}

func (h *logHook) BeforeQuery(_ context.Context, _ string, _ []any) {}

func (h *logHook) AfterQuery(_ context.Context, query string, args []any, d time.Duration, err error) {
	fields := []zap.Field{
		zap.String("query", trimQuery(query)),
		zap.Duration("duration", d),
	}
	if h.cfg.LogArgs && len(args) > 0 {
		fields = append(fields, zap.Any("args", args))
	}

	if err != nil {
		// Missing rows are an expected outcome, not a failure.
		if IsNotFound(err) {
			h.logger.Debug("userstore/db: query returned no rows", fields...)
			return
		}
		h.logger.Error("userstore/db: query error", append(fields, zap.Error(err))...)
		return
	}

	if h.cfg.SlowQueryThreshold > 0 && d > h.cfg.SlowQueryThreshold {
		h.logger.Warn("userstore/db: slow query", fields...)
		return
	}

	h.logger.Debug("userstore/db: query", fields...)
}

func trimQuery(q string) string {
	if len(q) > 500 {
		return q[:500] + "…"
	}
	return q
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics hook
// ─────────────────────────────────────────────────────────────────────────────

// MetricsCollector is implemented by the metrics backend. See
// PrometheusCollector.
type MetricsCollector interface {
	// RecordQuery is called after every statement.
	RecordQuery(query string, duration time.Duration, success bool)
}

// NewMetricsHook returns a Hook that delegates to a MetricsCollector.
func NewMetricsHook(collector MetricsCollector) Hook {
	return &metricsHook{c: collector}
}

type metricsHook struct{ c MetricsCollector }

func (h *metricsHook) BeforeQuery(_ context.Context, _ string, _ []any) {}
func (h *metricsHook) AfterQuery(_ context.Context, query string, _ []any, d time.Duration, err error) {
	h.c.RecordQuery(query, d, err == nil || IsNotFound(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Tracing hook
// ─────────────────────────────────────────────────────────────────────────────

// Tracer is implemented by the tracing backend. See OTelTracer.
type Tracer interface {
	// StartSpan returns a context carrying a new span for query.
	StartSpan(ctx context.Context, query string) context.Context
	// EndSpan finishes the span carried by ctx.
	EndSpan(ctx context.Context, err error)
}

// NewTracingHook returns a Hook wrapping a Tracer. Spans are recorded after
// the fact with the measured duration as their extent.
func NewTracingHook(t Tracer) Hook { return &tracingHook{t: t} }

type tracingHook struct{ t Tracer }

func (h *tracingHook) BeforeQuery(_ context.Context, _ string, _ []any) {}
func (h *tracingHook) AfterQuery(ctx context.Context, query string, _ []any, _ time.Duration, err error) {
	spanCtx := h.t.StartSpan(ctx, query)
	h.t.EndSpan(spanCtx, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Composite hook
// ─────────────────────────────────────────────────────────────────────────────

// CompositeHook combines multiple hooks into one.
func CompositeHook(hooks ...Hook) Hook { return &compositeHook{hooks: hooks} }

type compositeHook struct{ hooks []Hook }

func (c *compositeHook) BeforeQuery(ctx context.Context, q string, args []any) {
	for _, h := range c.hooks {
		h.BeforeQuery(ctx, q, args)
	}
}
func (c *compositeHook) AfterQuery(ctx context.Context, q string, args []any, d time.Duration, err error) {
	for _, h := range c.hooks {
		h.AfterQuery(ctx, q, args, d, err)
	}
}
