package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Skryldev/userstore/appctx"
	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/validator"
)

// Option configures either repository backend.
type Option func(*options)

type options struct {
	log       *zap.Logger
	validator *validator.Validator
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		log:       zap.NewNop(),
		validator: validator.New(),
		now:       time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the operation logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l.Named("repo")
		}
	}
}

// WithValidator replaces the default validator, e.g. one built with
// validator.RequirePassword(true).
func WithValidator(v *validator.Validator) Option {
	return func(o *options) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithClock overrides the timestamp source. Tests use it to pin time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// stamp returns the current time in the precision every supported store keeps.
func (o *options) stamp() time.Time {
	return o.now().UTC().Truncate(time.Microsecond)
}

// logOp records the outcome of one repository call.
func (o *options) logOp(ctx context.Context, op string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int64("actor_id", appctx.UserIDFromContext(ctx)),
		zap.Duration("duration", time.Since(start)),
	}
	if rid := appctx.RequestIDFromContext(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}

	switch {
	case err == nil:
		o.log.Debug("user op", fields...)
	case apperr.IsInternal(err):
		fields = append(fields, zap.Error(err), zap.Bool("timeout", apperr.IsTimeout(err)))
		o.log.Error("user op failed", fields...)
	default:
		fields = append(fields, zap.Error(err))
		o.log.Info("user op rejected", fields...)
	}
}
