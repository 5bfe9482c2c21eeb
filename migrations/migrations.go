// Package migrations embeds the users schema for every supported dialect and
// applies it with golang-migrate over an already-open *db.DB.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	mmysql "github.com/golang-migrate/migrate/v4/database/mysql"
	mpostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/Skryldev/userstore/db"
)

//go:embed postgres/*.sql mysql/*.sql sqlite3/*.sql
var files embed.FS

// Dir returns the embedded directory holding the migrations for driverName.
func Dir(driverName string) (string, error) {
	switch driverName {
	case "postgres", "pgx":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite3":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("migrations: unsupported driver %q", driverName)
}

// Source returns the embedded migrations for driverName as a migrate source.
func Source(driverName string) (source.Driver, error) {
	dir, err := Dir(driverName)
	if err != nil {
		return nil, err
	}
	return iofs.New(files, dir)
}

// ─────────────────────────────────────────────────────────────────────────────
// Runner
// ─────────────────────────────────────────────────────────────────────────────

// Runner applies the embedded migrations to one database. Close releases
// what the Runner borrowed and never closes the *db.DB itself.
type Runner struct {
	m       *migrate.Migrate
	release func() error
}

// NewRunner binds the embedded migrations for d's driver to d.
//
// Postgres and MySQL get a dedicated connection from d's pool, returned by
// Close. SQLite shares d directly.
func NewRunner(ctx context.Context, d *db.DB, log *zap.Logger) (*Runner, error) {
	src, err := Source(d.DriverName())
	if err != nil {
		return nil, err
	}

	var (
		drv     database.Driver
		release func() error
	)
	switch d.DriverName() {
	case "postgres", "pgx":
		conn, err := d.Raw().Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrations: conn: %w", err)
		}
		drv, err = mpostgres.WithConnection(ctx, conn, &mpostgres.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrations: postgres: %w", err)
		}
	case "mysql":
		conn, err := d.Raw().Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrations: conn: %w", err)
		}
		drv, err = mmysql.WithConnection(ctx, conn, &mmysql.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrations: mysql: %w", err)
		}
	case "sqlite3":
		drv, err = msqlite.WithInstance(d.Raw().DB, &msqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("migrations: sqlite3: %w", err)
		}
	}

	m, err := migrate.NewWithInstance("iofs", src, d.DriverName(), drv)
	if err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	if log != nil {
		m.Log = &zapLogger{log: log.Named("migrate")}
	}

	if d.DriverName() != "sqlite3" {
		// The sqlite3 migrate driver closes the shared *sql.DB on Close, so
		// only the connection-scoped drivers are released.
		release = func() error {
			srcErr, dbErr := m.Close()
			return errors.Join(srcErr, dbErr)
		}
	}
	return &Runner{m: m, release: release}, nil
}

// Up applies every pending migration. Already being current is not an error.
func (r *Runner) Up() error {
	if err := r.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// Down rolls back n migrations.
func (r *Runner) Down(n int) error {
	if n < 1 {
		return fmt.Errorf("migrations: down: invalid step count %d", n)
	}
	if err := r.m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: down: %w", err)
	}
	return nil
}

// Version reports the applied version. A database with no migrations
// reports 0.
func (r *Runner) Version() (version uint, dirty bool, err error) {
	version, dirty, err = r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Force sets the version without running anything, clearing a dirty flag.
func (r *Runner) Force(version int) error {
	return r.m.Force(version)
}

// Drop removes every table in the database.
func (r *Runner) Drop() error {
	return r.m.Drop()
}

// Close releases the connection borrowed by NewRunner.
func (r *Runner) Close() error {
	if r.release == nil {
		return nil
	}
	return r.release()
}

// Up is the one-call form used at startup.
func Up(ctx context.Context, d *db.DB, log *zap.Logger) error {
	r, err := NewRunner(ctx, d, log)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Up()
}

// ─────────────────────────────────────────────────────────────────────────────

type zapLogger struct{ log *zap.Logger }

func (l *zapLogger) Printf(format string, v ...any) {
	l.log.Sugar().Infof(format, v...)
}

func (l *zapLogger) Verbose() bool { return false }
