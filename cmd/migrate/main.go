package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/Skryldev/userstore/config"
	"github.com/Skryldev/userstore/db"
	"github.com/Skryldev/userstore/logging"
	"github.com/Skryldev/userstore/migrations"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.App.Env.IsDev(), cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	ctx := context.Background()

	database, err := db.Open(cfg.DBConfig())
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	r, err := migrations.NewRunner(ctx, database, log)
	if err != nil {
		log.Fatal("migration init failed", zap.Error(err))
	}
	defer r.Close()

	if err := execute(r, args, log); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func execute(r *migrations.Runner, args []string, log *zap.Logger) error {
	switch args[0] {
	case "up":
		if err := r.Up(); err != nil {
			return err
		}
		log.Info("migrations: up completed")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := r.Down(steps); err != nil {
			return err
		}
		log.Info("migrations: down completed", zap.Int("steps", steps))

	case "version":
		v, dirty, err := r.Version()
		if err != nil {
			return fmt.Errorf("version failed: %w", err)
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("force: invalid version %q", args[1])
		}
		if err := r.Force(v); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		log.Info("migrations: forced", zap.Int("version", v))

	case "drop":
		fmt.Fprintln(os.Stderr, "WARNING: drop will destroy all tables. Type 'yes' to confirm:")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			fmt.Println("aborted")
			return nil
		}
		if err := r.Drop(); err != nil {
			return fmt.Errorf("drop failed: %w", err)
		}
		log.Info("migrations: all tables dropped")

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Rollback N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version (bypass dirty state)
  drop         Drop all tables (dev only)

Environment (also read from .env):
  DB_DRIVER    postgres, pgx, mysql or sqlite3 (default: sqlite3)
  DB_DSN       Driver-specific data source name
  APP_ENV      local, development, testing, staging or production
  LOG_LEVEL    debug, info, warn or error`)
}
