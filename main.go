// Command userstore walks through every repository operation against the
// configured database (a SQLite file by default, see config.Load):
//
//  1. Config, logger, DB with hooks, migrations
//  2. Create
//  3. FindByID / FindByEmail
//  4. Update: rejected for another identity, accepted for self
//  5. FindMany with pagination and total count
//  6. Error kinds
//  7. Retry around a repository call
//  8. Delete
//  9. Pool stats
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skryldev/userstore/app"
	"github.com/Skryldev/userstore/appctx"
	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/config"
	"github.com/Skryldev/userstore/db"
	"github.com/Skryldev/userstore/models"
)

func main() {
	// ── 1. Bootstrap ─────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	log := a.Log
	users := a.Users

	// Every call gets a request id; identities are layered on per call.
	root := appctx.WithRequestID(appctx.From(ctx), uuid.NewString())

	// ── 2. Create ────────────────────────────────────────────────────────
	suffix := time.Now().UnixNano()
	hash, err := models.HashPassword("correct horse", cfg.Security.BcryptCost)
	if err != nil {
		log.Fatal("hash password", zap.Error(err))
	}

	alice := &models.User{
		Name:     "Alice Smith",
		Email:    fmt.Sprintf("alice-%d@example.com", suffix),
		Password: &hash,
	}
	if err := users.Create(root, alice); err != nil {
		log.Fatal("create alice", zap.Error(err))
	}
	log.Info("created user", zap.Int64("id", alice.ID), zap.String("email", alice.Email))

	bob := &models.User{Name: "Bob Builder", Email: fmt.Sprintf("bob-%d@example.com", suffix), Password: &hash}
	if err := users.Create(root, bob); err != nil {
		log.Fatal("create bob", zap.Error(err))
	}

	// ── 3. Find ──────────────────────────────────────────────────────────
	fetched, err := users.FindByID(root, alice.ID)
	if err != nil {
		log.Fatal("find alice", zap.Error(err))
	}
	log.Info("fetched user", zap.String("name", fetched.Name),
		zap.Bool("password_ok", fetched.CheckPassword("correct horse")))

	if _, err := users.FindByEmail(root, bob.Email); err != nil {
		log.Fatal("find bob by email", zap.Error(err))
	}

	// ── 4. Update ────────────────────────────────────────────────────────
	asBob := appctx.WithUser(root, *bob)
	asAlice := appctx.WithUser(root, *alice)

	_, err = users.Update(asBob, alice.ID, models.UserUpdate{Name: models.Ptr("Mallory")})
	if apperr.IsUnauthorized(err) {
		log.Info("bob may not rename alice", zap.Error(err))
	}

	renamed, err := users.Update(asAlice, alice.ID, models.UserUpdate{Name: models.Ptr("Alice Johnson")})
	if err != nil {
		log.Fatal("rename alice", zap.Error(err))
	}
	log.Info("updated user", zap.String("name", renamed.Name), zap.Time("updated_at", renamed.UpdatedAt))

	// ── 5. FindMany ──────────────────────────────────────────────────────
	page, total, err := users.FindMany(root, models.UserFilter{Limit: 10})
	if err != nil {
		log.Fatal("list users", zap.Error(err))
	}
	log.Info("listed users", zap.Int("page", len(page)), zap.Int64("total", total))

	// ── 6. Error kinds ───────────────────────────────────────────────────
	_, err = users.FindByID(root, 0)
	switch {
	case apperr.IsNotFound(err):
		log.Info("correctly handled not-found")
	case apperr.IsTimeout(err):
		log.Error("query timed out")
	case err != nil:
		log.Error("unexpected error", zap.Error(err))
	}

	err = users.Create(root, &models.User{Name: "Alice Again", Email: alice.Email})
	if apperr.IsConflict(err) {
		log.Info("correctly caught duplicate email")
	}
	// The driver error stays reachable under the domain error.
	var dbErr *db.DBError
	if errors.As(err, &dbErr) {
		log.Debug("raw driver error", zap.NamedError("cause", dbErr.Cause))
	}

	err = users.Create(root, &models.User{Name: "", Email: "nobody@example.com"})
	if apperr.IsInvalidArgument(err) {
		log.Info("correctly rejected invalid user", zap.Error(err))
	}

	// ── 7. Retry ─────────────────────────────────────────────────────────
	//
	// The repository never retries. Callers that want to can wrap a call;
	// db sentinels stay visible through the apperr wrapper.
	err = db.WithRetry(ctx, db.RetryConfig{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
		RetryOn: func(err error) bool {
			return db.IsDeadlock(err) || apperr.IsTimeout(err)
		},
	}, func() error {
		_, _, err := users.FindMany(root, models.UserFilter{Name: models.Ptr("Bob Builder")})
		return err
	})
	if err != nil {
		log.Error("retry operation failed", zap.Error(err))
	}

	// ── 8. Delete ────────────────────────────────────────────────────────
	for _, u := range []*models.User{alice, bob} {
		if err := users.Delete(appctx.WithUser(root, *u), u.ID); err != nil {
			log.Fatal("delete user", zap.Int64("id", u.ID), zap.Error(err))
		}
		log.Info("deleted user", zap.Int64("id", u.ID))
	}

	// ── 9. Health check / pool stats ─────────────────────────────────────
	if err := a.DB.Ping(ctx); err != nil {
		log.Error("health check failed", zap.Error(err))
	} else {
		stats := a.DB.Stats()
		log.Info("pool stats",
			zap.Int("open", stats.OpenConnections),
			zap.Int("idle", stats.Idle),
			zap.Int("in_use", stats.InUse),
			zap.Int64("wait_count", stats.WaitCount),
		)
	}

	log.Info("walkthrough completed")
}
