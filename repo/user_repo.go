package repo

import (
	"context"
	"sync"
	"time"

	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/db"
	"github.com/Skryldev/userstore/models"
	"github.com/Skryldev/userstore/validator"
)

// ─────────────────────────────────────────────────────────────────────────────
// UserRepository interface, for mocking in tests
// ─────────────────────────────────────────────────────────────────────────────

// UserRepository is the user persistence contract. The acting identity for
// Delete and Update is read from ctx with appctx.UserIDFromContext.
//
// Errors are *apperr.Error values: InvalidArgument, NotFound, Unauthorized,
// Conflict or Internal.
type UserRepository interface {
	// Create validates u, stores it and writes the new id back into u.
	// CreatedAt and UpdatedAt are overwritten with the current time.
	Create(ctx context.Context, u *models.User) error
	// Delete removes user id. Only that user may delete itself.
	Delete(ctx context.Context, id int64) error
	// Update applies patch to user id and returns the stored result. Only
	// that user may update itself.
	Update(ctx context.Context, id int64, patch models.UserUpdate) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindMany returns one page of matches ordered by id and the number of
	// matches before pagination.
	FindMany(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// sqlRepo: database/sql implementation
// ─────────────────────────────────────────────────────────────────────────────

// sqlRepo runs every operation in its own transaction. mu serializes whole
// transactions so no two operations interleave on the shared handle.
type sqlRepo struct {
	mu   sync.Mutex
	db   *db.DB
	opts options
}

// NewUserRepo returns a UserRepository backed by d. The users table must
// already exist (see package migrations).
func NewUserRepo(d *db.DB, opts ...Option) UserRepository {
	return &sqlRepo{db: d, opts: buildOptions(opts)}
}

// readOnly is used for the Find* transactions.
var readOnly = db.TxOptions{ReadOnly: true}

// inTx runs fn inside one transaction under the repository lock and turns
// whatever comes back into an apperr error. The lock is released even when
// fn panics.
func (r *sqlRepo) inTx(ctx context.Context, op string, fn func(tx *db.Tx) error, opts ...db.TxOptions) error {
	start := time.Now()

	err := func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.db.ExecTx(ctx, fn, opts...)
	}()

	err = apperr.FromDB(op, err)
	r.opts.logOp(ctx, op, start, err)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func (r *sqlRepo) Create(ctx context.Context, u *models.User) error {
	const op = "repo.Create"
	start := time.Now()
	if u == nil {
		return apperr.InvalidArgument(op, "user is required")
	}

	now := r.opts.stamp()
	u.CreatedAt, u.UpdatedAt = now, now
	if err := r.opts.validator.User(u, validator.StageCreate); err != nil {
		r.opts.logOp(ctx, op, start, err)
		return err
	}

	var id int64
	err := r.inTx(ctx, op, func(tx *db.Tx) error {
		var err error
		id, err = insertUser(ctx, tx, u)
		return err
	})
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

func (r *sqlRepo) Delete(ctx context.Context, id int64) error {
	const op = "repo.Delete"
	return r.inTx(ctx, op, func(tx *db.Tx) error {
		target, err := findUser(ctx, tx, op, models.UserFilter{ID: &id})
		if err != nil {
			return err
		}
		if err := authorize(ctx, op, target); err != nil {
			return err
		}
		return deleteUser(ctx, tx, id)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

// Update is a no-op returning the stored user when patch changes nothing;
// UpdatedAt then keeps its previous value.
func (r *sqlRepo) Update(ctx context.Context, id int64, patch models.UserUpdate) (*models.User, error) {
	const op = "repo.Update"
	var merged *models.User
	err := r.inTx(ctx, op, func(tx *db.Tx) error {
		u, err := findUser(ctx, tx, op, models.UserFilter{ID: &id})
		if err != nil {
			return err
		}
		if err := authorize(ctx, op, u); err != nil {
			return err
		}
		if !patch.Apply(u) {
			merged = u
			return nil
		}

		u.UpdatedAt = r.opts.stamp()
		if err := r.opts.validator.User(u, validator.StagePersisted); err != nil {
			return err
		}
		if err := updateUser(ctx, tx, u); err != nil {
			return err
		}
		merged = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

func (r *sqlRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "repo.FindByID", models.UserFilter{ID: &id})
}

func (r *sqlRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "repo.FindByEmail", models.UserFilter{Email: &email})
}

func (r *sqlRepo) findOne(ctx context.Context, op string, f models.UserFilter) (*models.User, error) {
	var u *models.User
	err := r.inTx(ctx, op, func(tx *db.Tx) error {
		var err error
		u, err = findUser(ctx, tx, op, f)
		return err
	}, readOnly)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *sqlRepo) FindMany(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error) {
	const op = "repo.FindMany"
	var (
		users []*models.User
		total int64
	)
	err := r.inTx(ctx, op, func(tx *db.Tx) error {
		var err error
		users, total, err = findUsers(ctx, tx, filter)
		return err
	}, readOnly)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compile-time interface assertion
// ─────────────────────────────────────────────────────────────────────────────

var _ UserRepository = (*sqlRepo)(nil)
