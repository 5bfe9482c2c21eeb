package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/models"
	"github.com/Skryldev/userstore/validator"
)

// memoryRepo keeps users in process. It applies the same validation,
// authorization and pagination rules as the SQL backend; each operation
// checks everything before it mutates, so a failed call leaves no trace.
type memoryRepo struct {
	mu      sync.Mutex
	users   map[int64]models.User
	byEmail map[string]int64
	nextID  int64
	opts    options
}

// NewMemoryRepo returns an empty in-process UserRepository.
func NewMemoryRepo(opts ...Option) UserRepository {
	return &memoryRepo{
		users:   make(map[int64]models.User),
		byEmail: make(map[string]int64),
		opts:    buildOptions(opts),
	}
}

// run executes fn under the lock, mirroring sqlRepo.inTx.
func (r *memoryRepo) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()

	err := func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return apperr.Internal(op, err)
		}
		return fn()
	}()

	r.opts.logOp(ctx, op, start, err)
	return err
}

func (r *memoryRepo) Create(ctx context.Context, u *models.User) error {
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

	return r.run(ctx, op, func() error {
		if _, taken := r.byEmail[u.Email]; taken {
			return apperr.Conflict(op, nil, "email already in use")
		}
		r.nextID++
		stored := cloneUser(*u)
		stored.ID = r.nextID
		r.users[stored.ID] = stored
		r.byEmail[stored.Email] = stored.ID
		u.ID = stored.ID
		return nil
	})
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	const op = "repo.Delete"
	return r.run(ctx, op, func() error {
		target, err := r.get(op, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, op, &target); err != nil {
			return err
		}
		delete(r.users, id)
		delete(r.byEmail, target.Email)
		return nil
	})
}

func (r *memoryRepo) Update(ctx context.Context, id int64, patch models.UserUpdate) (*models.User, error) {
	const op = "repo.Update"
	var merged models.User
	err := r.run(ctx, op, func() error {
		u, err := r.get(op, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, op, &u); err != nil {
			return err
		}
		oldEmail := u.Email
		if !patch.Apply(&u) {
			merged = u
			return nil
		}

		u.UpdatedAt = r.opts.stamp()
		if err := r.opts.validator.User(&u, validator.StagePersisted); err != nil {
			return err
		}
		if owner, taken := r.byEmail[u.Email]; taken && owner != id {
			return apperr.Conflict(op, nil, "email already in use")
		}

		delete(r.byEmail, oldEmail)
		r.byEmail[u.Email] = id
		r.users[id] = cloneUser(u)
		merged = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "repo.FindByID", models.UserFilter{ID: &id})
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "repo.FindByEmail", models.UserFilter{Email: &email})
}

func (r *memoryRepo) findOne(ctx context.Context, op string, f models.UserFilter) (*models.User, error) {
	var u *models.User
	err := r.run(ctx, op, func() error {
		users, _ := r.match(f)
		if len(users) == 0 {
			return apperr.NotFound(op, "no user matches %s", describeFilter(f))
		}
		u = users[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *memoryRepo) FindMany(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error) {
	var (
		users []*models.User
		total int64
	)
	err := r.run(ctx, "repo.FindMany", func() error {
		users, total = r.match(filter)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// get returns a copy of the stored user. Callers hold r.mu.
func (r *memoryRepo) get(op string, id int64) (models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return models.User{}, apperr.NotFound(op, "no user matches id %d", id)
	}
	return cloneUser(u), nil
}

// match applies f the way FindUsersQuery does: equality on the set fields,
// id order, then offset and limit. Callers hold r.mu.
func (r *memoryRepo) match(f models.UserFilter) ([]*models.User, int64) {
	hits := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if f.ID != nil && u.ID != *f.ID {
			continue
		}
		if f.Name != nil && u.Name != *f.Name {
			continue
		}
		if f.Email != nil && u.Email != *f.Email {
			continue
		}
		hits = append(hits, u)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })

	total := int64(len(hits))
	if f.Offset > 0 {
		if f.Offset >= len(hits) {
			hits = nil
		} else {
			hits = hits[f.Offset:]
		}
	}
	if f.Limit > 0 && f.Limit < len(hits) {
		hits = hits[:f.Limit]
	}
	if len(hits) == 0 {
		return []*models.User{}, 0
	}

	page := make([]*models.User, 0, len(hits))
	for _, u := range hits {
		c := cloneUser(u)
		page = append(page, &c)
	}
	return page, total
}

func cloneUser(u models.User) models.User {
	if u.Password != nil {
		pw := *u.Password
		u.Password = &pw
	}
	return u
}

var _ UserRepository = (*memoryRepo)(nil)
