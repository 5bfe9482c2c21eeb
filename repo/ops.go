package repo

import (
	"context"
	"fmt"

	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/db"
	"github.com/Skryldev/userstore/models"
)

// The functions in this file run one statement each against whatever Querier
// they are given. They never begin, commit or roll back; the caller owns the
// transaction so find, authorize and mutate share one atomic unit.

// insertUser stores u and returns the id the database assigned.
func insertUser(ctx context.Context, q db.Querier, u *models.User) (int64, error) {
	query, returning := insertUserQuery(q.DriverName())
	args := []any{u.Name, u.Email, u.Password, u.CreatedAt, u.UpdatedAt}

	if returning {
		var id int64
		if err := q.Get(ctx, &id, query, args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repo/user: last insert id: %w", err)
	}
	return id, nil
}

// updateUser writes every mutable column of u. The row must exist.
func updateUser(ctx context.Context, q db.Querier, u *models.User) error {
	_, err := q.Exec(ctx, updateUserQuery(q.DriverName()),
		u.Name, u.Email, u.Password, u.UpdatedAt, u.ID)
	return err
}

func deleteUser(ctx context.Context, q db.Querier, id int64) error {
	_, err := q.Exec(ctx, deleteUserQuery(q.DriverName()), id)
	return err
}

// findUsers runs the filtered page query and returns the page plus the number
// of users matching f before pagination. An empty page reports a total of 0.
func findUsers(ctx context.Context, q db.Querier, f models.UserFilter) ([]*models.User, int64, error) {
	query, args := FindUsersQuery(f, q.DriverName())

	var rows []userRow
	if err := q.Select(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []*models.User{}, 0, nil
	}

	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		u := rows[i].User
		users = append(users, &u)
	}
	return users, rows[0].Total, nil
}

// findUser returns the first match of f, or an apperr NotFound.
func findUser(ctx context.Context, q db.Querier, op string, f models.UserFilter) (*models.User, error) {
	users, _, err := findUsers(ctx, q, f)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperr.NotFound(op, "no user matches %s", describeFilter(f))
	}
	return users[0], nil
}

func describeFilter(f models.UserFilter) string {
	switch {
	case f.ID != nil:
		return fmt.Sprintf("id %d", *f.ID)
	case f.Email != nil:
		return fmt.Sprintf("email %q", *f.Email)
	case f.Name != nil:
		return fmt.Sprintf("name %q", *f.Name)
	}
	return "filter"
}
