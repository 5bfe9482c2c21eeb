package repo

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Skryldev/userstore/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// Columns and row mapping, the only place the users column list lives
// ─────────────────────────────────────────────────────────────────────────────

// userColumns must stay in step with the db tags on models.User.
const userColumns = "id, name, email, password, created_at, updated_at"

// userRow is one result row of FindUsersQuery: a user plus the window total.
type userRow struct {
	models.User
	Total int64 `db:"total_count"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Write statements, written with ? and rebound per driver
// ─────────────────────────────────────────────────────────────────────────────

const (
	sqlInsertUser = `
		INSERT INTO users (name, email, password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	sqlUpdateUser = `
		UPDATE users
		SET    name = ?, email = ?, password = ?, updated_at = ?
		WHERE  id = ?`

	sqlDeleteUser = `
		DELETE FROM users WHERE id = ?`
)

// supportsReturning reports whether driverName understands INSERT … RETURNING.
func supportsReturning(driverName string) bool {
	switch driverName {
	case "postgres", "pgx", "sqlite3":
		return true
	}
	return false
}

// insertUserQuery returns the INSERT for driverName and whether it yields the
// new id as a row (true) or through sql.Result.LastInsertId (false).
func insertUserQuery(driverName string) (string, bool) {
	q := sqlInsertUser
	returning := supportsReturning(driverName)
	if returning {
		q += "\n\t\tRETURNING id"
	}
	return sqlx.Rebind(sqlx.BindType(driverName), q), returning
}

func updateUserQuery(driverName string) string {
	return sqlx.Rebind(sqlx.BindType(driverName), sqlUpdateUser)
}

func deleteUserQuery(driverName string) string {
	return sqlx.Rebind(sqlx.BindType(driverName), sqlDeleteUser)
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter → WHERE
// ─────────────────────────────────────────────────────────────────────────────

// WhereClause renders the set fields of f as equality predicates in the fixed
// order id, name, email, joined with AND under an always-true base. The
// returned args line up with the placeholders, which are written in bindType
// style (sqlx.DOLLAR gives $1, $2, …; sqlx.QUESTION gives ?).
//
// Only column names appear in the text; every value travels in args.
func WhereClause(f models.UserFilter, bindType int) (string, []any) {
	preds := []string{"1 = 1"}
	args := make([]any, 0, 3)

	if f.ID != nil {
		preds = append(preds, "id = ?")
		args = append(args, *f.ID)
	}
	if f.Name != nil {
		preds = append(preds, "name = ?")
		args = append(args, *f.Name)
	}
	if f.Email != nil {
		preds = append(preds, "email = ?")
		args = append(args, *f.Email)
	}

	return sqlx.Rebind(bindType, strings.Join(preds, " AND ")), args
}

// LimitOffset renders the pagination clause. Non-positive values are treated
// as absent; with neither set the result is "".
func LimitOffset(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf("LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf("OFFSET %d", offset)
	}
	return ""
}

// pagination is LimitOffset adjusted for drivers that reject a bare OFFSET.
func pagination(driverName string, limit, offset int) string {
	if limit <= 0 && offset > 0 {
		switch driverName {
		case "sqlite3":
			return fmt.Sprintf("LIMIT -1 OFFSET %d", offset)
		case "mysql":
			return fmt.Sprintf("LIMIT 18446744073709551615 OFFSET %d", offset)
		}
	}
	return LimitOffset(limit, offset)
}

// FindUsersQuery builds the page query for f. Each row carries total_count,
// the number of users matching f before pagination, so one round trip
// returns both the page and the total.
func FindUsersQuery(f models.UserFilter, driverName string) (string, []any) {
	where, args := WhereClause(f, sqlx.BindType(driverName))

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(userColumns)
	b.WriteString(", COUNT(*) OVER() AS total_count FROM users WHERE ")
	b.WriteString(where)
	b.WriteString(" ORDER BY id ASC")
	if p := pagination(driverName, f.Limit, f.Offset); p != "" {
		b.WriteString(" ")
		b.WriteString(p)
	}
	return b.String(), args
}
