package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a row in the "users" table.
// ID is zero until the repository assigns one; CreatedAt and UpdatedAt are
// always stamped by the repository, never by the caller.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required,max=255"`
	Email     string    `db:"email" json:"email" validate:"required,max=255"`
	Password  *string   `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter holds optional equality predicates plus pagination.
// Limit and Offset values of zero or less mean "unbounded" and "no offset".
type UserFilter struct {
	ID    *int64
	Name  *string
	Email *string

	Limit  int
	Offset int
}

// UserUpdate is a sparse patch. Nil fields leave the corresponding User
// field unchanged. The target id is passed separately.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// Apply copies the present fields onto u and reports whether any field
// changed value.
func (p UserUpdate) Apply(u *User) bool {
	changed := false
	if p.Name != nil && *p.Name != u.Name {
		u.Name = *p.Name
		changed = true
	}
	if p.Email != nil && *p.Email != u.Email {
		u.Email = *p.Email
		changed = true
	}
	if p.Password != nil && (u.Password == nil || *u.Password != *p.Password) {
		pw := *p.Password
		u.Password = &pw
		changed = true
	}
	return changed
}

// Empty reports whether the patch carries no fields.
func (p UserUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil
}

// Ptr returns a pointer to v. Handy for building filters and patches.
func Ptr[T any](v T) *T { return &v }

// HashPassword returns the bcrypt hash of plain. The repository stores
// whatever it is given; hashing is the caller's choice.
func HashPassword(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash of u.
func (u *User) CheckPassword(plain string) bool {
	if u.Password == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.Password), []byte(plain)) == nil
}
