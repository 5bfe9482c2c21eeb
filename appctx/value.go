package appctx

import (
	"strconv"

	"github.com/Skryldev/userstore/models"
)

// Kind tags the payload of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindNumber
	KindBool
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindUser:
		return "user"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable tagged value stored in a Context. The zero Value is
// Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	u    models.User
}

func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(i int64) Value     { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value { return Value{kind: KindNumber, f: f} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Null() Value           { return Value{} }

// User stores a copy of u; later changes to the caller's User are not seen.
func User(u models.User) Value {
	if u.Password != nil {
		pw := *u.Password
		u.Password = &pw
	}
	return Value{kind: KindUser, u: u}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() (string, bool)      { return v.s, v.kind == KindString }
func (v Value) Int64() (int64, bool)     { return v.i, v.kind == KindInteger }
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindNumber }
func (v Value) Boolean() (bool, bool)    { return v.b, v.kind == KindBool }

// AsUser returns a copy of the stored User.
func (v Value) AsUser() (models.User, bool) {
	if v.kind != KindUser {
		return models.User{}, false
	}
	u := v.u
	if u.Password != nil {
		pw := *u.Password
		u.Password = &pw
	}
	return u, true
}

// String renders the value for logs. Users render as their id only.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindNumber:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindUser:
		return "user#" + strconv.FormatInt(v.u.ID, 10)
	}
	return "null"
}
