// Package appctx carries request-scoped values, notably the authenticated
// User, through call chains.
//
// A Context is an immutable node with an optional parent. WithValue never
// touches the node it is given; it returns a new node layered under it, so
// a request can fork sub-contexts freely and share them across goroutines
// without locking.
//
// *Context implements context.Context: cancellation and deadlines come from
// the standard context it was rooted on (see From), string keys resolve
// through Lookup. That lets a *Context be handed to anything that takes a
// context.Context, and lets standard wrappers such as context.WithTimeout
// sit on top of it without hiding its values.
package appctx

import (
	"context"
	"time"

	"github.com/Skryldev/userstore/models"
)

// Well-known keys.
const (
	UserKey      = "user"
	RequestIDKey = "request_id"
)

// NoUserID is returned by UserIDFromContext when no identity is present.
// Persisted users never have id 0.
const NoUserID int64 = 0

// Context is one node of the request context tree.
type Context struct {
	parent *Context
	values map[string]Value
	std    context.Context
}

// Background returns a new root context with no values that is never
// cancelled.
func Background() *Context {
	return &Context{std: context.Background()}
}

// TODO returns a new empty root context. Use it where the right context is
// not yet plumbed through.
func TODO() *Context {
	return &Context{std: context.TODO()}
}

// From returns a new root context whose deadline, cancellation and
// non-string values come from ctx.
func From(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if c, ok := ctx.(*Context); ok {
		return c
	}
	return &Context{std: ctx}
}

// WithValue returns a child of ctx carrying key. The child shadows any value
// of the same key further up the chain. A nil ctx is treated as Background().
func WithValue(ctx *Context, key string, v Value) *Context {
	if ctx == nil {
		ctx = Background()
	}
	return &Context{
		parent: ctx,
		values: map[string]Value{key: v},
		std:    ctx.std,
	}
}

// WithValues is WithValue for several keys at once. kv is copied.
func WithValues(ctx *Context, kv map[string]Value) *Context {
	if ctx == nil {
		ctx = Background()
	}
	values := make(map[string]Value, len(kv))
	for k, v := range kv {
		values[k] = v
	}
	return &Context{parent: ctx, values: values, std: ctx.std}
}

// WithUser stores u as the acting identity.
func WithUser(ctx *Context, u models.User) *Context {
	return WithValue(ctx, UserKey, User(u))
}

// WithRequestID stores a correlation id for logs.
func WithRequestID(ctx *Context, id string) *Context {
	return WithValue(ctx, RequestIDKey, String(id))
}

// Parent returns the node ctx was derived from, nil for a root.
func (c *Context) Parent() *Context {
	if c == nil {
		return nil
	}
	return c.parent
}

// Lookup returns the first value stored under key, walking from c up
// through its ancestors. A nil *Context holds nothing.
func (c *Context) Lookup(key string) (Value, bool) {
	for n := c; n != nil; n = n.parent {
		if v, ok := n.values[key]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// context.Context
// ─────────────────────────────────────────────────────────────────────────────

func (c *Context) stdctx() context.Context {
	if c == nil || c.std == nil {
		return context.Background()
	}
	return c.std
}

func (c *Context) Deadline() (time.Time, bool) { return c.stdctx().Deadline() }
func (c *Context) Done() <-chan struct{}       { return c.stdctx().Done() }
func (c *Context) Err() error                  { return c.stdctx().Err() }

// Value implements context.Context. String keys found in the tree return a
// Value; anything else is looked up in the underlying standard context.
func (c *Context) Value(key any) any {
	if k, ok := key.(string); ok {
		if v, ok := c.Lookup(k); ok {
			return v
		}
	}
	return c.stdctx().Value(key)
}

var _ context.Context = (*Context)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Accessors over any context.Context
// ─────────────────────────────────────────────────────────────────────────────

// Lookup resolves key on any context.Context that has an appctx.Context
// somewhere in its chain.
func Lookup(ctx context.Context, key string) (Value, bool) {
	if ctx == nil {
		return Value{}, false
	}
	v, ok := ctx.Value(key).(Value)
	return v, ok
}

// UserFromContext returns the acting identity, if one is stored and the
// stored value is a User.
func UserFromContext(ctx context.Context) (models.User, bool) {
	v, ok := Lookup(ctx, UserKey)
	if !ok {
		return models.User{}, false
	}
	return v.AsUser()
}

// UserIDFromContext returns the id of the acting identity, or NoUserID.
func UserIDFromContext(ctx context.Context) int64 {
	u, ok := UserFromContext(ctx)
	if !ok {
		return NoUserID
	}
	return u.ID
}

// RequestIDFromContext returns the stored request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	v, ok := Lookup(ctx, RequestIDKey)
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}
