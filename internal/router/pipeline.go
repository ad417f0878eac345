package router

import (
	"errors"
	"fmt"
)

// ErrNextCalledTwice is the panic value (wrapped) raised when a middleware
// invokes its continuation more than once. It signals a middleware bug and
// is never turned into a client error by the router.
var ErrNextCalledTwice = errors.New("router: next called more than once")

// HandlerFunc is a terminal route handler. The returned value is written as
// the "data" field of a success envelope unless it is a *Response.
type HandlerFunc func(c *Context) (any, error)

// Next continues the pipeline.
type Next func() (any, error)

// MiddlewareFunc intercepts a request. It must either return next() or
// short-circuit with its own result.
type MiddlewareFunc func(c *Context, next Next) (any, error)

// Middleware is a named interceptor. Auth-tagged middleware is skipped for
// public routes when installed globally.
type Middleware struct {
	Name string
	Auth bool
	Fn   MiddlewareFunc
}

// NewMiddleware wraps fn as an untagged middleware.
func NewMiddleware(name string, fn MiddlewareFunc) Middleware {
	return Middleware{Name: name, Fn: fn}
}

// NewAuthMiddleware wraps fn as an auth-tagged middleware.
func NewAuthMiddleware(name string, fn MiddlewareFunc) Middleware {
	return Middleware{Name: name, Auth: true, Fn: fn}
}

// Compose chains mws around h. The returned handler runs the middleware in
// order and panics with ErrNextCalledTwice if any of them calls next twice.
func Compose(mws []Middleware, h HandlerFunc) HandlerFunc {
	return func(c *Context) (any, error) {
		index := -1

		var dispatch func(i int) (any, error)
		dispatch = func(i int) (any, error) {
			if i <= index {
				panic(fmt.Errorf("%w: middleware %q", ErrNextCalledTwice, mws[i-1].Name))
			}
			index = i

			if i == len(mws) {
				return h(c)
			}
			return mws[i].Fn(c, func() (any, error) {
				return dispatch(i + 1)
			})
		}

		return dispatch(0)
	}
}
