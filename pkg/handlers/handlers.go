// Package handlers provides the dynamically-scoped chain of
// (error-type, handler) bindings that calling code installs around
// task execution. The chain travels in a context.Context, so it
// stays visible to nested task execution, including across the
// worker-goroutine boundary when captured at submission.
package handlers

import (
	"context"
	"errors"
)

// Handler reacts to a raised error. The protocol is:
//   - return nil to resolve the error;
//   - return the error unchanged to decline, letting older bindings
//     in the chain see it;
//   - return a different error to raise in place of the original,
//     dispatched against the remaining (older) chain.
type Handler func(ctx context.Context, err error) error

// Binding pairs an error match with a handler
type Binding struct {
	name   string
	match  func(error) bool
	handle Handler
}

// Name returns the binding name, for diagnostics
func (b Binding) Name() string {
	return b.name
}

// On creates a binding that matches any error for which
// errors.Is(err, prototype) holds, the is-a relation of the error
// taxonomy.
func On(prototype error, h Handler) Binding {
	return Binding{
		name:   prototype.Error(),
		match:  func(err error) bool { return errors.Is(err, prototype) },
		handle: h,
	}
}

// OnType creates a binding that matches any error assignable to T via
// errors.As. The handler receives the concrete value.
func OnType[T error](h func(ctx context.Context, err T) error) Binding {
	var zero T
	return Binding{
		name: "type-binding",
		match: func(err error) bool {
			t := zero
			return errors.As(err, &t)
		},
		handle: func(ctx context.Context, err error) error {
			t := zero
			errors.As(err, &t)
			return h(ctx, t)
		},
	}
}

// OnMatch creates a binding with an arbitrary match predicate
func OnMatch(name string, match func(error) bool, h Handler) Binding {
	return Binding{name: name, match: match, handle: h}
}

// Chain is an ordered sequence of bindings, newest first
type Chain []Binding

type chainKey struct{}

// WithChain returns a context carrying the given chain as current
func WithChain(ctx context.Context, chain Chain) context.Context {
	return context.WithValue(ctx, chainKey{}, chain)
}

// FromContext returns the current chain, or nil if none is installed
func FromContext(ctx context.Context) Chain {
	if chain, ok := ctx.Value(chainKey{}).(Chain); ok {
		return chain
	}
	return nil
}

// With runs body with bindings prepended to the current chain.
// Earlier entries in bindings take precedence, and all of them shadow
// the prior chain. The prior chain is restored on every exit path: the
// derived context dies with this call, nothing is mutated.
func With(ctx context.Context, bindings []Binding, body func(ctx context.Context) error) error {
	prior := FromContext(ctx)
	chain := make(Chain, 0, len(bindings)+len(prior))
	chain = append(chain, bindings...)
	chain = append(chain, prior...)
	return body(WithChain(ctx, chain))
}

// Dispatch walks the current chain from newest to oldest looking for
// a binding that matches err. A matching handler runs with the
// remaining (older) chain installed as current, so a handler that
// itself raises, or that declines, composes with handlers further
// down without re-triggering itself.
//
// Returns (nil, true) when some handler resolved the error. When no
// binding intervenes the original (or substituted) error is returned
// with handled == false, left for the normal failure path.
func Dispatch(ctx context.Context, err error) (error, bool) {
	return dispatch(ctx, FromContext(ctx), err)
}

func dispatch(ctx context.Context, chain Chain, err error) (error, bool) {
	for i, b := range chain {
		if !b.match(err) {
			continue
		}
		rest := chain[i+1:]
		res := b.handle(WithChain(ctx, rest), err)
		switch {
		case res == nil:
			return nil, true
		case res == err:
			// declined, keep walking the older entries
			continue
		default:
			// the handler raised a different error
			return dispatch(ctx, rest, res)
		}
	}
	return err, false
}
