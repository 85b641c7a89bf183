package provider

import "context"

// Middleware transforms a RequestResponse provider by wrapping it.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes multiple middlewares into one. The first middleware is
// outermost: it runs first on the way in and last on the way out.
//
// Chain(a, b, c)(provider) is equivalent to a(b(c(provider))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] != nil {
				inner = middlewares[i](inner)
			}
		}
		return inner
	}
}

// Handler is the body of an Around middleware. next executes the rest of
// the chain.
type Handler[I, O any] func(ctx context.Context, input I, next RequestResponse[I, O]) (O, error)

// Around builds a Middleware from a handler function. The wrapped provider
// keeps the inner provider's name and availability.
func Around[I, O any](h Handler[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &aroundRR[I, O]{inner: inner, h: h}
	}
}

type aroundRR[I, O any] struct {
	inner RequestResponse[I, O]
	h     Handler[I, O]
}

func (a *aroundRR[I, O]) Name() string                         { return a.inner.Name() }
func (a *aroundRR[I, O]) IsAvailable(ctx context.Context) bool { return a.inner.IsAvailable(ctx) }

func (a *aroundRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return a.h(ctx, input, a.inner)
}

func (a *aroundRR[I, O]) Close(ctx context.Context) error {
	return Close(ctx, a.inner)
}
