package provider

import "context"

// Provider is anything with a name that can say whether it is ready.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// RequestResponse is a Provider that turns one input into one output. The
// HTTP client's wire transport is a RequestResponse of exchanges to
// responses.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Closeable providers own resources, such as idle connections, that must
// be released explicitly.
type Closeable interface {
	Close(ctx context.Context) error
}

// Close closes p when it is Closeable and is a no-op otherwise.
func Close(ctx context.Context, p Provider) error {
	if c, ok := p.(Closeable); ok {
		return c.Close(ctx)
	}
	return nil
}

// Func is a RequestResponse backed by fn. It is always available.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &funcRR[I, O]{name: name, fn: fn}
}

type funcRR[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f *funcRR[I, O]) Name() string                     { return f.name }
func (f *funcRR[I, O]) IsAvailable(context.Context) bool { return true }

func (f *funcRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}
