// Package provider defines the composition model of the client's handler
// chain: a RequestResponse provider and the middlewares that wrap it.
//
//	send := provider.Chain(
//	    policyHandler,
//	    logHandler,
//	)(transport)
//
// Around turns a plain function into a middleware:
//
//	timing := provider.Around(func(ctx context.Context, in In, next provider.RequestResponse[In, Out]) (Out, error) {
//	    start := time.Now()
//	    defer record(time.Since(start))
//	    return next.Execute(ctx, in)
//	})
package provider
