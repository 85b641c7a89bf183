// Package httpclient sends typed, declarative request descriptors over
// HTTP.
//
// A Request describes the address, method, typed headers and body parts of
// one call. It is usually filled with a RequestBuilder, whose setters only
// overwrite a field when forced. Client.Send layers the static parameters of
// Options onto the request, materializes the wire request and runs it
// through two handlers: the policy handler, which applies the resilience
// Policy registered for the URI, and the log handler, which reports every
// attempt to a RequestResponseLogger.
//
// Send does not fail on timeouts, cancellation, transport faults or error
// statuses. They are recorded on the Response; Response.Failure classifies
// them.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Options{
//	    ClientName:  "billing",
//	    BaseAddress: "https://billing.internal",
//	    Auth:        httpclient.BearerAuth("my-token"),
//	})
//
//	resp, err := client.SendBuilder(ctx, trace, func(b *httpclient.RequestBuilder) {
//	    b.Get("/invoices/42").RequestTimeout(5*time.Second, true)
//	})
//	if err != nil {
//	    return err // malformed request
//	}
//	defer resp.Close()
//	invoice, err := httpclient.ReadJSON[Invoice](ctx, resp)
//
// # With Resilience
//
//	opts.Policies.Set("/invoices", httpclient.Policies(
//	    httpclient.NewRetryPolicy(resilience.DefaultRetryConfig()),
//	    httpclient.NewCircuitBreakerPolicy(resilience.DefaultCircuitBreakerConfig("billing")),
//	))
//
// Subpackages hold the request model: content (body parts), header (typed
// request headers), overlay (force-flag values) and sse (event streams).
package httpclient
