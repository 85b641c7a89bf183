package httpclient

import (
	"context"
	"net/http"

	"github.com/kbukum/httpapi/observability"
	"github.com/kbukum/httpapi/provider"
)

// compile-time assertions
var _ provider.RequestResponse[*Exchange, *http.Response] = (*transport)(nil)
var _ provider.Closeable = (*transport)(nil)

// transport is the innermost stage of the chain: it puts the exchange on
// the wire and returns once the response headers arrive.
type transport struct {
	name   string
	client *http.Client
}

func (t *transport) Name() string                     { return t.name }
func (t *transport) IsAvailable(context.Context) bool { return true }

func (t *transport) Execute(ctx context.Context, ex *Exchange) (*http.Response, error) {
	req := ex.HTTP.WithContext(ctx)
	observability.InjectHeaders(ctx, req.Header)
	return t.client.Do(req)
}

// Close releases idle pooled connections.
func (t *transport) Close(context.Context) error {
	t.client.CloseIdleConnections()
	return nil
}
