package httpclient

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/httpapi/di"
	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/logger"
	"github.com/kbukum/httpapi/observability"
	"github.com/kbukum/httpapi/provider"
)

// Client sends Request descriptors through the policy and log handlers to
// the wire. A Client is safe for concurrent use.
type Client struct {
	opts       *Options
	httpClient *http.Client
	services   di.Container
	log        *logger.Logger
	metrics    *observability.ClientMetrics

	transport provider.RequestResponse[*Exchange, *http.Response]
	pipeline  provider.RequestResponse[*Exchange, *http.Response]
	closeOnce sync.Once
}

type clientConfig struct {
	services     di.Container
	log          *logger.Logger
	metrics      *observability.ClientMetrics
	httpClient   *http.Client
	roundTripper http.RoundTripper
}

// Option configures a Client.
type Option func(*clientConfig)

// WithServices sets the container loggers, error sinks and metrics are
// resolved from. Defaults to an empty container.
func WithServices(services di.Container) Option {
	return func(c *clientConfig) { c.services = services }
}

// WithLogger sets the logger of the client's own diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(c *clientConfig) { c.log = log }
}

// WithMetrics records request metrics. Without it, metrics registered
// under di.Keys.ClientMetrics are used, if any.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(c *clientConfig) { c.metrics = m }
}

// WithHTTPClient uses hc instead of building one from the options.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithTransport replaces the round tripper of the built client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.roundTripper = rt }
}

// New validates opts and builds a Client. When opts.Policies is empty, the
// resilience settings of opts become the wildcard policy.
func New(opts Options, options ...Option) (*Client, error) {
	o := opts
	o.ApplyDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var cfg clientConfig
	for _, opt := range options {
		opt(&cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		var err error
		if hc, err = o.BuildHTTPClient(); err != nil {
			return nil, err
		}
		if cfg.roundTripper != nil {
			hc.Transport = cfg.roundTripper
		}
	}
	services := cfg.services
	if services == nil {
		services = di.NewContainer()
	}
	log := cfg.log
	if log == nil {
		if named, ok := logger.Lookup(o.ClientName); ok {
			log = named
		} else {
			log = logger.Get("httpclient")
		}
	}
	log = log.WithFields(logger.Fields(logger.FieldClient, o.ClientName))
	metrics := cfg.metrics
	if metrics == nil {
		metrics, _ = di.TryResolve[*observability.ClientMetrics](services, di.Keys.ClientMetrics)
	}
	if o.Policies.Len() == 0 {
		if p := o.resiliencePolicy(); p != nil {
			o.Policies.Set(Wildcard, p)
		}
	}

	c := &Client{
		opts:       &o,
		httpClient: hc,
		services:   services,
		log:        log,
		metrics:    metrics,
		transport:  &transport{name: o.ClientName, client: hc},
	}
	wire := provider.Chain(
		provider.WithTracing[*Exchange, *http.Response](observability.SpanHTTPAttempt),
		provider.WithLogging[*Exchange, *http.Response](log),
	)(c.transport)
	c.pipeline = provider.Chain(c.policyHandler(), c.logHandler())(wire)
	return c, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.opts.ClientName }

// Options returns the effective options. They must not be modified.
func (c *Client) Options() *Options { return c.opts }

// Services returns the client's service container.
func (c *Client) Services() di.Container { return c.services }

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Send executes req. Timeouts, cancellation, transport faults and error
// statuses are recorded on the Response; only a malformed descriptor
// (INVALID_STATE) or missing call context (CONFIGURATION_FAULT) is returned
// as an error. The caller must Close the response.
func (c *Client) Send(ctx context.Context, trace *observability.TraceInfo, req *Request, opts ...CallOption) (*Response, error) {
	if trace == nil {
		return nil, errors.InvalidState("trace == null")
	}
	if req == nil {
		return nil, errors.InvalidState("request == null")
	}
	cc := callConfig{services: c.services}
	for _, opt := range opts {
		opt(&cc)
	}

	r := req.clone()
	if strings.TrimSpace(r.BaseAddress) == "" {
		r.BaseAddress = c.opts.BaseAddress
	}
	if err := c.opts.ConfigureStaticRequestParams(r); err != nil {
		return nil, err
	}
	if cc.timeout != nil {
		r.RequestTimeout = cc.timeout
	}

	callCtx := ctx
	var bounded context.Context
	cancel := context.CancelFunc(func() {})
	if r.RequestTimeout != nil && *r.RequestTimeout > 0 {
		bounded, cancel = context.WithTimeout(ctx, *r.RequestTimeout)
		callCtx = bounded
	}
	bodyOwnsCancel := false
	defer func() {
		if !bodyOwnsCancel {
			cancel()
		}
	}()

	httpReq, err := r.ToHTTPRequest(callCtx)
	if err != nil {
		return nil, err
	}

	callCtx, op := observability.StartClientOperation(callCtx, c.opts.ClientName, httpReq.Method, httpReq.URL.String(), c.metrics)
	ex := &Exchange{
		Call:    Call{Trace: trace, Services: cc.services, Options: c.opts},
		Request: r,
		HTTP:    httpReq,
	}

	resp := newResponse(r)
	wire, err := c.pipeline.Execute(callCtx, ex)
	switch {
	case err != nil:
		discard(wire)
		if isHardError(err) {
			op.End(observability.OutcomeFault, 0, err)
			return nil, err
		}
		recordFailure(resp, ctx, bounded, err)
	case wire != nil:
		if bounded != nil && wire.Body != nil && wire.Body != http.NoBody {
			// The deadline also bounds reading the body; release it on Close.
			wire.Body = &cancelOnClose{ReadCloser: wire.Body, cancel: cancel}
			bodyOwnsCancel = true
		}
		resp.setWire(wire)
	}

	result := outcome(resp)
	op.End(result, resp.Status(), resp.Failure())
	if c.metrics != nil && result != observability.OutcomeOK && result != observability.OutcomeHTTPError {
		c.metrics.RecordError(callCtx, c.opts.ClientName, result)
	}
	c.log.WithContext(callCtx).Debug("http send complete", logger.Fields(
		logger.FieldMethod, httpReq.Method,
		logger.FieldURI, httpReq.URL.String(),
		logger.FieldStatusCode, resp.Status(),
		logger.FieldAttempt, ex.Attempt,
		logger.FieldOperation, result,
		logger.FieldDuration, op.Duration().Milliseconds(),
	))
	return resp, nil
}

// Do sends req with a new TraceInfo derived from ctx.
func (c *Client) Do(ctx context.Context, req *Request, opts ...CallOption) (*Response, error) {
	trace := observability.TraceInfoFromContext(ctx)
	if trace == nil {
		trace = observability.NewTraceInfo(ctx, c.opts.SourceSystemName)
	}
	return c.Send(ctx, trace, req, opts...)
}

// SendBuilder builds a request with fn and sends it. Builder errors are
// returned before anything is sent.
func (c *Client) SendBuilder(ctx context.Context, trace *observability.TraceInfo, fn func(b *RequestBuilder), opts ...CallOption) (*Response, error) {
	b := NewRequestBuilder()
	if fn != nil {
		fn(b)
	}
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, trace, req, opts...)
}

// SendHTTP sends an existing wire request, headers included.
func (c *Client) SendHTTP(ctx context.Context, trace *observability.TraceInfo, req *http.Request, opts ...CallOption) (*Response, error) {
	r, err := RequestFromHTTP(req, true)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, trace, r, opts...)
}

// Close releases idle connections. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		err = provider.Close(ctx, c.transport)
	})
	return err
}

// clone copies the parts of r that Send mutates.
func (r *Request) clone() *Request {
	cp := *r
	cp.Headers = r.Headers.Clone()
	cp.FormData = slices.Clone(r.FormData)
	cp.TextContents = slices.Clone(r.TextContents)
	cp.JSONContents = slices.Clone(r.JSONContents)
	cp.StreamContents = slices.Clone(r.StreamContents)
	cp.BinaryContents = slices.Clone(r.BinaryContents)
	cp.defaults = nil
	return &cp
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
