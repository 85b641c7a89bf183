package httpclient

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/httpapi/di"
	"github.com/kbukum/httpapi/errors"
	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/logger"
	"github.com/kbukum/httpapi/observability"
	"github.com/kbukum/httpapi/resilience"
	"github.com/kbukum/httpapi/security"
	"github.com/kbukum/httpapi/security/tlstest"
	"github.com/kbukum/httpapi/util"
)

type recordingLogger struct {
	mu           sync.Mutex
	requests     []RequestSnapshot
	requestBody  []*ContentSnapshot
	responses    []ResponseSnapshot
	responseBody []*ContentSnapshot
	calls        []Call

	failRequest  error
	failResponse error
}

func (l *recordingLogger) LogRequest(_ context.Context, req RequestSnapshot, body *ContentSnapshot, call Call) (uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failRequest != nil {
		return uuid.Nil, l.failRequest
	}
	l.requests = append(l.requests, req)
	l.requestBody = append(l.requestBody, body)
	l.calls = append(l.calls, call)
	return uuid.New(), nil
}

func (l *recordingLogger) LogResponse(_ context.Context, _ uuid.UUID, resp ResponseSnapshot, body *ContentSnapshot, _ Call) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, resp)
	l.responseBody = append(l.responseBody, body)
	return l.failResponse
}

func (l *recordingLogger) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests), len(l.responses)
}

func servicesWith(t *testing.T, rrl RequestResponseLogger) di.Container {
	t.Helper()
	services := di.NewContainer()
	if err := services.RegisterSingleton(di.Keys.RequestResponseLogger, rrl); err != nil {
		t.Fatal(err)
	}
	return services
}

func newTestClient(t *testing.T, opts Options, options ...Option) *Client {
	t.Helper()
	if opts.ClientName == "" {
		opts.ClientName = "billing"
	}
	c, err := New(opts, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func testTrace() *observability.TraceInfo {
	return observability.NewTraceInfo(context.Background(), "tests")
}

func mustBuild(t *testing.T, b *RequestBuilder) *Request {
	t.Helper()
	req, err := b.Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func send(t *testing.T, c *Client, ctx context.Context, req *Request, opts ...CallOption) *Response {
	t.Helper()
	resp, err := c.Send(ctx, testTrace(), req, opts...)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	t.Cleanup(func() { _ = resp.Close() })
	return resp
}

type order struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
	Tenant string `json:"tenant,omitempty"`
	Agent  string `json:"agent,omitempty"`
	Auth   string `json:"auth,omitempty"`
}

func ginUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/orders", func(c *gin.Context) {
		var in order
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Tenant = c.Query("tenant")
		in.Agent = c.GetHeader("User-Agent")
		in.Auth = c.GetHeader("Authorization")
		c.JSON(http.StatusCreated, in)
	})
	r.GET("/orders/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, order{ID: "missing"})
			return
		}
		c.JSON(http.StatusOK, order{ID: c.Param("id"), Amount: 42})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSend_GinUpstream(t *testing.T) {
	srv := ginUpstream(t)
	c := newTestClient(t, Options{
		BaseAddress:        srv.URL,
		StaticQueryStrings: "tenant=acme",
		Auth:               BearerAuth("t0k"),
	})

	req := mustBuild(t, NewRequestBuilder().Post("orders").AddJSON(content.NewJSON(order{ID: "o-1", Amount: 7}), true))
	resp := send(t, c, context.Background(), req)

	if !resp.IsOK() || resp.Status() != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.Status(), resp.Failure())
	}
	got, err := ReadJSON[order](context.Background(), resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "o-1" || got.Amount != 7 || got.Tenant != "acme" {
		t.Errorf("unexpected echo %+v", got)
	}
	if got.Agent != c.Options().UserAgent || got.Auth != "Bearer t0k" {
		t.Errorf("expected default headers, got agent %q auth %q", got.Agent, got.Auth)
	}
	if !strings.HasPrefix(resp.ContentHeaders().Get("Content-Type"), "application/json") {
		t.Errorf("expected Content-Type among content headers, got %v", resp.ContentHeaders())
	}
	if resp.ResponseHeaders().Get("Content-Type") != "" {
		t.Error("expected Content-Type excluded from response headers")
	}
	if req.BaseAddress != "" || req.QueryString != "" {
		t.Error("expected Send to leave the caller's descriptor untouched")
	}
}

func TestSend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	req := mustBuild(t, NewRequestBuilder().Get("slow").RequestTimeout(50*time.Millisecond, true))
	resp := send(t, c, context.Background(), req)

	if !resp.TimedOut() || resp.OperationCanceled != nil {
		t.Fatalf("expected only a timeout, got timedOut=%v canceled=%v err=%v", resp.RequestTimedOut, resp.OperationCanceled, resp.Err)
	}
	if resp.StatusCode != nil || resp.IsOK() || !resp.HasErrorOrNoResponse() {
		t.Error("expected no status and a failed response")
	}
	if !errors.IsCode(resp.Failure(), errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", resp.Failure())
	}
	if resp.CancelOrTimeoutText() == "" {
		t.Error("expected a timeout description")
	}
}

func TestSend_CallTimeoutOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	req := mustBuild(t, NewRequestBuilder().Get("slow").RequestTimeout(time.Hour, true))
	resp := send(t, c, context.Background(), req, WithCallTimeout(50*time.Millisecond))
	if !resp.TimedOut() {
		t.Fatalf("expected the call timeout to apply, got %v", resp.Failure())
	}
}

func TestSend_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	for _, timeout := range []time.Duration{0, 5 * time.Second} {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		b := NewRequestBuilder().Get("slow")
		if timeout > 0 {
			b.RequestTimeout(timeout, true)
		}
		resp := send(t, c, ctx, mustBuild(t, b))

		if !resp.Canceled() || resp.RequestTimedOut != nil {
			t.Fatalf("timeout %v: expected only a cancellation, got timedOut=%v canceled=%v", timeout, resp.RequestTimedOut, resp.OperationCanceled)
		}
		if !errors.IsCode(resp.Failure(), errors.ErrCodeCanceled) {
			t.Errorf("expected CANCELED, got %v", resp.Failure())
		}
		cancel()
	}
}

func TestSend_TimeoutBoundsBodyRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	req := mustBuild(t, NewRequestBuilder().Get("stream").RequestTimeout(100*time.Millisecond, true))
	resp := send(t, c, context.Background(), req)
	if resp.Status() != http.StatusOK {
		t.Fatalf("expected headers before the deadline, got %v", resp.Failure())
	}
	if _, err := resp.ReadAsBytes(context.Background()); err == nil {
		t.Error("expected the body read to fail at the deadline")
	}
}

func TestSend_TransportFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	c := newTestClient(t, Options{BaseAddress: addr})

	resp := send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
	if resp.Err == nil || resp.TimedOut() || resp.Canceled() {
		t.Fatalf("expected a transport fault, got %+v", resp)
	}
	if !errors.IsCode(resp.Err, errors.ErrCodeTransportFault) || !IsConnection(resp.Err) {
		t.Errorf("expected a connection TRANSPORT_FAULT, got %v", resp.Err)
	}
	if resp.ErrorText() == "" || resp.StatusCodeIsOK() {
		t.Error("expected error text and no status")
	}
	body, err := resp.ReadAsBytes(context.Background())
	if err != nil || body != nil {
		t.Errorf("expected no body, got %q, %v", body, err)
	}
}

func TestSend_ErrorStatusIsRecorded(t *testing.T) {
	srv := ginUpstream(t)
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	resp := send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("orders/missing")))
	if resp.Status() != http.StatusNotFound || resp.IsOK() || resp.Err != nil {
		t.Fatalf("expected a recorded 404, got %d, %v", resp.Status(), resp.Err)
	}
	appErr, ok := errors.AsAppError(resp.Failure())
	if !ok || appErr.Code != errors.ErrCodeHTTPStatus {
		t.Fatalf("expected HTTP_STATUS, got %v", resp.Failure())
	}
}

func TestSend_RetriesLogEachAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rrl := &recordingLogger{}
	opts := Options{BaseAddress: srv.URL}
	opts.Policies.Set(Wildcard, NewRetryPolicy(fastRetry(3)))
	c := newTestClient(t, opts, WithServices(servicesWith(t, rrl)))

	resp := send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("busy")))
	if resp.Status() != http.StatusServiceUnavailable || resp.Err != nil {
		t.Fatalf("expected the last 503, got %d, %v", resp.Status(), resp.Err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 hits, got %d", hits.Load())
	}
	reqs, resps := rrl.counts()
	if reqs != 3 || resps != 3 {
		t.Fatalf("expected 3 log pairs, got %d/%d", reqs, resps)
	}
	for i, r := range rrl.requests {
		if r.Attempt != i+1 || r.Method != http.MethodGet || !strings.HasSuffix(r.URI, "/busy") {
			t.Errorf("request %d: unexpected snapshot %+v", i, r)
		}
	}
	for i, r := range rrl.responses {
		if r.StatusCode != http.StatusServiceUnavailable || r.Error != "" {
			t.Errorf("response %d: unexpected snapshot %+v", i, r)
		}
	}
}

func TestSend_RetryReplaysBody(t *testing.T) {
	var hits atomic.Int32
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	opts := Options{BaseAddress: srv.URL, Retry: &resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}}
	c := newTestClient(t, opts)

	req := mustBuild(t, NewRequestBuilder().Post("echo").AddText(content.NewText("payload"), true))
	resp := send(t, c, context.Background(), req)
	if !resp.IsOK() {
		t.Fatalf("expected success on the second attempt, got %v", resp.Failure())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 || bodies[0] != "payload" || bodies[1] != "payload" {
		t.Errorf("expected the body sent twice, got %q", bodies)
	}
}

func TestSend_StreamBodyIsNotReplayed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := Options{BaseAddress: srv.URL}
	opts.Policies.Set(Wildcard, NewRetryPolicy(fastRetry(3)))
	c := newTestClient(t, opts)

	req := mustBuild(t, NewRequestBuilder().Post("upload").AddStream(content.NewStream(io.LimitReader(strings.NewReader("once"), 4)), true))
	resp := send(t, c, context.Background(), req)
	if hits.Load() != 1 {
		t.Errorf("expected a single send, got %d", hits.Load())
	}
	if !errors.IsCode(resp.Err, errors.ErrCodeTransportFault) {
		t.Errorf("expected a non-replayable TRANSPORT_FAULT, got %v", resp.Err)
	}
}

func TestSend_LoggerFailuresGoToSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tests := []struct {
		name      string
		logger    *recordingLogger
		responses int
	}{
		{"LogRequest", &recordingLogger{failRequest: stderrors.New("disk full")}, 0},
		{"LogResponse", &recordingLogger{failResponse: stderrors.New("disk full")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []error
			opts := Options{BaseAddress: srv.URL}
			opts.ErrorSink = ErrorSinkFunc(func(_ context.Context, err error, call Call) {
				if call.Options == nil || call.Trace == nil {
					t.Error("expected the call context on reported errors")
				}
				reported = append(reported, err)
			})
			c := newTestClient(t, opts, WithServices(servicesWith(t, tt.logger)))

			resp := send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
			if !resp.IsOK() {
				t.Fatalf("expected logger failures not to fail the call, got %v", resp.Failure())
			}
			if len(reported) != 1 || !errors.IsCode(reported[0], errors.ErrCodeLoggingFault) {
				t.Fatalf("expected one LOGGING_FAULT, got %v", reported)
			}
			if _, resps := tt.logger.counts(); resps != tt.responses {
				t.Errorf("expected %d logged responses, got %d", tt.responses, resps)
			}
		})
	}
}

func TestSend_ErrorSinkFromServices(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var reported atomic.Int32
	services := servicesWith(t, &recordingLogger{failRequest: stderrors.New("boom")})
	sink := ErrorSink(ErrorSinkFunc(func(context.Context, error, Call) { reported.Add(1) }))
	if err := services.RegisterSingleton(di.Keys.ErrorSink, sink); err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, Options{BaseAddress: srv.URL}, WithServices(services))

	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
	if reported.Load() != 1 {
		t.Errorf("expected the registered sink to receive the fault, got %d", reported.Load())
	}
}

func TestSend_LogsBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("response body"))
	}))
	defer srv.Close()

	rrl := &recordingLogger{}
	c := newTestClient(t, Options{
		BaseAddress:       srv.URL,
		LogRequestBody:    true,
		LogResponseBody:   true,
		MaxLoggedBodySize: "4B",
	}, WithServices(servicesWith(t, rrl)))

	req := mustBuild(t, NewRequestBuilder().Post("x").AddText(content.NewText("request body"), true).AddHeader("Authorization", "Token secret", true))
	resp := send(t, c, context.Background(), req)

	data, err := resp.ReadAsString(context.Background())
	if err != nil || data != "response body" {
		t.Fatalf("expected the full body after logging, got %q, %v", data, err)
	}
	if b := rrl.requestBody[0]; b == nil || b.Length != 12 || !b.Truncated || !strings.HasPrefix(b.Body, "requ") {
		t.Errorf("unexpected request body snapshot %+v", b)
	}
	if b := rrl.responseBody[0]; b == nil || b.Length != 13 || !b.Truncated || b.ContentType != "text/plain" {
		t.Errorf("unexpected response body snapshot %+v", b)
	}
	if strings.Contains(rrl.requests[0].Headers, "secret") {
		t.Errorf("expected Authorization redacted, got %s", rrl.requests[0].Headers)
	}
}

func TestSend_LogDisabledURIs(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rrl := &recordingLogger{}
	c := newTestClient(t, Options{BaseAddress: srv.URL, LogDisabledURIs: []string{"/health"}}, WithServices(servicesWith(t, rrl)))

	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("health/live")))
	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("orders")))
	if reqs, _ := rrl.counts(); reqs != 1 {
		t.Errorf("expected only /orders logged, got %d", reqs)
	}
}

func TestSend_HardErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL})
	get := mustBuild(t, NewRequestBuilder().Get("x"))

	loneForm := NewRequest()
	loneForm.Method = MethodPost
	loneForm.FormData = []FormField{{Key: "a", Value: "1"}}

	tests := []struct {
		name string
		run  func() (*Response, error)
		code errors.ErrorCode
	}{
		{"nil trace", func() (*Response, error) { return c.Send(context.Background(), nil, get) }, errors.ErrCodeInvalidState},
		{"nil request", func() (*Response, error) { return c.Send(context.Background(), testTrace(), nil) }, errors.ErrCodeInvalidState},
		{"lone form pair", func() (*Response, error) { return c.Send(context.Background(), testTrace(), loneForm) }, errors.ErrCodeInvalidState},
		{"missing services", func() (*Response, error) {
			return c.Send(context.Background(), testTrace(), get, WithCallServices(nil))
		}, errors.ErrCodeConfigurationFault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.run()
			if resp != nil || !errors.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v, %v", tt.code, resp, err)
			}
		})
	}
	if hits.Load() != 0 {
		t.Errorf("expected nothing sent, got %d hits", hits.Load())
	}
}

func TestSend_ClearDefaultHeaders(t *testing.T) {
	agents := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL, UserAgent: "orders/1.0"})

	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("x").ClearDefaultHeaders(true)))
	if got := <-agents; got != "orders/1.0" {
		t.Errorf("expected the client user agent, got %q", got)
	}
	if got := <-agents; got != "" {
		t.Errorf("expected no user agent, got %q", got)
	}
}

func TestSend_TLS(t *testing.T) {
	srv, certs := tlstest.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))

	trusted := newTestClient(t, Options{BaseAddress: srv.URL, TLS: &security.TLSConfig{CAFile: certs.CAFile}})
	resp := send(t, trusted, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
	if !resp.IsOK() {
		t.Fatalf("expected the CA to be trusted, got %v", resp.Failure())
	}

	untrusted := newTestClient(t, Options{BaseAddress: srv.URL})
	resp = send(t, untrusted, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
	if !errors.IsCode(resp.Err, errors.ErrCodeTransportFault) {
		t.Errorf("expected a certificate TRANSPORT_FAULT, got %v", resp.Failure())
	}

	insecure := newTestClient(t, Options{BaseAddress: srv.URL, TrustAllServerCertificates: true})
	resp = send(t, insecure, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))
	if !resp.IsOK() {
		t.Errorf("expected trust-all to accept the server, got %v", resp.Failure())
	}
}

func TestSend_CredentialsChallenge(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		if user, pass, ok := r.BasicAuth(); !ok || user != "alice" || pass != "pw" {
			w.Header().Set("WWW-Authenticate", `Basic realm="billing"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		preemptive bool
		hits       int32
	}{
		{"challenge", false, 2},
		{"preemptive", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits.Store(0)
			c := newTestClient(t, Options{
				BaseAddress:                      srv.URL,
				Credentials:                      &Credentials{Username: "alice", Password: "pw"},
				SendAuthorizationHeaderInRequest: tt.preemptive,
			})
			req := mustBuild(t, NewRequestBuilder().Post("x").AddText(content.NewText("replayed"), true))
			resp := send(t, c, context.Background(), req)
			if !resp.IsOK() {
				t.Fatalf("expected success, got %v", resp.Failure())
			}
			if body, _ := resp.ReadAsString(context.Background()); body != "replayed" {
				t.Errorf("expected the body replayed, got %q", body)
			}
			if hits.Load() != tt.hits {
				t.Errorf("expected %d hits, got %d", tt.hits, hits.Load())
			}
		})
	}
}

func TestSend_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	follow := newTestClient(t, Options{BaseAddress: srv.URL})
	if resp := send(t, follow, context.Background(), mustBuild(t, NewRequestBuilder().Get("old"))); resp.Status() != http.StatusOK {
		t.Errorf("expected the redirect followed, got %d", resp.Status())
	}

	stay := newTestClient(t, Options{BaseAddress: srv.URL, AllowAutoRedirect: util.Ptr(false)})
	if resp := send(t, stay, context.Background(), mustBuild(t, NewRequestBuilder().Get("old"))); resp.Status() != http.StatusFound {
		t.Errorf("expected the redirect returned, got %d", resp.Status())
	}
}

func TestSend_Cookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(ck.Value))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, Options{BaseAddress: srv.URL, UseCookies: true})
	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("login")))
	resp := send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("me")))
	if body, _ := resp.ReadAsString(context.Background()); body != "s1" {
		t.Errorf("expected the jar to send the session cookie, got %d %q", resp.Status(), body)
	}
}

func TestDo_UsesTraceFromContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rrl := &recordingLogger{}
	c := newTestClient(t, Options{BaseAddress: srv.URL}, WithServices(servicesWith(t, rrl)))
	trace := testTrace()
	ctx := observability.WithTraceInfo(context.Background(), trace)

	resp, err := c.Do(ctx, mustBuild(t, NewRequestBuilder().Get("x")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Close()
	if len(rrl.calls) != 1 || rrl.calls[0].Trace != trace {
		t.Fatalf("expected the context trace on the call, got %+v", rrl.calls)
	}
	if rrl.calls[0].Options.ClientName != "billing" {
		t.Errorf("unexpected call options %+v", rrl.calls[0].Options)
	}
}

func TestSendHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte(r.Header.Get("X-Tenant") + ":" + string(body)))
	}))
	defer srv.Close()
	c := newTestClient(t, Options{})

	httpReq, _ := http.NewRequest(http.MethodPut, srv.URL+"/x", strings.NewReader("data"))
	httpReq.Header.Set("X-Tenant", "acme")
	resp, err := c.SendHTTP(context.Background(), testTrace(), httpReq)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Close()
	if body, _ := resp.ReadAsString(context.Background()); body != "acme:data" {
		t.Errorf("unexpected echo %q", body)
	}
}

func TestSendBuilder(t *testing.T) {
	srv := ginUpstream(t)
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	resp, err := c.SendBuilder(context.Background(), testTrace(), func(b *RequestBuilder) { b.Get("orders/9") })
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Close()
	if got, _ := ReadJSON[order](context.Background(), resp); got.ID != "9" || got.Amount != 42 {
		t.Errorf("unexpected order %+v", got)
	}

	if _, err := c.SendBuilder(context.Background(), testTrace(), func(b *RequestBuilder) { b.Method("", true) }); !errors.IsCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected the builder error, got %v", err)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New(Options{}); !errors.IsCode(err, errors.ErrCodeConfigurationFault) {
		t.Fatalf("expected CONFIGURATION_FAULT, got %v", err)
	}
}

func TestClient_CloseTwice(t *testing.T) {
	c := newTestClient(t, Options{})
	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestNew_UsesLoggerRegisteredForClient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var buf bytes.Buffer
	logger.Register("ledger", logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "ledger", &buf))
	defer logger.Unregister("ledger")

	c := newTestClient(t, Options{ClientName: "ledger", BaseAddress: srv.URL})
	send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Get("x")))

	if !strings.Contains(buf.String(), "provider execute ok") || !strings.Contains(buf.String(), `"client":"ledger"`) {
		t.Errorf("expected the attempt logged through the registered logger, got %s", buf.String())
	}
}

func TestSend_EmptyTextBody(t *testing.T) {
	var gotType string
	var gotLength int64 = -1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType, gotLength = r.Header.Get("Content-Type"), r.ContentLength
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := newTestClient(t, Options{BaseAddress: srv.URL})

	resp := send(t, c, context.Background(), mustBuild(t, NewRequestBuilder().Post("notes").AddText(content.NewText(""), true)))
	if !resp.IsOK() {
		t.Fatalf("expected an empty text body to be sent, got %v", resp.Failure())
	}
	if gotLength != 0 || !strings.HasPrefix(gotType, "text/plain") {
		t.Errorf("expected an empty text/plain body, got %q with length %d", gotType, gotLength)
	}
}
