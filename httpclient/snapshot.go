package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/httpapi/httpclient/content"
	"github.com/kbukum/httpapi/httpclient/sse"
	"github.com/kbukum/httpapi/util"
)

// redactedHeaders are masked in logged header snapshots.
var redactedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "Set-Cookie"}

// RequestSnapshot describes an outgoing attempt for a RequestResponseLogger.
type RequestSnapshot struct {
	Method      string    `json:"method"`
	URI         string    `json:"uri"`
	ContentType string    `json:"content_type,omitempty"`
	Headers     string    `json:"headers"`
	Attempt     int       `json:"attempt"`
	Timestamp   time.Time `json:"timestamp"`
}

// ResponseSnapshot describes the outcome of an attempt. StatusCode is 0
// when no response was received.
type ResponseSnapshot struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Headers     string `json:"headers,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms"`
	Error       string `json:"error,omitempty"`
	TimedOut    bool   `json:"timed_out,omitempty"`
	Canceled    bool   `json:"canceled,omitempty"`
}

// ContentSnapshot is a logged body.
type ContentSnapshot struct {
	ContentType string `json:"content_type,omitempty"`
	// Length is the body size before truncation.
	Length    int    `json:"length"`
	Body      string `json:"body"`
	Truncated bool   `json:"truncated,omitempty"`
}

func newContentSnapshot(contentType string, data []byte, max int) *ContentSnapshot {
	body := util.Truncate(string(data), max)
	return &ContentSnapshot{
		ContentType: contentType,
		Length:      len(data),
		Body:        body,
		Truncated:   len(body) != len(data),
	}
}

// headersJSON renders h as a JSON object with credentials masked.
func headersJSON(h http.Header) string {
	if len(h) == 0 {
		return "{}"
	}
	data, err := json.Marshal(util.RedactHeaders(h, redactedHeaders...))
	if err != nil {
		return "{}"
	}
	return string(data)
}

func requestSnapshot(ex *Exchange) RequestSnapshot {
	h := ex.HTTP.Header.Clone()
	if ex.HTTP.Host != "" && ex.HTTP.Host != ex.HTTP.URL.Host {
		h.Set("Host", ex.HTTP.Host)
	}
	return RequestSnapshot{
		Method:      ex.HTTP.Method,
		URI:         ex.URI(),
		ContentType: ex.HTTP.Header.Get("Content-Type"),
		Headers:     headersJSON(h),
		Attempt:     ex.Attempt,
		Timestamp:   time.Now().UTC(),
	}
}

// requestContent reads a replayable request body. A body that can be read
// only once is not logged.
func requestContent(ex *Exchange, max int) *ContentSnapshot {
	if ex.HTTP.Body == nil || ex.HTTP.Body == http.NoBody || ex.HTTP.GetBody == nil {
		return nil
	}
	body, err := ex.HTTP.GetBody()
	if err != nil {
		return nil
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil
	}
	return newContentSnapshot(ex.HTTP.Header.Get("Content-Type"), data, max)
}

func responseSnapshot(resp *http.Response, err error, elapsed time.Duration) ResponseSnapshot {
	snap := ResponseSnapshot{ElapsedMs: elapsed.Milliseconds()}
	if resp != nil {
		snap.StatusCode = resp.StatusCode
		snap.ContentType = resp.Header.Get("Content-Type")
		snap.Headers = headersJSON(resp.Header)
	}
	if err != nil {
		snap.Error = err.Error()
		snap.TimedOut = isTimeout(err)
		snap.Canceled = isCanceled(err)
	}
	return snap
}

// responseContent reads the response body and attaches a replay of it to
// resp, so the caller still sees the whole body. Event streams are not
// read.
func responseContent(ctx context.Context, resp *http.Response, max int) *ContentSnapshot {
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody || sse.IsEventStream(resp.Header) {
		return nil
	}
	raw := content.FromWire(resp.Header, resp.Body)
	data, err := raw.Bytes(ctx)
	if err != nil {
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(failedReader{err: err})
		return nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return newContentSnapshot(resp.Header.Get("Content-Type"), data, max)
}

type failedReader struct{ err error }

func (r failedReader) Read([]byte) (int, error) { return 0, r.err }
