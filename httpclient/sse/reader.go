// Package sse reads text/event-stream response bodies.
package sse

import (
	"bufio"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// maxLineSize bounds a single field line.
const maxLineSize = 1 << 20

// Event is a single server-sent event.
type Event struct {
	// Event is the event type. Empty for data-only events.
	Event string
	// Data is the payload. Multiple data lines are joined with newlines.
	Data string
	// ID is the event id. It carries over to later events until reset.
	ID string
	// Retry is the reconnection delay the server asked for, or zero.
	Retry time.Duration
}

// Reader reads events from a response body.
type Reader interface {
	// Next returns the next event, or io.EOF when the stream ends.
	Next() (*Event, error)
	// Close closes the body.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
}

// IsEventStream reports whether h declares an event stream body.
func IsEventStream(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == ContentType
}

// NewReader returns a Reader over body.
func NewReader(body io.ReadCloser) Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &reader{scanner: scanner, body: body}
}

func (r *reader) Next() (*Event, error) {
	event := Event{ID: r.lastID}
	var hasData bool

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				return &event, nil
			}
			event = Event{ID: r.lastID}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				event.ID = value
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		return &event, nil
	}
	return nil, io.EOF
}

func (r *reader) Close() error {
	return r.body.Close()
}

// parseLine splits "field: value". A single space after the colon is
// dropped.
func parseLine(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
