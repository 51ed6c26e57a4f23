package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Kind classifies a failed query.
type Kind int

const (
	// KindValidation: a session field could not be encoded; nothing was sent.
	KindValidation Kind = iota + 1
	// KindTransport: the server was never reached (DNS, connect, TLS, timeout).
	KindTransport
	// KindHTTPStatus: the server answered with a non-2xx status.
	KindHTTPStatus
	// KindBodyRead: the server answered but the body could not be read.
	KindBodyRead
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindBodyRead:
		return "body_read"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by Client. Its message is the
// string contract surfaced to callers.
type Error struct {
	Kind       Kind
	Field      string // validation only
	StatusCode int    // http status and body read
	Body       string // http status only, verbatim
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return e.Err.Error()
	case KindTransport:
		return fmt.Sprintf("request failed: %v", e.Err)
	case KindHTTPStatus:
		return e.StatusLine() + ": " + e.Body
	case KindBodyRead:
		return fmt.Sprintf("read body failed: %v", e.Err)
	default:
		return fmt.Sprintf("gateway error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusLine renders the status part of an HTTP status error, e.g.
// "HTTP 401 Unauthorized". It is empty for other kinds.
func (e *Error) StatusLine() string {
	if e.Kind != KindHTTPStatus {
		return ""
	}
	return "HTTP " + statusLine(e.StatusCode)
}

func statusLine(code int) string {
	if text := http.StatusText(code); text != "" {
		return strconv.Itoa(code) + " " + text
	}
	return strconv.Itoa(code)
}

// KindOf reports the Kind of err, or 0 when err is not a gateway error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return 0
}
