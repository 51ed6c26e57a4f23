package httpclient

import (
	"context"
	"fmt"
)

// Header is a single request header. A []Header keeps insertion order.
type Header struct {
	Name  string
	Value string
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Status() string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers []Header) (Response, error)
}

// BodyReadError reports a response whose status line and headers arrived but
// whose body could not be read to completion.
type BodyReadError struct {
	StatusCode int
	Err        error
}

func (e *BodyReadError) Error() string {
	return fmt.Sprintf("read body (status %d): %v", e.StatusCode, e.Err)
}

func (e *BodyReadError) Unwrap() error { return e.Err }
