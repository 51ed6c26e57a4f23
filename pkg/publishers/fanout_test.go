package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id    string
	typ   string
	err   error
	calls int
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
	})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
}

func TestBuildAllRejectsUnknownType(t *testing.T) {
	if _, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{{ID: "x", Type: "kafka"}}, nil); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestRegistryUsesCustomBuilder(t *testing.T) {
	stub := &stubPublisher{id: "s", typ: "stub"}
	reg := NewRegistry(map[string]Builder{
		"stub": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return stub, nil },
	})
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{{ID: "s", Type: "STUB"}}, nil)
	if err != nil || len(pubs) != 1 || pubs[0] != stub {
		t.Fatalf("BuildAll = %v, %v", pubs, err)
	}

	fanout := NewFanout(append(pubs, nil))
	if fanout.Size() != 1 {
		t.Fatalf("nil publishers should be skipped")
	}
	if n, err := fanout.Publish(context.Background(), Event{}); n != 1 || err != nil || stub.calls != 1 {
		t.Fatalf("Publish = %d, %v (calls %d)", n, err, stub.calls)
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
