package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestyClientGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("New-Api-User"); got != "7" {
			t.Errorf("new-api-user = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "UA" {
			t.Errorf("user-agent = %q", got)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Get(context.Background(), srv.URL, []Header{
		{Name: "new-api-user", Value: "7"},
		{Name: "user-agent", Value: "UA"},
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusTeapot {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if resp.Status() != "418 I'm a teapot" {
		t.Fatalf("status line = %q", resp.Status())
	}
	if string(resp.Body()) != "short and stout" {
		t.Fatalf("body = %q", resp.Body())
	}
}

func TestRestyClientDoesNotKeepCookies(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "server", Value: "issued"})
			return
		}
		if _, err := r.Cookie("server"); err == nil {
			t.Errorf("server-issued cookie was replayed")
		}
	}))
	defer srv.Close()

	client := NewRestyClient(time.Second)
	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), srv.URL, nil); err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
	}
}

func TestRestyClientClassifiesTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
	}))
	defer srv.Close()

	_, err := NewRestyClient(time.Second).Get(context.Background(), srv.URL, nil)
	var bre *BodyReadError
	if !errors.As(err, &bre) {
		t.Fatalf("expected BodyReadError, got %v", err)
	}
	if bre.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", bre.StatusCode)
	}
}

func TestRestyClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewRestyClient(time.Second).Get(context.Background(), url, nil)
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var bre *BodyReadError
	if errors.As(err, &bre) {
		t.Fatalf("transport failure misclassified as body read: %v", err)
	}
}
