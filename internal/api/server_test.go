package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samvad-hq/quota-watch/internal/commands"
	"github.com/samvad-hq/quota-watch/internal/domain"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

type stubFetcher struct {
	body string
	err  error
	auth gateway.AuthContext
}

func (s *stubFetcher) FetchQuota(_ context.Context, auth gateway.AuthContext) (string, error) {
	s.auth = auth
	return s.body, s.err
}

func (s *stubFetcher) FetchUsageStat(_ context.Context, auth gateway.AuthContext, _ gateway.TimeRange) (string, error) {
	s.auth = auth
	return s.body, s.err
}

type stubSnapshots struct {
	snaps map[string]domain.Snapshot
	err   error
}

func (s stubSnapshots) LatestSnapshot(_ context.Context, id string) (domain.Snapshot, bool, error) {
	if s.err != nil {
		return domain.Snapshot{}, false, s.err
	}
	snap, ok := s.snaps[id]
	return snap, ok, nil
}

func newTestServer(t *testing.T, f gateway.Fetcher, snaps SnapshotReader) http.Handler {
	t.Helper()
	reg, err := sites.NewRegistry([]sites.Site{
		{ID: "main", Name: "Main", URL: "https://api.example.com", Cookie: "session=secret", UserID: "42"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewServer(commands.NewDispatcher(f), reg, snaps, nil).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, out
}

func TestInvokeCommandReturnsRawBody(t *testing.T) {
	f := &stubFetcher{body: `{"success":true,"data":{"quota":9}}`}
	h := newTestServer(t, f, nil)

	rr, out := do(t, h, http.MethodPost, "/api/commands/fetch_quota",
		`{"url":"https://api.example.com","cookie":"c=1","userId":"42"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if out["result"] != f.body {
		t.Fatalf("result = %v", out["result"])
	}
	if f.auth.UserID != "42" || f.auth.Cookie != "c=1" {
		t.Fatalf("auth not forwarded: %+v", f.auth)
	}
}

func TestInvokeCommandEmptyResultIsKept(t *testing.T) {
	h := newTestServer(t, &stubFetcher{body: ""}, nil)

	rr, out := do(t, h, http.MethodPost, "/api/commands/fetch_usage_stat",
		`{"url":"https://x","cookie":"c","userId":"1","startTimestamp":1,"endTimestamp":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if v, ok := out["result"]; !ok || v != "" {
		t.Fatalf("expected empty result to be present, got %v", out)
	}
}

func TestInvokeCommandErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
		want   string
	}{
		{name: "unknown command", path: "/api/commands/nope", body: `{}`, status: http.StatusNotFound, want: `unknown command "nope"`},
		{name: "bad json", path: "/api/commands/fetch_quota", body: `{`, status: http.StatusBadRequest, want: "invalid request body"},
		{name: "missing argument", path: "/api/commands/fetch_quota", body: ``, status: http.StatusBadRequest, want: `missing argument "url"`},
		{
			name: "http status", path: "/api/commands/fetch_quota", body: `{"url":"u","cookie":"c","userId":"1"}`,
			err:    &gateway.Error{Kind: gateway.KindHTTPStatus, StatusCode: 401, Body: "denied"},
			status: http.StatusBadGateway, want: "HTTP 401 Unauthorized: denied",
		},
		{
			name: "transport", path: "/api/commands/fetch_quota", body: `{"url":"u","cookie":"c","userId":"1"}`,
			err:    &gateway.Error{Kind: gateway.KindTransport, Err: errors.New("dial tcp: refused")},
			status: http.StatusGatewayTimeout, want: "request failed: dial tcp: refused",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &stubFetcher{err: tc.err}, nil)
			rr, out := do(t, h, http.MethodPost, tc.path, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tc.status, rr.Body.String())
			}
			if msg, _ := out["error"].(string); !strings.Contains(msg, tc.want) {
				t.Fatalf("error = %q, want %q", msg, tc.want)
			}
			if _, ok := out["result"]; ok {
				t.Fatalf("error response must not carry a result")
			}
		})
	}
}

func TestListSitesRedactsCookies(t *testing.T) {
	h := newTestServer(t, &stubFetcher{}, nil)

	rr, _ := do(t, h, http.MethodGet, "/api/sites", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Fatalf("cookie leaked: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"id":"main"`) {
		t.Fatalf("site missing: %s", rr.Body.String())
	}
}

func TestSiteSnapshot(t *testing.T) {
	snaps := stubSnapshots{snaps: map[string]domain.Snapshot{"main": {SiteID: "main", Balance: 77}}}
	h := newTestServer(t, &stubFetcher{}, snaps)

	rr, out := do(t, h, http.MethodGet, "/api/sites/main/snapshot", "")
	if rr.Code != http.StatusOK || out["balance"] != float64(77) {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}

	if rr, _ := do(t, h, http.MethodGet, "/api/sites/other/snapshot", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown site status = %d", rr.Code)
	}

	empty := newTestServer(t, &stubFetcher{}, stubSnapshots{})
	if rr, _ := do(t, empty, http.MethodGet, "/api/sites/main/snapshot", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing snapshot status = %d", rr.Code)
	}

	broken := newTestServer(t, &stubFetcher{}, stubSnapshots{err: errors.New("io")})
	if rr, _ := do(t, broken, http.MethodGet, "/api/sites/main/snapshot", ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &stubFetcher{}, nil)

	if rr, out := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("healthz = %d %v", rr.Code, out)
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "quota_watch_http_requests_total") {
		t.Fatalf("metrics endpoint missing request counter: %d", rr.Code)
	}
}
