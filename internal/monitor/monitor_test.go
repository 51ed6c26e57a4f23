package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/quota-watch/internal/domain"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/publishers"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

type fetchReply struct {
	body string
	err  error
}

// fakeFetcher answers per base URL.
type fakeFetcher struct {
	quota   map[string]fetchReply
	usage   map[string]fetchReply
	windows []gateway.TimeRange
	calls   []string
}

func (f *fakeFetcher) FetchQuota(_ context.Context, auth gateway.AuthContext) (string, error) {
	f.calls = append(f.calls, "quota:"+auth.BaseURL)
	r := f.quota[auth.BaseURL]
	return r.body, r.err
}

func (f *fakeFetcher) FetchUsageStat(_ context.Context, auth gateway.AuthContext, window gateway.TimeRange) (string, error) {
	f.calls = append(f.calls, "usage:"+auth.BaseURL)
	f.windows = append(f.windows, window)
	r := f.usage[auth.BaseURL]
	return r.body, r.err
}

type fakeStore struct {
	saved []domain.Snapshot
	err   error
}

func (f *fakeStore) SaveSnapshot(_ context.Context, snap domain.Snapshot) error {
	f.saved = append(f.saved, snap)
	return f.err
}

type fakePublisher struct {
	events []publishers.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

type fakeRecorder struct {
	fetches []string
	failed  map[string]bool
}

func (f *fakeRecorder) ObserveFetch(op, outcome string, _ time.Duration) {
	f.fetches = append(f.fetches, op+"="+outcome)
}

func (f *fakeRecorder) ObserveSite(siteID, _ string, _, _ int64, failed bool) {
	if f.failed == nil {
		f.failed = map[string]bool{}
	}
	f.failed[siteID] = failed
}

var fixedNow = time.Date(2025, time.March, 4, 15, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))

func site(id, url string) sites.Site {
	return sites.Site{ID: id, Name: "Site " + id, URL: url, Cookie: "session=abc", UserID: "42"}
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	f := &fakeFetcher{
		quota: map[string]fetchReply{"https://a": {body: `{"success":true,"message":"","data":{"quota":500000,"username":"u"}}`}},
		usage: map[string]fetchReply{"https://a": {body: `{"success":true,"data":{"quota":1234,"rpm":0}}`}},
	}
	store := &fakeStore{}
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	svc := NewService(f, WithStore(store), WithPublisher(pub), WithMetrics(rec), WithClock(func() time.Time { return fixedNow }))

	snap, err := svc.Refresh(context.Background(), site("a", "https://a"))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.Balance != 500000 || snap.UsedToday != 1234 || !snap.OK() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	want := TodayWindow(fixedNow)
	if len(f.windows) != 1 || f.windows[0] != want {
		t.Fatalf("usage window = %v, want %v", f.windows, want)
	}
	if snap.WindowStart != want.Start || snap.WindowEnd != want.End {
		t.Fatalf("snapshot window not recorded: %+v", snap)
	}
	if strings.Join(f.calls, ",") != "quota:https://a,usage:https://a" {
		t.Fatalf("unexpected call order %v", f.calls)
	}
	if len(store.saved) != 1 || len(pub.events) != 1 || pub.events[0].SiteID != "a" {
		t.Fatalf("snapshot not recorded: store=%v events=%v", store.saved, pub.events)
	}
	if strings.Join(rec.fetches, ",") != "fetch_quota=ok,fetch_usage_stat=ok" || rec.failed["a"] {
		t.Fatalf("unexpected metrics %+v", rec)
	}
}

func TestRefreshEnvelopeFailures(t *testing.T) {
	cases := []struct {
		name      string
		quota     string
		usage     string
		wantErr   string
		wantUsage bool
	}{
		{name: "quota message", quota: `{"success":false,"message":"not logged in"}`, wantErr: "not logged in"},
		{name: "quota fallback", quota: `{"success":false}`, wantErr: "Balance failed"},
		{name: "quota missing data", quota: `{"success":true}`, wantErr: "Balance failed"},
		{name: "usage fallback", quota: `{"success":true,"data":{"quota":5}}`, usage: `{"success":false,"data":null}`, wantErr: "Usage failed", wantUsage: true},
		{name: "usage not json", quota: `{"success":true,"data":{"quota":5}}`, usage: `oops`, wantErr: "decode response", wantUsage: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeFetcher{
				quota: map[string]fetchReply{"https://a": {body: tc.quota}},
				usage: map[string]fetchReply{"https://a": {body: tc.usage}},
			}
			store := &fakeStore{}
			svc := NewService(f, WithStore(store), WithClock(func() time.Time { return fixedNow }))

			snap, err := svc.Refresh(context.Background(), site("a", "https://a"))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(snap.Error, tc.wantErr) {
				t.Fatalf("snapshot error = %q, want %q", snap.Error, tc.wantErr)
			}
			if snap.Balance != 0 || snap.UsedToday != 0 {
				t.Fatalf("failed snapshot should zero figures: %+v", snap)
			}
			if (len(f.windows) == 1) != tc.wantUsage {
				t.Fatalf("usage called = %v, want %v", len(f.windows) == 1, tc.wantUsage)
			}
			if len(store.saved) != 1 {
				t.Fatalf("failed snapshot should still be stored")
			}
		})
	}
}

func TestRefreshSummarisesHTMLErrorPages(t *testing.T) {
	page := "<!DOCTYPE html><html><head><title>\n  502 Bad Gateway | edge  \n</title></head><body>" + strings.Repeat("x", 4096) + "</body></html>"
	f := &fakeFetcher{
		quota: map[string]fetchReply{"https://a": {err: &gateway.Error{Kind: gateway.KindHTTPStatus, StatusCode: 502, Body: page}}},
	}
	rec := &fakeRecorder{}
	svc := NewService(f, WithMetrics(rec))

	snap, _ := svc.Refresh(context.Background(), site("a", "https://a"))
	if snap.Error != "HTTP 502 Bad Gateway: 502 Bad Gateway | edge" {
		t.Fatalf("snapshot error = %q", snap.Error)
	}
	if rec.fetches[0] != "fetch_quota=http_status" || !rec.failed["a"] {
		t.Fatalf("unexpected metrics %+v", rec)
	}
}

func TestRefreshKeepsJSONErrorBodies(t *testing.T) {
	gerr := &gateway.Error{Kind: gateway.KindHTTPStatus, StatusCode: 401, Body: `{"message":"unauthorized"}`}
	f := &fakeFetcher{quota: map[string]fetchReply{"https://a": {err: gerr}}}

	snap, err := NewService(f).Refresh(context.Background(), site("a", "https://a"))
	if !errors.Is(err, gerr) {
		t.Fatalf("expected gateway error to be returned, got %v", err)
	}
	if snap.Error != `HTTP 401 Unauthorized: {"message":"unauthorized"}` {
		t.Fatalf("snapshot error = %q", snap.Error)
	}
}

func TestRefreshReportsRecordFailures(t *testing.T) {
	f := &fakeFetcher{
		quota: map[string]fetchReply{"https://a": {body: `{"success":true,"data":{"quota":1}}`}},
		usage: map[string]fetchReply{"https://a": {body: `{"success":true,"data":{"quota":0}}`}},
	}
	store := &fakeStore{err: errors.New("disk full")}
	pub := &fakePublisher{err: errors.New("queue down")}

	snap, err := NewService(f, WithStore(store), WithPublisher(pub)).Refresh(context.Background(), site("a", "https://a"))
	if err == nil || !strings.Contains(err.Error(), "disk full") || !strings.Contains(err.Error(), "queue down") {
		t.Fatalf("expected joined record errors, got %v", err)
	}
	if !snap.OK() || len(pub.events) != 1 {
		t.Fatalf("query succeeded, snapshot should be ok and published: %+v", snap)
	}
}

func TestRunContinuesPastFailingSite(t *testing.T) {
	f := &fakeFetcher{
		quota: map[string]fetchReply{
			"https://bad":  {err: &gateway.Error{Kind: gateway.KindTransport, Err: errors.New("dial tcp: refused")}},
			"https://good": {body: `{"success":true,"data":{"quota":10}}`},
		},
		usage: map[string]fetchReply{"https://good": {body: `{"success":true,"data":{"quota":2}}`}},
	}
	store := &fakeStore{}
	svc := NewService(f, WithStore(store))

	err := svc.Run(context.Background(), []sites.Site{site("bad", "https://bad"), site("good", "https://good")})
	if err == nil || !strings.Contains(err.Error(), "site bad") || strings.Contains(err.Error(), "site good") {
		t.Fatalf("unexpected Run error %v", err)
	}
	if len(store.saved) != 2 || store.saved[1].Balance != 10 {
		t.Fatalf("expected both sites recorded, got %+v", store.saved)
	}
	if store.saved[0].Error != "request failed: dial tcp: refused" {
		t.Fatalf("transport failure text = %q", store.saved[0].Error)
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	if err := NewService(&fakeFetcher{}).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty site list")
	}
	var svc *Service
	if err := svc.Run(context.Background(), []sites.Site{site("a", "https://a")}); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestTodayWindowUsesLocalMidnight(t *testing.T) {
	w := TodayWindow(fixedNow)
	wantStart := time.Date(2025, time.March, 4, 0, 0, 0, 0, fixedNow.Location()).Unix()
	if w.Start != wantStart || w.End != fixedNow.Unix() {
		t.Fatalf("TodayWindow = %+v, want start %d end %d", w, wantStart, fixedNow.Unix())
	}
	if w.End-w.Start != 15*3600+30*60 {
		t.Fatalf("window length = %d", w.End-w.Start)
	}
}

func TestDecodeQuotaNumberForms(t *testing.T) {
	if n, err := decodeQuota(`{"success":true,"data":{"quota":12.0}}`, "x"); err != nil || n != 12 {
		t.Fatalf("float quota = %d, %v", n, err)
	}
	if n, err := decodeQuota(`{"success":true,"data":{}}`, "x"); err != nil || n != 0 {
		t.Fatalf("missing quota = %d, %v", n, err)
	}
}
