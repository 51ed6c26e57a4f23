package headerprofile

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildOrderAndValues(t *testing.T) {
	headers, err := Default().Build("7", "session=a; other=b", "https://x.test/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantNames := []string{
		"authority", "accept", "accept-language", "cache-control", "dnt",
		"new-api-user", "priority", "referer",
		"sec-ch-ua", "sec-ch-ua-mobile", "sec-ch-ua-platform",
		"sec-fetch-dest", "sec-fetch-mode", "sec-fetch-site",
		"user-agent", "cookie",
	}
	if got := headers.Names(); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("header order mismatch:\n got %v\nwant %v", got, wantNames)
	}

	want := map[string]string{
		"authority":          "api.husanai.com",
		"accept":             "application/json, text/plain, */*",
		"cache-control":      "no-store",
		"dnt":                "1",
		"new-api-user":       "7",
		"priority":           "u=1, i",
		"referer":            "https://x.test/console",
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
		"sec-fetch-dest":     "empty",
		"sec-fetch-mode":     "cors",
		"sec-fetch-site":     "same-origin",
		"cookie":             "session=a; other=b",
	}
	for name, val := range want {
		if got, _ := headers.Get(name); got != val {
			t.Errorf("%s = %q, want %q", name, got, val)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a, err := Default().Build("1", "c=1", "https://x.test")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Default().Build("1", "c=1", "https://x.test")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different headers")
	}
}

func TestBuildTrailingSlashIdempotent(t *testing.T) {
	for _, base := range []string{"https://x.test", "https://x.test/", "https://x.test///"} {
		headers, err := Default().Build("1", "c", base)
		if err != nil {
			t.Fatalf("Build(%q): %v", base, err)
		}
		if got, _ := headers.Get(HeaderReferer); got != "https://x.test/console" {
			t.Fatalf("referer for %q = %q", base, got)
		}
	}
}

func TestBuildRejectsInvalidFields(t *testing.T) {
	cases := []struct {
		name      string
		userID    string
		cookie    string
		baseURL   string
		wantField string
	}{
		{"newline in user id", "1\n2", "c", "https://x.test", FieldUserID},
		{"newline in cookie", "1", "a=b\r\nX-Evil: 1", "https://x.test", FieldCookie},
		{"nul in cookie", "1", "a=\x00", "https://x.test", FieldCookie},
		{"relative url", "1", "c", "x.test", FieldURL},
		{"empty url", "1", "c", "", FieldURL},
		{"control char in url", "1", "c", "https://x.test/\x7f", FieldURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Default().Build(tc.userID, tc.cookie, tc.baseURL)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.wantField {
				t.Fatalf("field = %q, want %q", verr.Field, tc.wantField)
			}
		})
	}
}

func TestBuildUsesSubstitutedProfile(t *testing.T) {
	p := Default()
	p.Name = "test"
	p.UserAgent = "TestAgent/1.0"
	p.Authority = "gw.example"

	headers, err := p.Build("1", "c", "https://gw.example")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, _ := headers.Get("User-Agent"); got != "TestAgent/1.0" {
		t.Fatalf("user-agent = %q", got)
	}
	if got, _ := headers.Get(HeaderAuthority); got != "gw.example" {
		t.Fatalf("authority = %q", got)
	}
	if Default().UserAgent == "TestAgent/1.0" {
		t.Fatalf("mutating a copy changed the built-in profile")
	}
}

func TestDefaultProfileValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
}
