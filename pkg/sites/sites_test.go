package sites

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLoadSitesYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sites.yaml")
	content := `
sites:
  - id: husan
    name: Husan
    url: https://api.husanai.com/
    cookie: "  session=abc  "
    user_id: "39"
  - url: https://gw.example
    cookie: session=def
    user_id: "7"
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sites file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(all))
	}

	s, ok := reg.ByID("husan")
	if !ok {
		t.Fatalf("expected site husan")
	}
	if s.Cookie != "session=abc" {
		t.Fatalf("cookie not trimmed: %q", s.Cookie)
	}
	auth := s.Auth()
	if auth.BaseURL != "https://api.husanai.com/" || auth.UserID != "39" {
		t.Fatalf("unexpected auth %+v", auth)
	}

	second := all[1]
	if _, err := uuid.Parse(second.ID); err != nil {
		t.Fatalf("expected generated uuid, got %q", second.ID)
	}
	if second.Name != "gw.example" {
		t.Fatalf("expected host as default name, got %q", second.Name)
	}
}

func TestLoadSitesJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sites.json")
	content := `{"sites":[{"id":"a","url":"https://a.example","cookie":"c","user_id":"1"}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sites file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 site, got %d", reg.Len())
	}
}

func TestNewRegistryRejectsInvalid(t *testing.T) {
	if _, err := NewRegistry([]Site{{ID: "x", UserID: "1"}}); err == nil {
		t.Fatalf("expected missing url error")
	}
	if _, err := NewRegistry([]Site{{ID: "x", URL: "https://x.test"}}); err == nil {
		t.Fatalf("expected missing user_id error")
	}
	dup := []Site{
		{ID: "x", URL: "https://x.test", UserID: "1"},
		{ID: "x", URL: "https://y.test", UserID: "2"},
	}
	if _, err := NewRegistry(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestSingle(t *testing.T) {
	reg, err := Single("", "", "")
	if err != nil || reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d sites err=%v", reg.Len(), err)
	}

	reg, err = Single("https://x.test", "c", "39")
	if err != nil {
		t.Fatalf("Single: %v", err)
	}
	all := reg.All()
	if len(all) != 1 || all[0].Name != DefaultSiteName {
		t.Fatalf("unexpected sites %+v", all)
	}
}

func TestRedactedMasksCookie(t *testing.T) {
	s := Site{ID: "a", Cookie: "secret"}
	if s.Redacted().Cookie != "***" {
		t.Fatalf("cookie not masked")
	}
	if s.Cookie != "secret" {
		t.Fatalf("original mutated")
	}
}
