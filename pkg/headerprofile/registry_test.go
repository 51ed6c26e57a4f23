package headerprofile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadRegistryYAMLMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profiles.yaml")
	content := `
profiles:
  - name: firefox-mac
    user_agent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.5; rv:128.0) Gecko/20100101 Firefox/128.0"
    sec_ch_ua_platform: '"macOS"'
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	p, err := reg.Lookup("firefox-mac")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.SecCHUAPlatform != `"macOS"` {
		t.Fatalf("unexpected platform %q", p.SecCHUAPlatform)
	}
	if p.Accept != Default().Accept {
		t.Fatalf("expected accept to fall back to default, got %q", p.Accept)
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{DefaultName, "firefox-mac"}) {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profiles.json")
	content := `{"profiles":[{"name":"alt","authority":"gw.example"}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	p, err := reg.Lookup("alt")
	if err != nil || p.Authority != "gw.example" {
		t.Fatalf("Lookup alt = %+v, %v", p, err)
	}
}

func TestNewRegistryRejectsBadProfiles(t *testing.T) {
	if _, err := NewRegistry(Profile{Name: DefaultName}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if _, err := NewRegistry(Profile{}); err == nil {
		t.Fatalf("expected missing name error")
	}
	if _, err := NewRegistry(Profile{Name: "bad", UserAgent: "UA\nInjected: 1"}); err == nil {
		t.Fatalf("expected invalid header value error")
	}
}

func TestLookupDefaults(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	p, err := reg.Lookup("")
	if err != nil || p.Name != DefaultName {
		t.Fatalf("Lookup default = %+v, %v", p, err)
	}
	if _, err := reg.Lookup("missing"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
}
