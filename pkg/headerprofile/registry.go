package headerprofile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// profilesFile represents the structure of the profiles configuration file.
type profilesFile struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Registry holds named profiles. The built-in default is always present.
type Registry struct {
	mu  sync.RWMutex
	idx map[string]Profile
}

// NewRegistry returns a registry holding the built-in profile plus extras.
func NewRegistry(extra ...Profile) (*Registry, error) {
	reg := &Registry{idx: map[string]Profile{DefaultName: Default()}}
	for i, p := range extra {
		p = withDefaults(p)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.Name]; exists {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		reg.idx[p.Name] = p
	}
	return reg, nil
}

// LoadRegistry reads extra profiles from a YAML/JSON file. An empty path
// yields a registry with only the built-in profile.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewRegistry()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	file, err := parseProfiles(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(file.Profiles...)
}

func parseProfiles(data []byte, ext string) (profilesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file profilesFile
		if err := d.fn(data, &file); err == nil {
			return file, nil
		}
	}

	return profilesFile{}, errors.New("profiles file format not recognized (expected YAML or JSON)")
}

// withDefaults fills empty fields from the built-in profile, so a file entry
// only has to list what it changes.
func withDefaults(p Profile) Profile {
	def := Default()
	p.Name = strings.TrimSpace(p.Name)
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&p.Authority, def.Authority)
	fill(&p.Accept, def.Accept)
	fill(&p.AcceptLanguage, def.AcceptLanguage)
	fill(&p.CacheControl, def.CacheControl)
	fill(&p.DNT, def.DNT)
	fill(&p.Priority, def.Priority)
	fill(&p.SecCHUA, def.SecCHUA)
	fill(&p.SecCHUAMobile, def.SecCHUAMobile)
	fill(&p.SecCHUAPlatform, def.SecCHUAPlatform)
	fill(&p.SecFetchDest, def.SecFetchDest)
	fill(&p.SecFetchMode, def.SecFetchMode)
	fill(&p.SecFetchSite, def.SecFetchSite)
	fill(&p.UserAgent, def.UserAgent)
	return p
}

// Lookup returns the named profile. An empty name selects the default.
func (r *Registry) Lookup(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if r == nil {
		if name == DefaultName {
			return Default(), nil
		}
		return Profile{}, fmt.Errorf("unknown browser profile %q", name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown browser profile %q", name)
	}
	return p, nil
}

// Names lists registered profile names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return []string{DefaultName}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.idx))
	for name := range r.idx {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
