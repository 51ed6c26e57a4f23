package sites

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"gopkg.in/yaml.v3"
)

// Package sites loads the monitored gateway sites (YAML/JSON).

// Site is one gateway account watched by the monitor.
type Site struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	Cookie string `json:"cookie" yaml:"cookie"`
	UserID string `json:"user_id" yaml:"user_id"`
}

// Auth returns the session the gateway client replays for this site.
func (s Site) Auth() gateway.AuthContext {
	return gateway.AuthContext{BaseURL: s.URL, Cookie: s.Cookie, UserID: s.UserID}
}

// Redacted returns a copy safe to log or serve: the cookie is masked.
func (s Site) Redacted() Site {
	if s.Cookie != "" {
		s.Cookie = "***"
	}
	return s
}

// DefaultSiteName names a site built from single-site settings.
const DefaultSiteName = "Default Site"

type sitesFile struct {
	Sites []Site `json:"sites" yaml:"sites"`
}

// Registry materializes site definitions loaded from config files.
type Registry struct {
	mu    sync.RWMutex
	sites []Site
	idx   map[string]Site
}

// NewRegistry sanitizes and indexes sites. Missing ids are generated.
func NewRegistry(list []Site) (*Registry, error) {
	reg := &Registry{
		sites: make([]Site, 0, len(list)),
		idx:   make(map[string]Site, len(list)),
	}
	for i := range list {
		s := sanitizeSite(list[i])
		if err := validateSite(s); err != nil {
			return nil, fmt.Errorf("sites[%d]: %w", i, err)
		}
		if _, exists := reg.idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate site id %q", s.ID)
		}
		reg.sites = append(reg.sites, s)
		reg.idx[s.ID] = s
	}
	return reg, nil
}

// Single builds a one-site registry from flat settings, or an empty registry
// when no URL is given.
func Single(rawURL, cookie, userID string) (*Registry, error) {
	if strings.TrimSpace(rawURL) == "" {
		return NewRegistry(nil)
	}
	return NewRegistry([]Site{{Name: DefaultSiteName, URL: rawURL, Cookie: cookie, UserID: userID}})
}

// LoadRegistry loads the site registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sites file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	parsed, err := parseSites(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sites) == 0 {
		return nil, errors.New("sites file contains no sites entries")
	}
	return NewRegistry(parsed.Sites)
}

type unmarshalFn func([]byte, any) error

func parseSites(data []byte, ext string) (sitesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if parsed, err := unmarshalSites(d.name, data, d.fn); err == nil {
			return parsed, nil
		}
	}

	return sitesFile{}, errors.New("sites file format not recognized (expected YAML or JSON)")
}

func unmarshalSites(name string, data []byte, fn unmarshalFn) (sitesFile, error) {
	var parsed sitesFile
	if err := fn(data, &parsed); err != nil {
		return sitesFile{}, fmt.Errorf("decode %s sites: %w", name, err)
	}
	return parsed, nil
}

// sanitizeSite trims fields. The cookie is trimmed as the console form does
// before handing it to the client; the client itself sends it verbatim.
func sanitizeSite(s Site) Site {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.Cookie = strings.TrimSpace(s.Cookie)
	s.UserID = strings.TrimSpace(s.UserID)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Name == "" {
		if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
			s.Name = u.Host
		} else {
			s.Name = s.URL
		}
	}
	return s
}

func validateSite(s Site) error {
	if s.URL == "" {
		return fmt.Errorf("url is required for site %q", s.ID)
	}
	if s.UserID == "" {
		return fmt.Errorf("user_id is required for site %q", s.ID)
	}
	return nil
}

// ByID returns the site by id.
func (r *Registry) ByID(id string) (Site, bool) {
	if r == nil {
		return Site{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Site{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.idx[id]
	return s, ok
}

// All returns all configured sites in file order.
func (r *Registry) All() []Site {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// Len returns the number of sites.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sites)
}
