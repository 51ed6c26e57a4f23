package headerprofile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samvad-hq/quota-watch/pkg/httpclient"
	"golang.org/x/net/http/httpguts"
)

// Header names in the order the console sends them.
const (
	HeaderAuthority       = "authority"
	HeaderAccept          = "accept"
	HeaderAcceptLanguage  = "accept-language"
	HeaderCacheControl    = "cache-control"
	HeaderDNT             = "dnt"
	HeaderNewAPIUser      = "new-api-user"
	HeaderPriority        = "priority"
	HeaderReferer         = "referer"
	HeaderSecCHUA         = "sec-ch-ua"
	HeaderSecCHUAMobile   = "sec-ch-ua-mobile"
	HeaderSecCHUAPlatform = "sec-ch-ua-platform"
	HeaderSecFetchDest    = "sec-fetch-dest"
	HeaderSecFetchMode    = "sec-fetch-mode"
	HeaderSecFetchSite    = "sec-fetch-site"
	HeaderUserAgent       = "user-agent"
	HeaderCookie          = "cookie"
)

// consolePath is appended to the base URL to form the referer.
const consolePath = "/console"

// Profile is a named browser fingerprint: every header value that does not
// depend on the caller's session.
type Profile struct {
	Name            string `json:"name" yaml:"name"`
	Authority       string `json:"authority" yaml:"authority"`
	Accept          string `json:"accept" yaml:"accept"`
	AcceptLanguage  string `json:"accept_language" yaml:"accept_language"`
	CacheControl    string `json:"cache_control" yaml:"cache_control"`
	DNT             string `json:"dnt" yaml:"dnt"`
	Priority        string `json:"priority" yaml:"priority"`
	SecCHUA         string `json:"sec_ch_ua" yaml:"sec_ch_ua"`
	SecCHUAMobile   string `json:"sec_ch_ua_mobile" yaml:"sec_ch_ua_mobile"`
	SecCHUAPlatform string `json:"sec_ch_ua_platform" yaml:"sec_ch_ua_platform"`
	SecFetchDest    string `json:"sec_fetch_dest" yaml:"sec_fetch_dest"`
	SecFetchMode    string `json:"sec_fetch_mode" yaml:"sec_fetch_mode"`
	SecFetchSite    string `json:"sec_fetch_site" yaml:"sec_fetch_site"`
	UserAgent       string `json:"user_agent" yaml:"user_agent"`
}

// DefaultName names the built-in profile.
const DefaultName = "chrome-143-windows"

var chrome143Windows = Profile{
	Name:            DefaultName,
	Authority:       "api.husanai.com",
	Accept:          "application/json, text/plain, */*",
	AcceptLanguage:  "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7",
	CacheControl:    "no-store",
	DNT:             "1",
	Priority:        "u=1, i",
	SecCHUA:         `"Google Chrome";v="143", "Chromium";v="143", "Not A(Brand";v="24"`,
	SecCHUAMobile:   "?0",
	SecCHUAPlatform: `"Windows"`,
	SecFetchDest:    "empty",
	SecFetchMode:    "cors",
	SecFetchSite:    "same-origin",
	UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36",
}

// Default returns a copy of the built-in Chrome 143 / Windows profile.
func Default() Profile { return chrome143Windows }

// Headers is an ordered header set.
type Headers []httpclient.Header

// Get returns the value of the first header matching name, case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Names lists header names in order.
func (h Headers) Names() []string {
	out := make([]string, len(h))
	for i, hdr := range h {
		out[i] = hdr.Name
	}
	return out
}

// ValidationError reports a session field that cannot be sent as-is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Field names reported by ValidationError.
const (
	FieldUserID = "user id"
	FieldCookie = "cookie"
	FieldURL    = "url"
)

// TrimBaseURL strips every trailing slash from baseURL.
func TrimBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

// Referer returns the console URL the browser would report for baseURL.
func Referer(baseURL string) string {
	return TrimBaseURL(baseURL) + consolePath
}

// Build produces the ordered header set for one session request. It performs
// no I/O; the same inputs always yield the same headers.
func (p Profile) Build(userID, cookie, baseURL string) (Headers, error) {
	if !httpguts.ValidHeaderFieldValue(userID) {
		return nil, &ValidationError{Field: FieldUserID, Reason: "contains characters not allowed in a header value"}
	}
	referer := Referer(baseURL)
	if err := validateReferer(referer); err != nil {
		return nil, err
	}
	if !httpguts.ValidHeaderFieldValue(cookie) {
		return nil, &ValidationError{Field: FieldCookie, Reason: "contains characters not allowed in a header value"}
	}

	return Headers{
		{Name: HeaderAuthority, Value: p.Authority},
		{Name: HeaderAccept, Value: p.Accept},
		{Name: HeaderAcceptLanguage, Value: p.AcceptLanguage},
		{Name: HeaderCacheControl, Value: p.CacheControl},
		{Name: HeaderDNT, Value: p.DNT},
		{Name: HeaderNewAPIUser, Value: userID},
		{Name: HeaderPriority, Value: p.Priority},
		{Name: HeaderReferer, Value: referer},
		{Name: HeaderSecCHUA, Value: p.SecCHUA},
		{Name: HeaderSecCHUAMobile, Value: p.SecCHUAMobile},
		{Name: HeaderSecCHUAPlatform, Value: p.SecCHUAPlatform},
		{Name: HeaderSecFetchDest, Value: p.SecFetchDest},
		{Name: HeaderSecFetchMode, Value: p.SecFetchMode},
		{Name: HeaderSecFetchSite, Value: p.SecFetchSite},
		{Name: HeaderUserAgent, Value: p.UserAgent},
		{Name: HeaderCookie, Value: cookie},
	}, nil
}

func validateReferer(referer string) error {
	if !httpguts.ValidHeaderFieldValue(referer) {
		return &ValidationError{Field: FieldURL, Reason: "contains characters not allowed in a header value"}
	}
	u, err := url.Parse(referer)
	if err != nil {
		return &ValidationError{Field: FieldURL, Reason: err.Error()}
	}
	if !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: FieldURL, Reason: fmt.Sprintf("%q is not an absolute URL", referer)}
	}
	return nil
}

// Validate checks that every fixed value is a legal header value.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	fields := []struct {
		name  string
		value string
	}{
		{HeaderAuthority, p.Authority},
		{HeaderAccept, p.Accept},
		{HeaderAcceptLanguage, p.AcceptLanguage},
		{HeaderCacheControl, p.CacheControl},
		{HeaderDNT, p.DNT},
		{HeaderPriority, p.Priority},
		{HeaderSecCHUA, p.SecCHUA},
		{HeaderSecCHUAMobile, p.SecCHUAMobile},
		{HeaderSecCHUAPlatform, p.SecCHUAPlatform},
		{HeaderSecFetchDest, p.SecFetchDest},
		{HeaderSecFetchMode, p.SecFetchMode},
		{HeaderSecFetchSite, p.SecFetchSite},
		{HeaderUserAgent, p.UserAgent},
	}
	for _, f := range fields {
		if !httpguts.ValidHeaderFieldValue(f.value) {
			return fmt.Errorf("profile %q: %s contains characters not allowed in a header value", p.Name, f.name)
		}
	}
	return nil
}
