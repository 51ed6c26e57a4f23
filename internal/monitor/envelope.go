package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
)

const (
	balanceFailed = "Balance failed"
	usageFailed   = "Usage failed"

	maxErrorSnippet = 512
)

// envelope is the console API response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		Quota json.Number `json:"quota"`
	} `json:"data"`
}

// decodeQuota extracts data.quota from a console response body. fallback is
// used as the error text when the envelope reports failure without a message.
func decodeQuota(body, fallback string) (int64, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success || env.Data == nil {
		if msg := strings.TrimSpace(env.Message); msg != "" {
			return 0, errors.New(msg)
		}
		return 0, errors.New(fallback)
	}
	if env.Data.Quota == "" {
		return 0, nil
	}
	if n, err := env.Data.Quota.Int64(); err == nil {
		return n, nil
	}
	f, err := env.Data.Quota.Float64()
	if err != nil {
		return 0, fmt.Errorf("decode quota %q: %w", env.Data.Quota, err)
	}
	return int64(f), nil
}

// describeFailure renders err for a snapshot. HTML error pages (proxies,
// challenge pages) are reduced to their <title>.
func describeFailure(err error) string {
	if err == nil {
		return ""
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) && gerr.Kind == gateway.KindHTTPStatus && looksLikeHTML(gerr.Body) {
		if title := htmlTitle(gerr.Body); title != "" {
			return gerr.StatusLine() + ": " + title
		}
		return gerr.StatusLine()
	}
	return truncate(err.Error(), maxErrorSnippet)
}

func looksLikeHTML(body string) bool {
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

func htmlTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
