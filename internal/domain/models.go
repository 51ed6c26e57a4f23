package domain

import "time"

// Snapshot is one observation of a site's quota: the balance reported by the
// account endpoint and the quota consumed since local midnight.
type Snapshot struct {
	SiteID        string    `json:"site_id"`
	SiteName      string    `json:"site_name"`
	Balance       int64     `json:"balance"`
	UsedToday     int64     `json:"used_today"`
	WindowStart   int64     `json:"window_start,omitempty"`
	WindowEnd     int64     `json:"window_end,omitempty"`
	Error         string    `json:"error,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
	ElapsedMillis int64     `json:"elapsed_ms"`
}

// OK reports whether both queries succeeded.
func (s Snapshot) OK() bool { return s.Error == "" }
