package publishers

import (
	"time"

	"github.com/samvad-hq/quota-watch/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	SiteID      string          `json:"site_id"`
	SiteName    string          `json:"site_name"`
	Snapshot    domain.Snapshot `json:"snapshot"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewEvent constructs an Event for the given snapshot.
func NewEvent(snap domain.Snapshot) Event {
	return Event{
		SiteID:      snap.SiteID,
		SiteName:    snap.SiteName,
		Snapshot:    snap,
		PublishedAt: time.Now().UTC(),
	}
}

// status labels the event for sinks that filter on attributes.
func (e Event) status() string {
	if e.Snapshot.OK() {
		return "ok"
	}
	return "error"
}
