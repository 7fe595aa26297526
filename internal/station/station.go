package station

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Station is a user-managed record of a playable stream. The id is opaque and
// client-generated; identity for sync purposes is the normalized URL, not the
// id (see NormalizeURL).
type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NormalizeURL returns the identity key used for deduplication: the stream
// URL lower-cased and trimmed of surrounding whitespace. Two stations with
// different ids but equal normalized URLs are the same station.
func NormalizeURL(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}

// ChangeType classifies a pending change.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Valid reports whether t is one of the three known change types.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeAdd, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// PendingChange is one local edit not yet confirmed against the remote
// store. Timestamp is epoch milliseconds and orders queue draining.
type PendingChange struct {
	ID        string     `json:"id"`
	Type      ChangeType `json:"type"`
	Station   Station    `json:"station"`
	Timestamp int64      `json:"timestamp"`
}

// NewPendingChange builds a change for the given station with a fresh unique
// id and the current time.
func NewPendingChange(t ChangeType, s Station) PendingChange {
	return PendingChange{
		ID:        uuid.New().String(),
		Type:      t,
		Station:   s,
		Timestamp: time.Now().UnixMilli(),
	}
}
