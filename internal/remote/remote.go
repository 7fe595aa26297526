// Package remote defines the engine's view of the shared document store: a
// per-user collection of station documents supporting atomic replace-all,
// read-all, and single-document create/patch/delete.
package remote

import (
	"context"
	"time"

	"github.com/pockettune/radiosync/internal/station"
)

// Store is the remote collaborator interface. These are the only remote
// effects the engine performs; call sites wrap every operation in the retry
// executor.
type Store interface {
	// UploadAll atomically replaces the user's entire remote collection.
	// Partial failure leaves either the old or the new full set, never a mix.
	UploadAll(ctx context.Context, userID string, stations []station.Station) error

	// DownloadAll returns every station currently stored for the user.
	DownloadAll(ctx context.Context, userID string) ([]station.Station, error)

	// PushOne applies a single add, update, or delete by station id.
	PushOne(ctx context.Context, userID string, change station.PendingChange) error
}

// CloudStation is the remote-side projection of a station. It exists only at
// this boundary; the engine converts to and from station.Station.
type CloudStation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ToCloud projects a station into its remote document form, stamping both
// timestamps with the current time.
func ToCloud(s station.Station) CloudStation {
	now := time.Now().UnixMilli()
	return CloudStation{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FromCloud strips the remote-only timestamps.
func FromCloud(c CloudStation) station.Station {
	return station.Station{ID: c.ID, Name: c.Name, URL: c.URL}
}
