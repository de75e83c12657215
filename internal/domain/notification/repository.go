package notification

import (
	"context"
	"time"
)

// ReadMarkerStore persists the per-user lastReadTime value
type ReadMarkerStore interface {
	// Get returns the stored marker; an absent marker is not an error
	Get(ctx context.Context, userID string) (ReadMarker, error)
	// Set stores the marker
	Set(ctx context.Context, userID string, lastRead time.Time) error
}
