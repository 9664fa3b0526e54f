package minutes

import (
	"context"
	"time"
)

/* Small, focused interfaces; storage backends implement the composition.
 * Context is always the first parameter in functions that do I/O.
 */

// Reader provides read operations for persisted minutes
type Reader interface {
	Get(ctx context.Context, meetingID string) (Minutes, error)
}

// Writer provides write operations for minutes documents
type Writer interface {
	/* Save persists the minutes for a meeting and bumps its version.
	 * Saving twice for the same meeting produces version 1, 2, ...
	 */
	Save(ctx context.Context, m Minutes, meetingID string) (SaveReceipt, error)
}

// EventDeduper tracks processed webhook event IDs so re-delivered
// events do not trigger a second generation run
type EventDeduper interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error
}

// Repository combines the storage capabilities of a backend
type Repository interface {
	Reader
	Writer
	EventDeduper
	Close(ctx context.Context) error
}
