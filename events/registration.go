package events

import (
	"fmt"
	"strings"
	"time"
)

/* Registration describes one platform event type this service handles
 * and its per-event pipeline overrides
 */
type Registration struct {
	EventType      string
	Enabled        bool
	TranscriptWait time.Duration // 0 means use the pipeline default
	MaxRetries     *int          // nil means use the pipeline default
}

// Validate checks if the registration is usable
func (r *Registration) Validate() error {
	if strings.TrimSpace(r.EventType) == "" {
		return fmt.Errorf("event_type cannot be empty")
	}
	if r.TranscriptWait < 0 {
		return fmt.Errorf("transcript_wait cannot be negative for event %s", r.EventType)
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative for event %s", r.EventType)
	}
	return nil
}
