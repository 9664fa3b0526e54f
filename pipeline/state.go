package pipeline

import "fmt"

/* State represents the progress of one accepted meeting-ended event
 * Lifecycle: Accepted -> WaitingForTranscript -> FetchingTranscript
 *            -> GeneratingMinutes -> Completed | Failed
 */
type State int

const (
	Accepted State = iota + 1
	WaitingForTranscript
	FetchingTranscript
	GeneratingMinutes
	Completed
	Failed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case WaitingForTranscript:
		return "waiting_for_transcript"
	case FetchingTranscript:
		return "fetching_transcript"
	case GeneratingMinutes:
		return "generating_minutes"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Validate checks if the state is valid
func (s State) Validate() error {
	if s < Accepted || s > Failed {
		return fmt.Errorf("invalid state: %d", s)
	}
	return nil
}

// IsFinal returns true if the state is a terminal state
func (s State) IsFinal() bool {
	return s == Completed || s == Failed
}
