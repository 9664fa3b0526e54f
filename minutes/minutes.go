package minutes

import "time"

/* Minutes represents the structured summary artifact derived from a
 * meeting transcript. Uses value semantics as it represents data.
 */
type Minutes struct {
	Summary     string       `json:"summary"`
	Topics      []Topic      `json:"topics"`
	Decisions   []string     `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Attendees   []string     `json:"attendees"`
	Metadata    Metadata     `json:"metadata"`
}

// Topic is a discussion topic with its key points
type Topic struct {
	Title  string   `json:"title"`
	Points []string `json:"points,omitempty"`
}

// ActionItem is a tracked follow-up extracted from the discussion
type ActionItem struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// Metadata records provenance of a generated minutes document
type Metadata struct {
	MeetingID   string    `json:"meeting_id"`
	Topic       string    `json:"topic,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Model       string    `json:"model,omitempty"`
}

// Usage is the token accounting reported by the generation capability
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// GenerationResult is produced once per generation call and then
// handed to the side-effect callbacks; it is never mutated after return
type GenerationResult struct {
	Minutes        Minutes       `json:"minutes"`
	ProcessingTime time.Duration `json:"processing_time"`
	Usage          Usage         `json:"usage"`
}

// SaveReceipt identifies a persisted minutes document
type SaveReceipt struct {
	RecordID string `json:"record_id"`
	Version  int    `json:"version"`
}
