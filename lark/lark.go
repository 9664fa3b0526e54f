package lark

import (
	"errors"
	"fmt"
	"time"
)

// Meeting is the meeting record returned by the platform
type Meeting struct {
	ID               string    `json:"id"`
	Topic            string    `json:"topic"`
	HostUserID       string    `json:"host_user_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ParticipantCount int       `json:"participant_count"`
}

// Sentence is one time-coded utterance of a transcript
type Sentence struct {
	Speaker string `json:"speaker"`
	StartMs int64  `json:"start_ms"`
	StopMs  int64  `json:"stop_ms"`
	Text    string `json:"text"`
}

// Transcript is the speech-to-text output of a meeting
type Transcript struct {
	MeetingID string     `json:"meeting_id"`
	Sentences []Sentence `json:"sentences"`
}

// Notification is a minutes-ready message for the meeting host
type Notification struct {
	ReceiverID string
	MeetingID  string
	Topic      string
	Summary    string
}

// NotifyReceipt identifies a delivered notification message
type NotifyReceipt struct {
	MessageID string
}

/* Sentinel errors the pipeline retry predicate relies on.
 * ErrTranscriptNotReady is the only transcript error worth retrying;
 * the others mean a transcript will never exist for this meeting.
 */
var (
	ErrTranscriptNotReady = errors.New("transcript not ready")
	ErrNoRecording        = errors.New("meeting has no recording")
	ErrMeetingNotFound    = errors.New("meeting not found")
)

// APIError is a non-sentinel platform error carrying the HTTP status,
// so the default retry predicate can see 5xx responses
type APIError struct {
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark api error: status %d code %d: %s", e.Status, e.Code, e.Msg)
}

// StatusCode returns the HTTP status of the failed call
func (e *APIError) StatusCode() int {
	return e.Status
}
