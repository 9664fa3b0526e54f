package payload

import (
	"encoding/json"
	"fmt"
)

// ChallengeType is the event type of the one-time URL verification handshake
const ChallengeType = "url_verification"

// MeetingEnded is the platform event type this service subscribes to
const MeetingEnded = "vc.meeting.all_meeting_ended_v1"

// Challenge is the URL verification handshake body.
// It is authenticated by token comparison, not by HMAC.
type Challenge struct {
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Type      string `json:"type"`
}

// Header carries the event envelope metadata
type Header struct {
	EventID    string `json:"event_id"`
	Token      string `json:"token"`
	CreateTime string `json:"create_time"`
	EventType  string `json:"event_type"`
}

// MeetingEvent is the meeting lifecycle payload inside the envelope
type MeetingEvent struct {
	Type       string `json:"type"`
	MeetingID  string `json:"meeting_id"`
	EndTime    int64  `json:"end_time"`
	HostUserID string `json:"host_user_id"`
	Topic      string `json:"topic,omitempty"`
}

// Event is a full platform event envelope
type Event struct {
	Header Header       `json:"header"`
	Event  MeetingEvent `json:"event"`
}

// Validate checks the event for required fields.
// A schema failure here is a validation error, distinct from an
// authenticity failure at the signature layer.
func (e Event) Validate() error {
	if e.Header.EventID == "" {
		return fmt.Errorf("header.event_id is required")
	}
	if e.Header.EventType == "" {
		return fmt.Errorf("header.event_type is required")
	}
	if e.Event.MeetingID == "" {
		return fmt.Errorf("event.meeting_id is required")
	}
	if e.Event.HostUserID == "" {
		return fmt.Errorf("event.host_user_id is required")
	}
	if e.Event.EndTime <= 0 {
		return fmt.Errorf("event.end_time is required")
	}
	return nil
}

// Parsed is the discrimination result of a raw body.
// Exactly one of Challenge or Event is set.
type Parsed struct {
	Challenge *Challenge
	Event     *Event
}

// Parse discriminates a raw JSON body into a challenge or an event.
// It does not validate the event schema; callers verify authenticity
// first and then call Event.Validate.
func Parse(raw []byte) (Parsed, error) {
	var probe struct {
		Type   string          `json:"type"`
		Header json.RawMessage `json:"header"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Parsed{}, fmt.Errorf("parsing webhook body: %w", err)
	}

	if probe.Type == ChallengeType {
		var c Challenge
		if err := json.Unmarshal(raw, &c); err != nil {
			return Parsed{}, fmt.Errorf("parsing challenge body: %w", err)
		}
		if c.Challenge == "" {
			return Parsed{}, fmt.Errorf("challenge field is required")
		}
		return Parsed{Challenge: &c}, nil
	}

	if len(probe.Header) > 0 {
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return Parsed{}, fmt.Errorf("parsing event body: %w", err)
		}
		return Parsed{Event: &e}, nil
	}

	return Parsed{}, fmt.Errorf("unrecognized webhook body shape")
}
