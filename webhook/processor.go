package webhook

import (
	"fmt"
	"time"

	"github.com/minutesapp/minutes-pipeline/webhook/payload"
	"github.com/minutesapp/minutes-pipeline/webhook/signature"
)

/* Processor turns a raw inbound request into a typed outcome:
 * a challenge response, a trusted event, or a classified error.
 * Challenges are authenticated by verification token; events require
 * a valid HMAC signature before their schema is even considered.
 */

// OutcomeType discriminates the result of processing a request
type OutcomeType int

const (
	OutcomeChallenge OutcomeType = iota + 1
	OutcomeEvent
	OutcomeError
)

// String returns the string representation of the outcome type
func (t OutcomeType) String() string {
	switch t {
	case OutcomeChallenge:
		return "challenge"
	case OutcomeEvent:
		return "event"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Class categorizes a processing error for status code mapping
type Class int

const (
	ClassBadRequest Class = iota + 1
	ClassUnauthorized
	ClassServerError
)

// Outcome is the result of processing one inbound request
type Outcome struct {
	Type      OutcomeType
	Challenge string
	Event     *payload.Event
	Err       string
	Class     Class
}

// Request is the verbatim inbound material the processor works on
type Request struct {
	Signature string
	Timestamp string
	Nonce     string
	Body      []byte
}

// Processor verifies and discriminates inbound webhook requests
type Processor struct {
	encryptKey        string
	verificationToken string
	now               func() time.Time
}

// NewProcessor creates a processor with the webhook secrets injected
func NewProcessor(encryptKey, verificationToken string) *Processor {
	return &Processor{
		encryptKey:        encryptKey,
		verificationToken: verificationToken,
		now:               time.Now,
	}
}

// NewProcessorAt is NewProcessor with an explicit clock, for tests
func NewProcessorAt(encryptKey, verificationToken string, now func() time.Time) *Processor {
	p := NewProcessor(encryptKey, verificationToken)
	p.now = now
	return p
}

// Configured reports whether both webhook secrets are present
func (p *Processor) Configured() bool {
	return p.encryptKey != "" && p.verificationToken != ""
}

// Process verifies and parses one request.
// Parse failures short-circuit before any HMAC work. Challenges skip
// HMAC verification entirely: at endpoint setup time no signed request
// can exist yet, so they are authenticated by token equality alone.
func (p *Processor) Process(req Request) Outcome {
	if !p.Configured() {
		return errOutcome(ClassServerError, "Webhook not configured")
	}

	parsed, err := payload.Parse(req.Body)
	if err != nil {
		return errOutcome(ClassBadRequest, err.Error())
	}

	if parsed.Challenge != nil {
		if parsed.Challenge.Token != p.verificationToken {
			return errOutcome(ClassUnauthorized, "verification token mismatch")
		}
		return Outcome{Type: OutcomeChallenge, Challenge: parsed.Challenge.Challenge}
	}

	res := signature.VerifyAt(signature.Params{
		Signature:  req.Signature,
		Timestamp:  req.Timestamp,
		Nonce:      req.Nonce,
		Body:       req.Body,
		EncryptKey: p.encryptKey,
	}, p.now())
	if !res.Valid {
		return errOutcome(ClassUnauthorized, res.Err)
	}

	if err := parsed.Event.Validate(); err != nil {
		return errOutcome(ClassBadRequest, fmt.Sprintf("validating event: %v", err))
	}

	return Outcome{Type: OutcomeEvent, Event: parsed.Event}
}

func errOutcome(class Class, msg string) Outcome {
	return Outcome{Type: OutcomeError, Class: class, Err: msg}
}
