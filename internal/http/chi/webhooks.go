package chi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/minutesapp/minutes-pipeline/events"
	"github.com/minutesapp/minutes-pipeline/pipeline"
	"github.com/minutesapp/minutes-pipeline/webhook"
)

/* HTTP layer DTOs for the webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

// challengeResponse answers the platform's URL verification handshake
type challengeResponse struct {
	Challenge string `json:"challenge"`
}

// acceptResponse acknowledges an event before processing completes
type acceptResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
	Message string `json:"message"`
}

// errorResponse reports a rejected request
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// healthResponse reports endpoint configuration state
type healthResponse struct {
	Status          string   `json:"status"`
	Endpoint        string   `json:"endpoint"`
	SupportedEvents []string `json:"supportedEvents"`
	Timestamp       string   `json:"timestamp"`
}

// postMeetingEnded handles POST /webhook/meeting-ended
func postMeetingEnded(baseCtx context.Context, processor *webhook.Processor, pipe *pipeline.Service, registry *events.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
			return
		}
		defer r.Body.Close()

		outcome := processor.Process(webhook.Request{
			Signature: r.Header.Get("X-Lark-Signature"),
			Timestamp: r.Header.Get("X-Lark-Request-Timestamp"),
			Nonce:     r.Header.Get("X-Lark-Request-Nonce"),
			Body:      body,
		})

		switch outcome.Type {
		case webhook.OutcomeChallenge:
			writeJSON(w, http.StatusOK, challengeResponse{Challenge: outcome.Challenge})

		case webhook.OutcomeEvent:
			ev := outcome.Event

			reg, err := registry.Get(ev.Header.EventType)
			if err != nil || !reg.Enabled {
				// Unknown event types are acknowledged so the platform
				// stops re-delivering, but nothing is processed
				writeJSON(w, http.StatusOK, acceptResponse{
					Success: true,
					EventID: ev.Header.EventID,
					Message: "event type not handled",
				})
				return
			}

			mc := pipeline.MeetingContext{
				MeetingID:  ev.Event.MeetingID,
				HostUserID: ev.Event.HostUserID,
				EndTime:    time.Unix(ev.Event.EndTime, 0),
				Topic:      ev.Event.Topic,
			}

			var opts []pipeline.ProcessOption
			if reg.TranscriptWait > 0 {
				opts = append(opts, pipeline.WithTranscriptWait(reg.TranscriptWait))
			}
			if reg.MaxRetries != nil {
				opts = append(opts, pipeline.WithMaxRetries(*reg.MaxRetries))
			}

			// Respond before processing; failures surface through the
			// registered callbacks, not through this response
			go pipe.Process(baseCtx, ev.Header.EventID, mc, opts...)

			writeJSON(w, http.StatusOK, acceptResponse{
				Success: true,
				EventID: ev.Header.EventID,
				Message: "minutes generation scheduled",
			})

		default:
			writeJSON(w, statusFor(outcome.Class), errorResponse{Error: outcome.Err})
		}
	})
}

// getMeetingEnded handles GET /webhook/meeting-ended as a config check
func getMeetingEnded(processor *webhook.Processor, registry *events.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if !processor.Configured() {
			status = "unhealthy"
			code = http.StatusInternalServerError
		}

		writeJSON(w, code, healthResponse{
			Status:          status,
			Endpoint:        "/webhook/meeting-ended",
			SupportedEvents: registry.Supported(),
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func statusFor(class webhook.Class) int {
	switch class {
	case webhook.ClassUnauthorized:
		return http.StatusUnauthorized
	case webhook.ClassServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
