package webhook_test

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minutesapp/minutes-pipeline/webhook"
	"github.com/minutesapp/minutes-pipeline/webhook/signature"
)

const (
	testEncryptKey = "test-encrypt-key"
	testToken      = "test-verification-token"
)

var testNow = time.Unix(1700000000, 0)

func newTestProcessor() *webhook.Processor {
	return webhook.NewProcessorAt(testEncryptKey, testToken, func() time.Time { return testNow })
}

func signedRequest(body []byte) webhook.Request {
	ts := strconv.FormatInt(testNow.Unix(), 10)
	nonce := "nonce-xyz"
	return webhook.Request{
		Signature: signature.Sign(ts, nonce, body, testEncryptKey),
		Timestamp: ts,
		Nonce:     nonce,
		Body:      body,
	}
}

func eventBody(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"header": {
			"event_id": %q,
			"token": %q,
			"create_time": "1700000000000",
			"event_type": "vc.meeting.all_meeting_ended_v1"
		},
		"event": {
			"meeting_id": "mtg-42",
			"end_time": 1700000000,
			"host_user_id": "ou_host",
			"topic": "Planning"
		}
	}`, eventID, testToken))
}

func TestProcess(t *testing.T) {
	t.Run("success - challenge with matching token", func(t *testing.T) {
		p := newTestProcessor()
		// Challenges carry no signature headers; token equality is the
		// only authentication available at endpoint setup time
		out := p.Process(webhook.Request{
			Body: []byte(fmt.Sprintf(`{"challenge":"abc123","token":%q,"type":"url_verification"}`, testToken)),
		})

		require.Equal(t, webhook.OutcomeChallenge, out.Type)
		assert.Equal(t, "abc123", out.Challenge)
	})

	t.Run("success - well signed event", func(t *testing.T) {
		p := newTestProcessor()
		out := p.Process(signedRequest(eventBody("evt-001")))

		require.Equal(t, webhook.OutcomeEvent, out.Type)
		require.NotNil(t, out.Event)
		assert.Equal(t, "evt-001", out.Event.Header.EventID)
		assert.Equal(t, "mtg-42", out.Event.Event.MeetingID)
	})

	t.Run("error - unconfigured processor", func(t *testing.T) {
		p := webhook.NewProcessor("", "")
		out := p.Process(signedRequest(eventBody("evt-001")))

		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassServerError, out.Class)
		assert.Equal(t, "Webhook not configured", out.Err)
	})

	t.Run("error - challenge token mismatch", func(t *testing.T) {
		p := newTestProcessor()
		out := p.Process(webhook.Request{
			Body: []byte(`{"challenge":"abc123","token":"wrong-token","type":"url_verification"}`),
		})

		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassUnauthorized, out.Class)
		assert.Equal(t, "verification token mismatch", out.Err)
	})

	t.Run("error - invalid JSON is a bad request", func(t *testing.T) {
		p := newTestProcessor()
		out := p.Process(signedRequest([]byte(`{broken`)))

		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassBadRequest, out.Class)
		assert.Contains(t, out.Err, "parsing webhook body")
	})

	t.Run("error - bad signature beats bad schema", func(t *testing.T) {
		// The body is missing required fields AND the signature is wrong;
		// the authenticity failure must win
		p := newTestProcessor()
		req := signedRequest([]byte(`{"header":{"event_id":"evt-002"},"event":{}}`))
		req.Signature = "deadbeef"

		out := p.Process(req)
		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassUnauthorized, out.Class)
	})

	t.Run("error - tampered body rejected", func(t *testing.T) {
		p := newTestProcessor()
		req := signedRequest(eventBody("evt-001"))
		req.Body = eventBody("evt-tampered")

		out := p.Process(req)
		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassUnauthorized, out.Class)
		assert.Contains(t, out.Err, "signature mismatch")
	})

	t.Run("error - missing signature headers", func(t *testing.T) {
		p := newTestProcessor()
		out := p.Process(webhook.Request{Body: eventBody("evt-001")})

		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassUnauthorized, out.Class)
	})

	t.Run("error - stale signed request rejected", func(t *testing.T) {
		p := newTestProcessor()
		body := eventBody("evt-001")
		stale := strconv.FormatInt(testNow.Add(-10*time.Minute).Unix(), 10)
		req := webhook.Request{
			Signature: signature.Sign(stale, "nonce-xyz", body, testEncryptKey),
			Timestamp: stale,
			Nonce:     "nonce-xyz",
			Body:      body,
		}

		out := p.Process(req)
		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassUnauthorized, out.Class)
		assert.Contains(t, out.Err, "freshness window")
	})

	t.Run("error - signed but schema-invalid event", func(t *testing.T) {
		p := newTestProcessor()
		out := p.Process(signedRequest([]byte(`{"header":{"event_id":"evt-003","event_type":"vc.meeting.all_meeting_ended_v1"},"event":{"meeting_id":"mtg-42"}}`)))

		require.Equal(t, webhook.OutcomeError, out.Type)
		assert.Equal(t, webhook.ClassBadRequest, out.Class)
		assert.Contains(t, out.Err, "validating event")
	})
}

func TestOutcomeTypeString(t *testing.T) {
	assert.Equal(t, "challenge", webhook.OutcomeChallenge.String())
	assert.Equal(t, "event", webhook.OutcomeEvent.String())
	assert.Equal(t, "error", webhook.OutcomeError.String())
	assert.Equal(t, "unknown", webhook.OutcomeType(0).String())
}
