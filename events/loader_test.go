package events

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minutesapp/minutes-pipeline/webhook/payload"
)

func writeEventsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()

	assert.True(t, l.Exists(payload.MeetingEnded))
	assert.Equal(t, []string{payload.MeetingEnded}, l.Supported())

	reg, err := l.Get(payload.MeetingEnded)
	require.NoError(t, err)
	assert.True(t, reg.Enabled)
	assert.Zero(t, reg.TranscriptWait)
	assert.Nil(t, reg.MaxRetries)
}

func TestLoad(t *testing.T) {
	t.Run("success - registrations replace defaults", func(t *testing.T) {
		path := writeEventsFile(t, `
events:
  - event_type: vc.meeting.all_meeting_ended_v1
    enabled: true
    transcript_wait_seconds: 60
    max_retries: 8
  - event_type: vc.meeting.recording_ready_v1
    enabled: false
`)

		l := NewLoader()
		require.NoError(t, l.Load(path))

		reg, err := l.Get(payload.MeetingEnded)
		require.NoError(t, err)
		assert.True(t, reg.Enabled)
		assert.Equal(t, 60*time.Second, reg.TranscriptWait)
		require.NotNil(t, reg.MaxRetries)
		assert.Equal(t, 8, *reg.MaxRetries)

		assert.True(t, l.Exists("vc.meeting.recording_ready_v1"))
		assert.Len(t, l.List(), 2)
		// Disabled registrations are known but not advertised
		assert.Equal(t, []string{payload.MeetingEnded}, l.Supported())
	})

	t.Run("error - missing file", func(t *testing.T) {
		l := NewLoader()
		err := l.Load(filepath.Join(t.TempDir(), "missing.yaml"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading events file")
		// Defaults survive a failed load
		assert.True(t, l.Exists(payload.MeetingEnded))
	})

	t.Run("error - malformed yaml", func(t *testing.T) {
		path := writeEventsFile(t, "events: [unclosed")

		l := NewLoader()
		err := l.Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing events YAML")
	})

	t.Run("error - empty event type", func(t *testing.T) {
		path := writeEventsFile(t, `
events:
  - event_type: ""
    enabled: true
`)

		l := NewLoader()
		err := l.Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "event_type cannot be empty")
	})

	t.Run("error - negative max retries", func(t *testing.T) {
		path := writeEventsFile(t, `
events:
  - event_type: vc.meeting.all_meeting_ended_v1
    enabled: true
    max_retries: -1
`)

		l := NewLoader()
		err := l.Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_retries cannot be negative")
	})
}

func TestGet(t *testing.T) {
	l := NewLoader()

	_, err := l.Get("vc.meeting.join_meeting_v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event type not registered")
}

func TestRegistrationValidate(t *testing.T) {
	negative := -1
	five := 5

	tests := []struct {
		name    string
		reg     Registration
		wantErr bool
	}{
		{"valid minimal", Registration{EventType: "x", Enabled: true}, false},
		{"valid with overrides", Registration{EventType: "x", TranscriptWait: time.Minute, MaxRetries: &five}, false},
		{"blank event type", Registration{EventType: "   "}, true},
		{"negative wait", Registration{EventType: "x", TranscriptWait: -time.Second}, true},
		{"negative retries", Registration{EventType: "x", MaxRetries: &negative}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
