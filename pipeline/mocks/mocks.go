// Package mocks provides testify mocks for the pipeline collaborators.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/minutesapp/minutes-pipeline/lark"
	"github.com/minutesapp/minutes-pipeline/llm"
	"github.com/minutesapp/minutes-pipeline/minutes"
	"github.com/stretchr/testify/mock"
)

// MeetingReader is a mock for pipeline.MeetingReader
type MeetingReader struct {
	mock.Mock
}

func NewMeetingReader(t *testing.T) *MeetingReader {
	m := &MeetingReader{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MeetingReader) GetMeeting(ctx context.Context, meetingID string) (lark.Meeting, error) {
	args := m.Called(ctx, meetingID)
	return args.Get(0).(lark.Meeting), args.Error(1)
}

// TranscriptReader is a mock for pipeline.TranscriptReader
type TranscriptReader struct {
	mock.Mock
}

func NewTranscriptReader(t *testing.T) *TranscriptReader {
	m := &TranscriptReader{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TranscriptReader) GetTranscript(ctx context.Context, meetingID string) (lark.Transcript, error) {
	args := m.Called(ctx, meetingID)
	return args.Get(0).(lark.Transcript), args.Error(1)
}

// Generator is a mock for pipeline.Generator
type Generator struct {
	mock.Mock
}

func NewGenerator(t *testing.T) *Generator {
	m := &Generator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Generator) GenerateMinutes(ctx context.Context, req llm.GenerateRequest) (*minutes.GenerationResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*minutes.GenerationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// EventDeduper is a mock for minutes.EventDeduper
type EventDeduper struct {
	mock.Mock
}

func NewEventDeduper(t *testing.T) *EventDeduper {
	m := &EventDeduper{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *EventDeduper) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *EventDeduper) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	args := m.Called(ctx, eventID, ttl)
	return args.Error(0)
}
