package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/minutesapp/minutes-pipeline/lark"
	"github.com/minutesapp/minutes-pipeline/llm"
	"github.com/minutesapp/minutes-pipeline/metrics"
	"github.com/minutesapp/minutes-pipeline/minutes"
	"github.com/minutesapp/minutes-pipeline/retry"
)

/* Service drives the asynchronous minutes pipeline for one accepted
 * meeting-ended event: wait for the upstream transcript pipeline,
 * fetch the transcript with retries, generate minutes once, then fan
 * the outcome out to the registered side-effect callbacks.
 */

// MeetingContext identifies the meeting an accepted event refers to.
// Passed by value through every stage and callback, never mutated.
type MeetingContext struct {
	MeetingID  string
	HostUserID string
	EndTime    time.Time
	Topic      string
}

// ProcessingResult is the terminal record of one processed event
type ProcessingResult struct {
	RunID    string
	EventID  string
	State    State
	Duration time.Duration
	Err      string
}

// MeetingReader looks meetings up on the platform
type MeetingReader interface {
	GetMeeting(ctx context.Context, meetingID string) (lark.Meeting, error)
}

// TranscriptReader fetches meeting transcripts.
// Implementations must distinguish lark.ErrTranscriptNotReady from the
// permanent lark.ErrNoRecording and lark.ErrMeetingNotFound.
type TranscriptReader interface {
	GetTranscript(ctx context.Context, meetingID string) (lark.Transcript, error)
}

// Generator turns a transcript into structured minutes
type Generator interface {
	GenerateMinutes(ctx context.Context, req llm.GenerateRequest) (*minutes.GenerationResult, error)
}

// MinutesCallback is a side effect invoked after successful generation
type MinutesCallback func(ctx context.Context, mc MeetingContext, res *minutes.GenerationResult) error

// FailureCallback is a side effect invoked when the pipeline fails
type FailureCallback func(ctx context.Context, mc MeetingContext, err error) error

// Config tunes the pipeline stages
type Config struct {
	/* TranscriptWait is a fixed pre-delay after meeting end so the
	 * upstream transcript pipeline can finish before the first fetch.
	 * Separate from the retry backoff: an immediate first attempt is
	 * expected to fail.
	 */
	TranscriptWait time.Duration
	FetchRetry     retry.Config
	ProcessedTTL   time.Duration
}

// DefaultConfig returns the production pipeline configuration
func DefaultConfig() Config {
	return Config{
		TranscriptWait: 30 * time.Second,
		FetchRetry: retry.Config{
			MaxRetries:   5,
			InitialDelay: 5 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		ProcessedTTL: 24 * time.Hour,
	}
}

// Service is the pipeline orchestrator.
// Collaborators are injected via the constructor; callbacks are
// registered at wiring time, before any event is processed.
type Service struct {
	meetings    MeetingReader
	transcripts TranscriptReader
	generator   Generator
	deduper     minutes.EventDeduper
	recorder    metrics.Recorder
	logger      *slog.Logger
	cfg         Config

	onGenerated []MinutesCallback
	onFailed    []FailureCallback
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithDeduper enables processed-event tracking so re-delivered events
// become accepted no-ops instead of double-billing generation
func WithDeduper(d minutes.EventDeduper) ServiceOption {
	return func(s *Service) {
		s.deduper = d
	}
}

// WithRecorder wires pipeline metrics
func WithRecorder(r metrics.Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLogger replaces the default logger
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// ProcessOption overrides the pipeline configuration for a single run,
// used for the per-event-type overrides of the event registry
type ProcessOption func(*Config)

// WithTranscriptWait overrides the pre-fetch wait for one run
func WithTranscriptWait(d time.Duration) ProcessOption {
	return func(c *Config) {
		c.TranscriptWait = d
	}
}

// WithMaxRetries overrides the transcript fetch retry budget for one run
func WithMaxRetries(n int) ProcessOption {
	return func(c *Config) {
		c.FetchRetry.MaxRetries = n
	}
}

// NewService creates a pipeline service with dependency injection
func NewService(meetings MeetingReader, transcripts TranscriptReader, generator Generator, cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		meetings:    meetings,
		transcripts: transcripts,
		generator:   generator,
		logger:      slog.Default(),
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnMinutesGenerated registers a success callback. Callbacks run in
// registration order and are mutually isolated.
func (s *Service) OnMinutesGenerated(cb MinutesCallback) {
	s.onGenerated = append(s.onGenerated, cb)
}

// OnProcessingFailed registers a failure callback
func (s *Service) OnProcessingFailed(cb FailureCallback) {
	s.onFailed = append(s.onFailed, cb)
}

// Process runs the pipeline for one accepted event until a terminal
// state. It never panics out and never returns before the matching
// callback set has been invoked; concurrent calls for different events
// are independent. Options override the service configuration for this
// run only.
func (s *Service) Process(ctx context.Context, eventID string, mc MeetingContext, opts ...ProcessOption) ProcessingResult {
	start := time.Now()
	runID := uuid.New().String()
	log := s.logger.With("run_id", runID, "event_id", eventID, "meeting_id", mc.MeetingID)

	cfg := s.cfg
	for _, opt := range opts {
		opt(&cfg)
	}

	if s.recorder != nil {
		s.recorder.EventReceived()
		s.recorder.PipelineStarted()
		defer s.recorder.PipelineFinished()
	}

	if s.deduper != nil {
		done, err := s.deduper.IsProcessed(ctx, eventID)
		if err != nil {
			log.Warn("dedup check failed, processing anyway", "error", err)
		} else if done {
			log.Info("event already processed, skipping")
			return ProcessingResult{RunID: runID, EventID: eventID, State: Completed, Duration: time.Since(start)}
		}
	}

	gen, err := s.run(ctx, log, mc, cfg)
	if err != nil {
		log.Error("pipeline failed", "error", err, "duration", time.Since(start))
		s.fanOutFailure(ctx, mc, err)
		if s.recorder != nil {
			s.recorder.EventFailed(time.Since(start))
		}
		return ProcessingResult{
			RunID:    runID,
			EventID:  eventID,
			State:    Failed,
			Duration: time.Since(start),
			Err:      err.Error(),
		}
	}

	s.fanOutSuccess(ctx, mc, gen)

	if s.deduper != nil {
		if err := s.deduper.MarkProcessed(ctx, eventID, cfg.ProcessedTTL); err != nil {
			log.Warn("marking event processed failed", "error", err)
		}
	}

	log.Info("pipeline completed",
		"duration", time.Since(start),
		"input_tokens", gen.Usage.InputTokens,
		"output_tokens", gen.Usage.OutputTokens,
	)
	if s.recorder != nil {
		s.recorder.EventCompleted(time.Since(start))
	}
	return ProcessingResult{RunID: runID, EventID: eventID, State: Completed, Duration: time.Since(start)}
}

// run executes the sequential stages and returns the generation result
func (s *Service) run(ctx context.Context, log *slog.Logger, mc MeetingContext, cfg Config) (*minutes.GenerationResult, error) {
	log.Info("waiting for transcript availability",
		"state", WaitingForTranscript.String(), "delay", cfg.TranscriptWait)
	if err := sleepCtx(ctx, cfg.TranscriptWait); err != nil {
		return nil, fmt.Errorf("waiting for transcript: %w", err)
	}

	meeting, err := s.meetings.GetMeeting(ctx, mc.MeetingID)
	if err != nil {
		return nil, fmt.Errorf("looking up meeting: %w", err)
	}

	log.Info("fetching transcript", "state", FetchingTranscript.String())
	transcript, err := retry.DoOrErr(ctx, cfg.FetchRetry,
		func(ctx context.Context) (lark.Transcript, error) {
			return s.transcripts.GetTranscript(ctx, mc.MeetingID)
		},
		"fetch transcript",
		retry.WithPredicate(transcriptRetryPredicate),
		retry.WithNotify(func(attempt int, err error, delay time.Duration) {
			log.Warn("transcript fetch failed, will retry",
				"attempt", attempt, "delay", delay, "error", err)
			if s.recorder != nil {
				s.recorder.RetryAttempted()
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}

	log.Info("generating minutes",
		"state", GeneratingMinutes.String(), "sentences", len(transcript.Sentences))
	gen, err := s.generator.GenerateMinutes(ctx, llm.GenerateRequest{
		Transcript: transcript,
		Meeting:    meeting,
	})
	if err != nil {
		return nil, fmt.Errorf("generating minutes: %w", err)
	}

	return gen, nil
}

// transcriptRetryPredicate retries the readiness race and generic
// transient failures, failing fast on conditions where a transcript
// will never exist
func transcriptRetryPredicate(err error, attempt int) bool {
	if errors.Is(err, lark.ErrNoRecording) || errors.Is(err, lark.ErrMeetingNotFound) {
		return false
	}
	if errors.Is(err, lark.ErrTranscriptNotReady) {
		return true
	}
	return retry.DefaultPredicate(err, attempt)
}

func (s *Service) fanOutSuccess(ctx context.Context, mc MeetingContext, gen *minutes.GenerationResult) {
	for i, cb := range s.onGenerated {
		name := fmt.Sprintf("on_minutes_generated[%d]", i)
		s.invoke(ctx, name, func(ctx context.Context) error {
			return cb(ctx, mc, gen)
		})
	}
}

func (s *Service) fanOutFailure(ctx context.Context, mc MeetingContext, cause error) {
	for i, cb := range s.onFailed {
		name := fmt.Sprintf("on_processing_failed[%d]", i)
		s.invoke(ctx, name, func(ctx context.Context) error {
			return cb(ctx, mc, cause)
		})
	}
}

// invoke runs one callback with isolation: an error or panic inside a
// callback is logged here and never reaches the other callbacks or the
// orchestrator's caller
func (s *Service) invoke(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("callback panicked", "callback", name, "panic", r)
		}
	}()
	if err := fn(ctx); err != nil {
		s.logger.Error("callback failed", "callback", name, "error", err)
	}
}

// sleepCtx sleeps for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
