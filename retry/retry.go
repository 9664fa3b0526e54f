package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

/* Generic retry executor with exponential backoff
 * The initial attempt is always made; MaxRetries bounds the extra attempts.
 * Delays are a fixed base plus a small positive jitter, never below the base.
 */

// Config controls the backoff schedule for a retried operation
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultConfig returns the retry configuration used when callers
// have no operation-specific requirements
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// withDefaults fills omitted schedule fields from DefaultConfig, so a
// partially specified config keeps a real backoff instead of degrading
// into a zero-delay hot loop. MaxRetries is left alone: zero is a valid
// single-attempt budget.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	return c
}

// Validate checks if the configuration is usable
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", c.MaxRetries)
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive: %s", c.InitialDelay)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max delay %s cannot be below initial delay %s", c.MaxDelay, c.InitialDelay)
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1: %f", c.Multiplier)
	}
	return nil
}

// Result carries the outcome of a retried operation.
// TotalTime includes the time spent sleeping between attempts.
type Result[T any] struct {
	Success   bool
	Data      T
	Err       error
	Attempts  int
	TotalTime time.Duration
}

// Predicate decides whether an error from the given attempt should be retried
type Predicate func(err error, attempt int) bool

// Notify is invoked before each retry delay, never on the terminal failure
type Notify func(attempt int, err error, delay time.Duration)

// ExhaustedError reports an operation that failed after all attempts
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Option customizes a single Do invocation
type Option func(*options)

type options struct {
	shouldRetry Predicate
	onRetry     Notify
}

// WithPredicate replaces the default retry predicate
func WithPredicate(p Predicate) Option {
	return func(o *options) {
		o.shouldRetry = p
	}
}

// WithNotify registers a callback invoked before each retry delay
func WithNotify(n Notify) Option {
	return func(o *options) {
		o.onRetry = n
	}
}

// Delay computes the backoff delay for a 0-indexed attempt.
// Without jitter: min(initial * multiplier^attempt, max).
// With jitter a uniform extra of up to 10% is added, so the
// returned delay is always at least the unjittered base.
func Delay(attempt int, cfg Config) time.Duration {
	base := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if base > float64(cfg.MaxDelay) {
		base = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		base += rand.Float64() * base * 0.1
	}
	return time.Duration(base)
}

// Do executes fn with retries according to cfg; omitted schedule
// fields fall back to DefaultConfig.
// The final error is always surfaced in the result; nothing is retried
// past MaxRetries or past a predicate rejection, and no delay is slept
// once the outcome is terminal.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error), opts ...Option) Result[T] {
	cfg = cfg.withDefaults()
	o := options{shouldRetry: DefaultPredicate}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	var res Result[T]

	for attempt := 0; ; attempt++ {
		data, err := fn(ctx)
		res.Attempts = attempt + 1
		if err == nil {
			res.Success = true
			res.Data = data
			res.TotalTime = time.Since(start)
			return res
		}
		res.Err = err

		if attempt >= cfg.MaxRetries || !o.shouldRetry(err, attempt) {
			res.TotalTime = time.Since(start)
			return res
		}

		delay := Delay(attempt, cfg)
		if o.onRetry != nil {
			o.onRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			res.Err = errors.Join(err, ctx.Err())
			res.TotalTime = time.Since(start)
			return res
		}
	}
}

// DoOrErr wraps Do, converting a failed result into an *ExhaustedError
// carrying the attempt count and the last underlying error
func DoOrErr[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error), op string, opts ...Option) (T, error) {
	res := Do(ctx, cfg, fn, opts...)
	if res.Success {
		return res.Data, nil
	}
	var zero T
	return zero, &ExhaustedError{Op: op, Attempts: res.Attempts, Err: res.Err}
}

// DoLinear retries with a constant delay equal to InitialDelay
func DoLinear[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error), opts ...Option) Result[T] {
	cfg.Multiplier = 1
	return Do(ctx, cfg, fn, opts...)
}

// DoFixed retries with an explicit fixed delay and no jitter
func DoFixed[T any](ctx context.Context, maxRetries int, delay time.Duration, fn func(context.Context) (T, error), opts ...Option) Result[T] {
	cfg := Config{
		MaxRetries:   maxRetries,
		InitialDelay: delay,
		MaxDelay:     delay,
		Multiplier:   1,
		Jitter:       false,
	}
	return Do(ctx, cfg, fn, opts...)
}

// Wrap returns a retry-wrapped version of fn using the given configuration
func Wrap[T any](cfg Config, fn func(context.Context) (T, error), op string, opts ...Option) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return DoOrErr(ctx, cfg, fn, op, opts...)
	}
}
