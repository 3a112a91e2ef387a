// Package retry implements the Retry Policy (C4): uniform exponential
// backoff with jitter around every external adapter call, built on
// failsafe-go exactly the way the teacher's
// internal/pkg/voice/download_manager.go builds its model-download retry
// policy.
package retry

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rs/zerolog"
)

// Classify reports whether err should be retried. Fatal errors (schema
// failures, malformed input, quota exhaustion) return false and the retry
// policy gives up immediately.
type Classify func(err error) bool

// Policy wraps a failsafe-go retrypolicy.RetryPolicy with the §4.4
// contract: delay for attempt k is baseDelay*2^(k-1) with ±20% jitter, up
// to maxAttempts, classification supplied by the caller.
type Policy struct {
	rp     retrypolicy.RetryPolicy[any]
	logger *zerolog.Logger
}

// Config is the §6 retry knob set: max_attempts, base_delay_seconds,
// per_call_timeout_seconds.
type Config struct {
	MaxAttempts          int
	BaseDelaySeconds     float64
	PerCallTimeoutSeconds float64
}

// New builds a Policy from cfg, retrying only errors classify marks
// Retriable. logger may be nil.
func New(cfg Config, classify Classify, logger *zerolog.Logger) *Policy {
	base := time.Duration(cfg.BaseDelaySeconds * float64(time.Second))
	cap := base
	for i := 1; i < cfg.MaxAttempts && cap < 5*time.Minute; i++ {
		cap *= 2
	}

	builder := retrypolicy.Builder[any]().
		HandleIf(func(_ any, err error) bool {
			return err != nil && classify(err)
		}).
		WithMaxAttempts(cfg.MaxAttempts).
		WithBackoffFactor(base, cap, 2.0).
		WithJitterFactor(0.2).
		ReturnLastFailure()

	if logger != nil {
		builder = builder.OnRetry(func(evt failsafe.ExecutionEvent[any]) {
			logger.Warn().
				Int("attempt", evt.Attempts()).
				Err(evt.LastError()).
				Msg("retrying after adapter error")
		})
	}

	return &Policy{rp: builder.Build(), logger: logger}
}

// Do executes fn under the policy, passing ctx to every attempt for
// cancellation. Do sets no per-call deadline of its own: PerCallTimeoutSeconds
// is not read here, so an attempt is bounded only by a deadline that ctx or
// the adapter itself already carries. Exhausted retries surface fn's last
// error as fatal, per §4.4.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	executor := failsafe.NewExecutor[any](p.rp).WithContext(ctx)
	_, err := executor.Get(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// DefaultClassify implements §4.4's classification defaults: transient I/O,
// timeouts, and rate-limit signals are Retriable; schema validation
// failures, malformed inputs, and quota-exhausted signals are Fatal.
// Adapters pass their own refinement where the defaults are too coarse.
func DefaultClassify(err error) bool {
	return classifyDefault(err)
}
