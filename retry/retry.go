/*
Package retry provides a bounded retry executor for remote calls that can be
throttled or otherwise report that they are not ready yet.

An operation reports its outcome explicitly: Done with a nil error means it
succeeded, Done with a non-nil error means it failed fatally and must not be
retried, and NotReady means it should be attempted again after a randomized
sleep. The sleep range widens with each attempt so that many concurrent
callers do not retry in lockstep.
*/
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxAttempts is the default number of attempts made before giving
	// up.
	DefaultMaxAttempts = 15
	// DefaultMinSleep is the default lower bound on the sleep between
	// attempts.
	DefaultMinSleep = time.Second
	// DefaultSleepRange is the default amount by which the upper bound of the
	// sleep between attempts grows after each attempt.
	DefaultSleepRange = 2 * time.Second
)

// Outcome is the result of a single attempt of an operation.
type Outcome int

const (
	// Done indicates that the operation finished. If it returned an error,
	// the error is fatal.
	Done Outcome = iota
	// NotReady indicates that the operation could not complete yet (e.g. due
	// to throttling) and should be attempted again.
	NotReady
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case NotReady:
		return "not ready"
	default:
		return "unknown"
	}
}

// Options represent the retry policy for an Executor.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// MinSleep is the minimum time to sleep between attempts.
	MinSleep time.Duration
	// SleepRange is the width of the randomized sleep window after the first
	// attempt. After the attempt at index i, the executor sleeps for a random
	// duration in [MinSleep, MinSleep+(i+1)*SleepRange).
	SleepRange time.Duration
}

// NewOptions returns new unconfigured retry options.
func NewOptions() *Options {
	return &Options{}
}

// SetMaxAttempts sets the total number of attempts.
func (o *Options) SetMaxAttempts(n int) *Options {
	o.MaxAttempts = n
	return o
}

// SetMinSleep sets the minimum sleep between attempts.
func (o *Options) SetMinSleep(d time.Duration) *Options {
	o.MinSleep = d
	return o
}

// SetSleepRange sets the amount by which the sleep window widens.
func (o *Options) SetSleepRange(d time.Duration) *Options {
	o.SleepRange = d
	return o
}

// Validate checks that the options are sensible and sets defaults for
// unspecified options.
func (o *Options) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.MaxAttempts < 0, "max attempts cannot be negative")
	catcher.NewWhen(o.MinSleep < 0, "min sleep cannot be negative")
	catcher.NewWhen(o.SleepRange < 0, "sleep range cannot be negative")
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MinSleep == 0 {
		o.MinSleep = DefaultMinSleep
	}
	if o.SleepRange == 0 {
		o.SleepRange = DefaultSleepRange
	}

	return nil
}

// Executor runs operations with bounded retries. An Executor is safe for
// concurrent use.
type Executor struct {
	opts Options
	// randInt64N returns a random number in [0, n).
	randInt64N func(n int64) int64
}

// NewExecutor creates a new executor from the given retry policy. The policy
// cannot be changed after construction.
func NewExecutor(opts Options) (*Executor, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	return &Executor{
		opts:       opts,
		randInt64N: rand.Int64N,
	}, nil
}

// Options returns the retry policy of the executor.
func (e *Executor) Options() Options {
	return e.opts
}

// Run calls the operation until it is done, it fails fatally, the attempts
// are exhausted or the context is done. The description identifies the
// operation in logs and errors.
func (e *Executor) Run(ctx context.Context, description string, op func(context.Context) (Outcome, error)) error {
	var lastCause error
	for i := 0; i < e.opts.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "operation '%s' aborted before attempt %d", description, i+1)
		}

		if i > 0 {
			grip.Debug(message.Fields{
				"message":   "retrying operation",
				"operation": description,
				"attempt":   i + 1,
			})
		}

		outcome, err := op(ctx)
		switch outcome {
		case Done:
			return err
		case NotReady:
			lastCause = err
		default:
			return errors.Errorf("operation '%s' returned unrecognized outcome %d", description, outcome)
		}

		if i == e.opts.MaxAttempts-1 {
			break
		}

		if err := e.sleep(ctx, i); err != nil {
			return errors.Wrapf(err, "operation '%s' interrupted while waiting to retry", description)
		}
	}

	return NewExhaustedError(description, e.opts.MaxAttempts, lastCause)
}

// Retry calls the operation with the given input using the executor and
// returns the operation's result once it is done.
func Retry[I, O any](ctx context.Context, e *Executor, description string, op func(context.Context, I) (O, Outcome, error), in I) (O, error) {
	var out O
	err := e.Run(ctx, description, func(ctx context.Context) (Outcome, error) {
		res, outcome, err := op(ctx, in)
		if outcome == Done && err == nil {
			out = res
		}
		return outcome, err
	})
	if err != nil {
		var zero O
		return zero, err
	}
	return out, nil
}

// sleepDuration returns a random sleep duration after the attempt at the given
// 0-based index.
func (e *Executor) sleepDuration(attempt int) time.Duration {
	window := int64(attempt+1) * int64(e.opts.SleepRange)
	if window <= 0 {
		return e.opts.MinSleep
	}
	return e.opts.MinSleep + time.Duration(e.randInt64N(window))
}

func (e *Executor) sleep(ctx context.Context, attempt int) error {
	d := e.sleepDuration(attempt)
	grip.Debug(message.Fields{
		"message":  "sleeping before next attempt",
		"duration": d.String(),
		"attempt":  attempt + 1,
	})

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
