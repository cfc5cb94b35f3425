package client

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// RetryPolicy controls how many extra attempts a failure kind earns and how
// the delay between them grows.
type RetryPolicy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
}

// defaultRetryPolicies is the closed per-kind policy table. Kinds absent from
// the table are never retried.
var defaultRetryPolicies = map[Kind]RetryPolicy{
	KindNetwork: {MaxRetries: 3, BaseDelay: 1000 * time.Millisecond, BackoffFactor: 2},
	KindTimeout: {MaxRetries: 2, BaseDelay: 2000 * time.Millisecond, BackoffFactor: 1.5},
	KindServer:  {MaxRetries: 2, BaseDelay: 1500 * time.Millisecond, BackoffFactor: 2},
}

type RetryOptions struct {
	// MaxRetries, when positive, caps the per-kind policy maximum.
	MaxRetries int
	// Context is attached to the final error for diagnostics (endpoint,
	// operation name).
	Context map[string]any
	// Policies overrides the default table; used by tests to shrink delays.
	Policies map[Kind]RetryPolicy
}

// RunWithRetry invokes op until it succeeds or its failure kind runs out of
// retry budget. Cancellation short-circuits immediately with no sleep. The
// error returned to the caller is always a typed *Error with a sanitized
// user message; raw messages are only logged.
func RunWithRetry[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts RetryOptions) (T, error) {
	policies := opts.Policies
	if policies == nil {
		policies = defaultRetryPolicies
	}

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		kind := Classify(err, statusOf(err))
		if kind == KindCancelled {
			return zero, asTypedError(err, kind, opts.Context)
		}

		policy, retryable := policies[kind]
		maxRetries := policy.MaxRetries
		if opts.MaxRetries > 0 && opts.MaxRetries < maxRetries {
			maxRetries = opts.MaxRetries
		}

		if !retryable || attempt >= maxRetries {
			slog.Error("operation failed, not retrying",
				"kind", kind,
				"attempts", attempt+1,
				"context", opts.Context,
				"error", err,
			)
			return zero, asTypedError(err, kind, opts.Context)
		}

		delay := backoffDelay(policy, attempt)
		slog.Warn("operation failed, retrying",
			"kind", kind,
			"attempt", attempt+1,
			"delay", delay,
			"context", opts.Context,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, asTypedError(ctx.Err(), Classify(ctx.Err(), 0), opts.Context)
		case <-timer.C:
		}
	}
}

// backoffDelay is baseDelay * factor^attempt, 0-indexed.
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	factor := policy.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	return time.Duration(float64(policy.BaseDelay) * math.Pow(factor, float64(attempt)))
}

func statusOf(err error) int {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Status
	}
	return 0
}

// asTypedError preserves an existing *Error, merging in missing context, and
// wraps anything else.
func asTypedError(err error, kind Kind, context map[string]any) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		if typed.Context == nil {
			typed.Context = context
		}
		return typed
	}
	return NewError(kind, 0, err.Error(), context)
}
