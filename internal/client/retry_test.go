package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicies mirrors the default table with microsecond delays.
var fastPolicies = map[Kind]RetryPolicy{
	KindNetwork: {MaxRetries: 3, BaseDelay: time.Microsecond, BackoffFactor: 2},
	KindTimeout: {MaxRetries: 2, BaseDelay: time.Microsecond, BackoffFactor: 1.5},
	KindServer:  {MaxRetries: 2, BaseDelay: time.Microsecond, BackoffFactor: 2},
}

func TestRunWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := RunWithRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	}, RetryOptions{Policies: fastPolicies})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRunWithRetryAttemptBudgets(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCalls int
		wantKind  Kind
	}{
		{"network retries three times", NewError(KindNetwork, 0, "caído", nil), 4, KindNetwork},
		{"timeout retries twice", context.DeadlineExceeded, 3, KindTimeout},
		{"server retries twice", NewError(KindServer, 500, "error interno", nil), 3, KindServer},
		{"validation never retries", NewError(KindValidation, 422, "inválido", nil), 1, KindValidation},
		{"auth never retries", NewError(KindAuth, 401, "sesión expirada", nil), 1, KindAuth},
		{"not-found never retries", NewError(KindNotFound, 404, "no existe", nil), 1, KindNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			_, err := RunWithRetry(context.Background(), func(ctx context.Context) (int, error) {
				calls++
				return 0, tc.err
			}, RetryOptions{Policies: fastPolicies})

			require.Error(t, err)
			assert.Equal(t, tc.wantCalls, calls)

			var typed *Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tc.wantKind, typed.Kind)
		})
	}
}

func TestRunWithRetryRecoversMidway(t *testing.T) {
	calls := 0
	result, err := RunWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewError(KindNetwork, 0, "caído", nil)
		}
		return 42, nil
	}, RetryOptions{Policies: fastPolicies})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRunWithRetryCancelledShortCircuits(t *testing.T) {
	calls := 0
	_, err := RunWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, context.Canceled
	}, RetryOptions{Policies: fastPolicies})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindCancelled, typed.Kind)
}

func TestRunWithRetryMaxRetriesCap(t *testing.T) {
	calls := 0
	_, err := RunWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, NewError(KindNetwork, 0, "caído", nil)
	}, RetryOptions{MaxRetries: 1, Policies: fastPolicies})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunWithRetryStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	slow := map[Kind]RetryPolicy{
		KindNetwork: {MaxRetries: 3, BaseDelay: time.Minute, BackoffFactor: 2},
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := RunWithRetry(ctx, func(ctx context.Context) (int, error) {
			calls++
			return 0, NewError(KindNetwork, 0, "caído", nil)
		}, RetryOptions{Policies: slow})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		var typed *Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, KindCancelled, typed.Kind)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not stop on cancellation")
	}
}

func TestBackoffDelayGrows(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 100 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, backoffDelay(policy, 0))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(policy, 1))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(policy, 2))
}

func TestRunWithRetryWrapsPlainErrors(t *testing.T) {
	_, err := RunWithRetry(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errors.New("dial tcp: connection refused")
	}, RetryOptions{Policies: fastPolicies, Context: map[string]any{"endpoint": "/api/usuarios"}})

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindNetwork, typed.Kind)
	assert.Equal(t, userMessages[KindNetwork], typed.UserMessage)
	assert.Equal(t, "/api/usuarios", typed.Context["endpoint"])
}
