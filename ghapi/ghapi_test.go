package ghapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/stretchr/testify/require"
)

func newTestClient() (*Client, *[]time.Duration) {
	var slept []time.Duration
	c := &Client{
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Owner: "acme",
		Repo:  "widgets",
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	return c, &slept
}

func rateLimited(after time.Duration) error {
	return &github.AbuseRateLimitError{
		Response:   &http.Response{StatusCode: http.StatusForbidden},
		RetryAfter: &after,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("SucceedsWithinBudget", func(t *testing.T) {
		t.Parallel()
		c, slept := newTestClient()

		calls := 0
		waits := []time.Duration{3 * time.Second, 7 * time.Second}
		v, err := withRetry(context.Background(), c, func(ctx context.Context) (string, error) {
			calls++
			if calls <= 2 {
				return "", rateLimited(waits[calls-1])
			}
			return "ok", nil
		})
		require.NoError(t, err)
		require.Equal(t, "ok", v)
		require.Equal(t, 3, calls)
		// Slept exactly the server-specified durations, in order.
		require.Equal(t, waits, *slept)
	})

	t.Run("BudgetExhausted", func(t *testing.T) {
		t.Parallel()
		c, slept := newTestClient()
		c.RetryBudget = 1

		calls := 0
		limitErr := rateLimited(time.Second)
		_, err := withRetry(context.Background(), c, func(ctx context.Context) (string, error) {
			calls++
			return "", limitErr
		})
		// Budget 1 means one wait-and-retry, then the original error.
		require.ErrorIs(t, err, limitErr)
		require.Equal(t, 2, calls)
		require.Equal(t, []time.Duration{time.Second}, *slept)
	})

	t.Run("OtherErrorsPropagateImmediately", func(t *testing.T) {
		t.Parallel()
		c, slept := newTestClient()

		boom := errors.New("boom")
		calls := 0
		_, err := withRetry(context.Background(), c, func(ctx context.Context) (string, error) {
			calls++
			return "", boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, calls)
		require.Empty(t, *slept)
	})
}

func TestRateLimitWait(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(30 * time.Second)
	wait, ok := rateLimitWait(&github.RateLimitError{
		Rate: github.Rate{Reset: github.Timestamp{Time: reset}},
	})
	require.True(t, ok)
	require.InDelta(t, 30*time.Second, wait, float64(time.Second))

	_, ok = rateLimitWait(errors.New("boom"))
	require.False(t, ok)
}
