package retry_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/pkg/retry"
)

var errFlaky = errors.New("flaky")

// ── Do ───────────────────────────────────────────────────────────────────────

func TestDo_SucceedsAfterRetries(t *testing.T) {
	p := retry.Fixed(3, time.Millisecond, nil)
	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedWrapsLastError(t *testing.T) {
	p := retry.Fixed(3, time.Millisecond, nil)
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errFlaky
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	p := retry.Fixed(5, time.Millisecond, nil)
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return retry.Permanent(errFlaky)
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.NotErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableStops(t *testing.T) {
	other := errors.New("validación")
	p := retry.Fixed(5, time.Millisecond, func(err error) bool { return errors.Is(err, errFlaky) })
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	p := retry.Fixed(3, time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(int) error { return errFlaky })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_OnRetryCalledBetweenAttempts(t *testing.T) {
	var waits []time.Duration
	p := retry.Fixed(3, time.Millisecond, nil)
	p.OnRetry = func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }
	_ = p.Do(context.Background(), func(int) error { return errFlaky })
	assert.Len(t, waits, 2)
}

type retryAfterErr struct{ d time.Duration }

func (e retryAfterErr) Error() string             { return "429" }
func (e retryAfterErr) RetryAfter() time.Duration { return e.d }

func TestDo_HonoursRetryAfter(t *testing.T) {
	var waits []time.Duration
	p := retry.Fixed(2, time.Millisecond, nil)
	p.OnRetry = func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }
	_ = p.Do(context.Background(), func(attempt int) error {
		if attempt == 1 {
			return retryAfterErr{d: 15 * time.Millisecond}
		}
		return nil
	})
	require.Len(t, waits, 1)
	assert.Equal(t, 15*time.Millisecond, waits[0])
}

// ── Backoff ──────────────────────────────────────────────────────────────────

func TestBackoff_FixedAndExponential(t *testing.T) {
	fixed := retry.Fixed(3, 30*time.Second, nil)
	assert.Equal(t, 30*time.Second, fixed.Backoff(1))
	assert.Equal(t, 30*time.Second, fixed.Backoff(3))

	exp := retry.Exponential(5, time.Second, 5*time.Second, 0, nil)
	assert.Equal(t, time.Second, exp.Backoff(1))
	assert.Equal(t, 2*time.Second, exp.Backoff(2))
	assert.Equal(t, 4*time.Second, exp.Backoff(3))
	assert.Equal(t, 5*time.Second, exp.Backoff(4), "tope MaxDelay")
}

func TestBackoff_JitterWithinBounds(t *testing.T) {
	p := retry.Exponential(3, time.Second, 0, 0.2, nil)
	for i := 0; i < 50; i++ {
		d := p.Backoff(1)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

// ── ParseRetryAfter ──────────────────────────────────────────────────────────

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Zero(t, retry.ParseRetryAfter(h))

	h.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, retry.ParseRetryAfter(h))

	h.Set("Retry-After", "basura")
	assert.Zero(t, retry.ParseRetryAfter(h))

	h.Set("Retry-After", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	assert.Zero(t, retry.ParseRetryAfter(h))

	h.Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	d := retry.ParseRetryAfter(h)
	assert.Greater(t, d, 58*time.Minute)
}
