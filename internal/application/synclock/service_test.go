package synclock_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/application/synclock"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/infrastructure/sqlite"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T) (*synclock.Service, *fakeClock) {
	t.Helper()
	return newServiceWithLog(t, zerolog.Nop())
}

func newServiceWithLog(t *testing.T, log zerolog.Logger) (*synclock.Service, *fakeClock) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "locks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := synclock.NewService(sqlite.NewSyncLockRepository(db), 10*time.Minute, log).
		WithClock(clock.Now)
	return svc, clock
}

// ──────────────────────────────────────────────────────────────────────────────
// Acquire / Release
// ──────────────────────────────────────────────────────────────────────────────

func TestAcquire_ContentionWithinTTL(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	ok, err := svc.Acquire(ctx, "SKU-1", "worker-a", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(5 * time.Minute)
	ok, err = svc.Acquire(ctx, "SKU-1", "worker-b", 0)
	require.NoError(t, err)
	assert.False(t, ok, "el lock sigue vigente")

	ok, err = svc.Acquire(ctx, "SKU-2", "worker-b", 0)
	require.NoError(t, err)
	assert.True(t, ok, "los locks son por SKU")
}

func TestRelease_AllowsNextOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	ok, err := svc.Acquire(ctx, "SKU-1", "worker-a", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, svc.Release(ctx, "SKU-1", "worker-a", entity.SyncLockSuccess, ""))

	l, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SyncLockSuccess, l.Status)

	ok, err = svc.Acquire(ctx, "SKU-1", "worker-b", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	l, err = svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "worker-b", l.Owner)
	assert.Equal(t, entity.SyncLockInProgress, l.Status)
	assert.Empty(t, l.LastError)
}

func TestAcquire_TakeoverAfterExpiry(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	ok, err := svc.Acquire(ctx, "SKU-1", "worker-a", 0)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(11 * time.Minute)
	ok, err = svc.Acquire(ctx, "SKU-1", "worker-b", 0)
	require.NoError(t, err)
	assert.True(t, ok, "un lock expirado se toma")

	// El dueño anterior ya no puede liberar.
	require.NoError(t, svc.Release(ctx, "SKU-1", "worker-a", entity.SyncLockError, "timeout"))
	l, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "worker-b", l.Owner)
	assert.Equal(t, entity.SyncLockInProgress, l.Status)
}

func TestAcquire_TakeoverIsLogged(t *testing.T) {
	var buf bytes.Buffer
	svc, clock := newServiceWithLog(t, zerolog.New(&buf))
	ctx := context.Background()

	ok, err := svc.Acquire(ctx, "SKU-1", "worker-a", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, buf.String(), "previous_owner", "adquirir un lock nuevo no es una toma")

	clock.Advance(11 * time.Minute)
	ok, err = svc.Acquire(ctx, "SKU-1", "worker-b", 0)
	require.NoError(t, err)
	require.True(t, ok)

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"previous_owner":"worker-a"`)
	assert.Contains(t, out, `"owner":"worker-b"`)

	// Tras una liberación normal no hay toma que registrar.
	buf.Reset()
	require.NoError(t, svc.Release(ctx, "SKU-1", "worker-b", entity.SyncLockSuccess, ""))
	ok, err = svc.Acquire(ctx, "SKU-1", "worker-c", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, buf.String(), "previous_owner")
}

func TestRelease_RecordsError(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Acquire(ctx, "SKU-1", "worker-a", 0)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, "SKU-1", "worker-a", entity.SyncLockError, "503 del marketplace"))

	l, err := svc.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SyncLockError, l.Status)
	assert.Equal(t, "503 del marketplace", l.LastError)
}

func TestAcquire_ConcurrentOnlyOneWins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := svc.Acquire(ctx, "SKU-X", synclock.NewOwner(), 0)
			if err == nil && ok {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins)
}

func TestValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Acquire(ctx, " ", "w", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.Release(ctx, "SKU-1", "w", entity.SyncLockInProgress, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Get(ctx, "NUNCA")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewOwner_Unique(t *testing.T) {
	assert.NotEqual(t, synclock.NewOwner(), synclock.NewOwner())
}
