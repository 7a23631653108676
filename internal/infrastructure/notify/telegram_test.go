package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/infrastructure/notify"
	"github.com/jhoicas/stocksync/pkg/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Fixed(attempts, time.Millisecond, domain.IsRetryable)
}

func TestTelegram_SendsMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTKN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := notify.NewTelegramNotifier(srv.URL, "TKN", "42", zerolog.Nop()).WithPolicy(fastPolicy(3))
	require.NoError(t, n.SendMessage(context.Background(), "hola"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hola", got["text"])
}

func TestTelegram_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"parameters":{"retry_after":0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := notify.NewTelegramNotifier(srv.URL, "TKN", "42", zerolog.Nop()).WithPolicy(fastPolicy(5))
	require.NoError(t, n.SendMessage(context.Background(), "x"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTelegram_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := notify.NewTelegramNotifier(srv.URL, "TKN", "42", zerolog.Nop()).WithPolicy(fastPolicy(2))
	err := n.SendMessage(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, retry.ErrExhausted))
	assert.True(t, notify.IsThrottled(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegram_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := notify.NewTelegramNotifier(srv.URL, "TKN", "42", zerolog.Nop()).WithPolicy(fastPolicy(5))
	err := n.SendMessage(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTelegram_RequiresConfig(t *testing.T) {
	n := notify.NewTelegramNotifier("", "", "", zerolog.Nop())
	assert.ErrorIs(t, n.SendMessage(context.Background(), "x"), domain.ErrInvalidInput)
}

func TestNew_FallsBackToLog(t *testing.T) {
	n := notify.New("", "", "", zerolog.Nop())
	_, ok := n.(*notify.LogNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.SendMessage(context.Background(), "x"))
}
