// Package retry política de reintentos explícita: intentos, espera base, multiplicador,
// tope de espera, jitter y clasificación de errores reintentables.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrExhausted envuelve el último error cuando se agotan los intentos.
var ErrExhausted = errors.New("reintentos agotados")

// Policy describe cómo reintentar una operación. Multiplier 1 (o 0) = espera fija.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      float64 // fracción ±, p.ej. 0.2
	Retryable   func(error) bool
	// OnRetry se invoca antes de cada espera (logging).
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Fixed política de espera fija.
func Fixed(attempts int, delay time.Duration, retryable func(error) bool) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay, Multiplier: 1, Retryable: retryable}
}

// Exponential política de backoff exponencial con jitter.
func Exponential(attempts int, base, max time.Duration, jitter float64, retryable func(error) bool) Policy {
	return Policy{MaxAttempts: attempts, Delay: base, Multiplier: 2, MaxDelay: max, Jitter: jitter, Retryable: retryable}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marca err como no reintentable independientemente de Retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryAfterer lo implementan errores que conocen la espera exigida por el servidor.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// Do ejecuta fn hasta que devuelva nil, un error no reintentable o se agoten los intentos.
// attempt empieza en 1. Las esperas respetan la cancelación de ctx.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		wait := p.Backoff(attempt)
		var ra RetryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > wait {
			wait = ra.RetryAfter()
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w tras %d intentos: %w", ErrExhausted, attempts, lastErr)
}

// Backoff espera antes del intento attempt+1.
func (p Policy) Backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.Delay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*p.Jitter
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
