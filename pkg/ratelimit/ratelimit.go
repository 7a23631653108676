// Package ratelimit token buckets para acotar las llamadas salientes al marketplace.
// Capacidad C por minuto, recarga perezosa de C/60 tokens por segundo.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrTooManyTokens la petición excede la capacidad del bucket y nunca podría concederse.
var ErrTooManyTokens = errors.New("tokens solicitados superan la capacidad del bucket")

// Limiter concede tokens esperando como máximo timeout. Devuelve false si no hubo tokens a tiempo.
type Limiter interface {
	Acquire(ctx context.Context, tokens int, timeout time.Duration) (bool, error)
}

// TokenBucket limitador en proceso sobre golang.org/x/time/rate.
// rate.Limiter ya protege su estado con un mutex propio y usa reloj monótono.
type TokenBucket struct {
	lim      *rate.Limiter
	capacity int
}

var _ Limiter = (*TokenBucket)(nil)

// NewTokenBucket crea un bucket lleno con capacidad perMinute.
func NewTokenBucket(perMinute int) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &TokenBucket{
		lim:      rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		capacity: perMinute,
	}
}

// Capacity tamaño del bucket (ráfaga máxima).
func (b *TokenBucket) Capacity() int { return b.capacity }

// Acquire reserva tokens; si la espera necesaria supera timeout la reserva se cancela
// y los tokens vuelven al bucket.
func (b *TokenBucket) Acquire(ctx context.Context, tokens int, timeout time.Duration) (bool, error) {
	if tokens <= 0 {
		return true, nil
	}
	if tokens > b.capacity {
		return false, fmt.Errorf("%w: %d > %d", ErrTooManyTokens, tokens, b.capacity)
	}
	now := time.Now()
	res := b.lim.ReserveN(now, tokens)
	if !res.OK() {
		return false, ErrTooManyTokens
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, nil
	}
	if delay > timeout {
		res.CancelAt(now)
		return false, nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		res.Cancel()
		return false, ctx.Err()
	case <-t.C:
		return true, nil
	}
}
