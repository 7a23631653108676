package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stocksync/pkg/ratelimit"
)

// takeScript token bucket atómico. La recarga perezosa usa el reloj del servidor Redis (TIME)
// para que todos los procesos vean el mismo tiempo.
// KEYS[1] = bucket; ARGV[1] = capacidad; ARGV[2] = recarga por segundo; ARGV[3] = tokens pedidos.
// Devuelve {concedido (0|1), segundos de espera estimados}.
var takeScript = goredis.NewScript(`
	local t = redis.call("TIME")
	local now = tonumber(t[1]) + tonumber(t[2]) / 1000000
	local capacity = tonumber(ARGV[1])
	local refill = tonumber(ARGV[2])
	local req = tonumber(ARGV[3])

	local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
	local tokens = tonumber(state[1])
	local ts = tonumber(state[2])
	if tokens == nil or ts == nil then
		tokens = capacity
		ts = now
	end
	if now > ts then
		tokens = math.min(capacity, tokens + (now - ts) * refill)
		ts = now
	end

	local granted = 0
	local wait = 0
	if tokens >= req then
		tokens = tokens - req
		granted = 1
	else
		wait = (req - tokens) / refill
	end
	redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(ts))
	redis.call("EXPIRE", KEYS[1], math.ceil(capacity / refill) * 2)
	return {granted, tostring(wait)}
`)

const (
	minPoll = 10 * time.Millisecond
	maxPoll = 250 * time.Millisecond
)

// Limiter token bucket compartido entre procesos a través de Redis.
type Limiter struct {
	client   goredis.Scripter
	key      string
	capacity int
	refill   float64
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// NewLimiter crea el limitador para key con capacidad perMinute.
func NewLimiter(client goredis.Scripter, key string, perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{
		client:   client,
		key:      key,
		capacity: perMinute,
		refill:   float64(perMinute) / 60.0,
	}
}

// Factory devuelve una ratelimit.Factory que crea limitadores Redis bajo prefix.
func Factory(client goredis.Scripter, prefix string) ratelimit.Factory {
	return func(key string, perMinute int) ratelimit.Limiter {
		return NewLimiter(client, prefix+":"+key, perMinute)
	}
}

// Acquire intenta tomar tokens y, si no hay, sondea hasta timeout.
func (l *Limiter) Acquire(ctx context.Context, tokens int, timeout time.Duration) (bool, error) {
	if tokens <= 0 {
		return true, nil
	}
	if tokens > l.capacity {
		return false, fmt.Errorf("%w: %d > %d", ratelimit.ErrTooManyTokens, tokens, l.capacity)
	}
	deadline := time.Now().Add(timeout)
	for {
		granted, wait, err := l.take(ctx, tokens)
		if err != nil {
			return false, err
		}
		if granted {
			return true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || wait > remaining {
			return false, nil
		}
		pause := min(max(wait, minPoll), maxPoll, remaining)
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Limiter) take(ctx context.Context, tokens int) (bool, time.Duration, error) {
	res, err := takeScript.Run(ctx, l.client, []string{l.key},
		l.capacity, strconv.FormatFloat(l.refill, 'f', -1, 64), tokens).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis token bucket: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis token bucket: respuesta inesperada %v", res)
	}
	granted, _ := res[0].(int64)
	waitStr, _ := res[1].(string)
	secs, err := strconv.ParseFloat(waitStr, 64)
	if err != nil {
		return false, 0, fmt.Errorf("redis token bucket: espera inválida %q", waitStr)
	}
	return granted == 1, time.Duration(secs * float64(time.Second)), nil
}
