package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Un contador por clave y por ventana; la clave de la ventana anterior expira sola.
const redisWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisRequestLimiter comparte el presupuesto por minuto entre todos los procesos
// que apuntan al mismo Redis (API HTTP y WebSocket).
type redisRequestLimiter struct {
	client  redisEvaler
	window  time.Duration
	max     int
	timeout time.Duration
	now     func() time.Time
}

// NewRequestLimiter elige el backend: sin límite si perMinute <= 0, Redis si hay
// cliente, token buckets en memoria si no.
func NewRequestLimiter(perMinute int, client *redis.Client) RequestLimiter {
	switch {
	case perMinute <= 0:
		return NoopLimiter{}
	case client != nil:
		return newRedisRequestLimiter(client, time.Minute, perMinute)
	default:
		return NewMemoryRequestLimiter(perMinute)
	}
}

func newRedisRequestLimiter(client redisEvaler, window time.Duration, max int) *redisRequestLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisRequestLimiter{
		client:  client,
		window:  window,
		max:     max,
		timeout: 500 * time.Millisecond,
		now:     time.Now,
	}
}

// Allow falla abierto si Redis no responde: la voz y el chat no dependen de Redis.
func (l *redisRequestLimiter) Allow(key string) bool {
	count, err := l.hit(limiterKey(key))
	if err != nil {
		return true
	}
	return count <= int64(l.max)
}

func (l *redisRequestLimiter) hit(key string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.client.Eval(ctx, redisWindowScript, []string{l.windowKey(key)}, l.window.Milliseconds()).Int64()
}

// windowKey agrega el índice de la ventana fija actual: nestor:rl:<clave>:<ventana>.
func (l *redisRequestLimiter) windowKey(key string) string {
	slot := l.now().UnixMilli() / l.window.Milliseconds()
	return "nestor:rl:" + key + ":" + strconv.FormatInt(slot, 10)
}
