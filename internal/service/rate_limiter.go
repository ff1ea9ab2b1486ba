package service

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("rate limited")

// limiterKey normaliza la clave igual para todos los backends; vacía cuenta como "anonymous".
func limiterKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "anonymous"
	}
	return key
}

// RequestLimiter limita la frecuencia de requests por clave (IP, sujeto del token).
type RequestLimiter interface {
	Allow(key string) bool
}

// NoopLimiter deja pasar todo. Se usa cuando RATE_LIMIT_PER_MINUTE=0.
type NoopLimiter struct{}

func (NoopLimiter) Allow(string) bool { return true }

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type memoryRequestLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*memoryEntry
	idleTTL time.Duration
	maxKeys int
	now     func() time.Time
}

// NewMemoryRequestLimiter crea un token bucket por clave con perMinute tokens por minuto.
func NewMemoryRequestLimiter(perMinute int) RequestLimiter {
	if perMinute <= 0 {
		return NoopLimiter{}
	}
	return &memoryRequestLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		entries: make(map[string]*memoryEntry),
		idleTTL: 10 * time.Minute,
		maxKeys: 4096,
		now:     time.Now,
	}
}

func (l *memoryRequestLimiter) Allow(key string) bool {
	key = limiterKey(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= l.maxKeys {
			l.evictLocked(now)
		}
		e = &memoryEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *memoryRequestLimiter) evictLocked(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.entries, k)
		}
	}
}
