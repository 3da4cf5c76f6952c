package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerKey — token bucket на строковый ключ (у нас — connection id).
type PerKey struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	byKey map[string]*rate.Limiter
}

// New возвращает nil при некорректных аргументах; nil-лимитер пропускает всё.
func New(rps float64, burst int) *PerKey {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &PerKey{
		limit: rate.Limit(rps),
		burst: burst,
		byKey: make(map[string]*rate.Limiter),
	}
}

// Allow сообщает, можно ли потратить один токен для ключа в момент now.
func (l *PerKey) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byKey[key] = lim
	}
	return lim.AllowN(now, 1)
}

// Forget удаляет состояние ключа; вызывается при закрытии соединения,
// чтобы карта не росла бесконечно.
func (l *PerKey) Forget(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byKey, key)
}
