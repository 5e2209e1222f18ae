package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/aq2208/gorder-pos/internal/usecase"
)

type entry struct {
	value   string
	expires time.Time
}

// Idempotency mirrors the Redis store's lock/remember semantics for the
// memory driver.
type Idempotency struct {
	mu      sync.Mutex
	ttl     time.Duration
	locks   map[string]time.Time
	results map[string]entry
}

func NewIdempotency(ttl time.Duration) *Idempotency {
	return &Idempotency{ttl: ttl, locks: map[string]time.Time{}, results: map[string]entry{}}
}

func (s *Idempotency) key(scope, key string) string { return scope + ":" + key }

func (s *Idempotency) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.ttl)
}

func live(exp time.Time) bool { return exp.IsZero() || time.Now().Before(exp) }

func (s *Idempotency) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(scope, key)
	if exp, ok := s.locks[k]; ok && live(exp) {
		return false, nil
	}
	s.locks[k] = s.expiry()
	return true, nil
}

func (s *Idempotency) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[s.key(scope, key)] = entry{value: value, expires: s.expiry()}
	return nil
}

func (s *Idempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.results[s.key(scope, key)]
	if !ok || !live(e.expires) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Idempotency) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, s.key(scope, key))
	return nil
}

var _ usecase.IdempotencyStore = (*Idempotency)(nil)
