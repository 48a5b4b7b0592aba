// Package session keeps the signed-in user and bearer token for each browser
// session in a durable key-value store. The browser only holds an opaque
// session id in a cookie; every key in the store is derived from the hash of
// that id.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoValue is returned by Store.Get when the key is absent or expired.
var ErrNoValue = errors.New("session: no value")

// Store is a string key-value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type memEntry struct {
	value string
	exp   time.Time
}

// MemoryStore is a process-local Store. Sessions do not survive a restart
// and are not shared between replicas; use it for development and tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return "", ErrNoValue
	}
	if !e.exp.IsZero() && !s.now().Before(e.exp) {
		delete(s.data, key)
		return "", ErrNoValue
	}
	return e.value, nil
}

// Set stores value under key. A ttl <= 0 keeps the value until deleted.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.exp = s.now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, e := range s.data {
		if e.exp.IsZero() || now.Before(e.exp) {
			n++
		}
	}
	return n
}
