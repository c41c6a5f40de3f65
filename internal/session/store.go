// Package session keeps serialized workflow state per browser session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store is the abstraction over different backends.
type Store interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type entry struct {
	data    []byte
	expires time.Time
}

// InMemory is a map-backed store for dev/testing.
type InMemory struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]entry), now: time.Now}
}

// Load returns a copy of the stored bytes.
func (s *InMemory) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.items, id)
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// Save stores data for ttl. Zero ttl never expires.
func (s *InMemory) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	e := entry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[id] = e
	s.mu.Unlock()
	return nil
}

// Delete forgets a session.
func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Redis stores sessions as plain keys with an expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a store writing keys under prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "rollcall:session:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Load fetches the session bytes.
func (s *Redis) Load(ctx context.Context, id string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

// Save writes data and refreshes its expiry.
func (s *Redis) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+id, data, ttl).Err()
}

// Delete removes the key.
func (s *Redis) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}
