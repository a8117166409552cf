package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"cropcare/internal/model"
)

// Store keeps the session record for one browser, keyed by session id.
// Get returns (nil, nil) when there is no session.
type Store interface {
	Get(ctx context.Context, id string) (*model.User, error)
	Set(ctx context.Context, id string, user *model.User) error
	Clear(ctx context.Context, id string) error
}

// DefaultMemorySessions caps a MemoryStore; the least recently used session goes first.
const DefaultMemorySessions = 100_000

// MemoryStore is a process-local Store. Sessions do not survive a restart and
// expire after ttl, like the Redis keys do.
type MemoryStore struct {
	users *expirable.LRU[string, model.User]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySessions
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MemoryStore{users: expirable.NewLRU[string, model.User](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.User, error) {
	user, ok := s.users.Get(id)
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, user *model.User) error {
	s.users.Add(id, *user)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.users.Remove(id)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.users.Len()
}
