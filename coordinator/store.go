package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vigia/sentinela/core"
)

// InMemoryStore is the default Store: an in-process map guarded by a
// mutex. Persistent storage backing is an explicit spec Non-goal; a
// production deployment swaps this for a real persistence layer behind
// the same Store interface.
type InMemoryStore struct {
	mu            sync.RWMutex
	investigations map[string]*core.Investigation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{investigations: make(map[string]*core.Investigation)}
}

func (s *InMemoryStore) Save(ctx context.Context, inv *core.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *inv
	s.investigations[inv.ID] = &copy
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (*core.Investigation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.investigations[id]
	if !ok {
		return nil, false
	}
	copy := *inv
	return &copy, true
}

func (s *InMemoryStore) ListRunningOlderThan(ctx context.Context, age time.Duration) []*core.Investigation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-age)
	var stale []*core.Investigation
	for _, inv := range s.investigations {
		if inv.Status == core.StatusRunning && inv.StartedAt.Before(cutoff) {
			copy := *inv
			stale = append(stale, &copy)
		}
	}
	return stale
}

// RedisMirroredStore wraps a Store and additionally mirrors every Save
// to Redis, so a multi-process deployment can read investigation
// snapshots without routing through the owning coordinator's process.
type RedisMirroredStore struct {
	Store
	rdb    *redis.Client
	logger core.Logger
}

func NewRedisMirroredStore(inner Store, addr string, logger core.Logger) *RedisMirroredStore {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &RedisMirroredStore{Store: inner, rdb: redis.NewClient(&redis.Options{Addr: addr}), logger: logger}
}

func (s *RedisMirroredStore) Save(ctx context.Context, inv *core.Investigation) error {
	if err := s.Store.Save(ctx, inv); err != nil {
		return err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return nil
	}
	if err := s.rdb.Set(ctx, "sentinela:investigation:"+inv.ID, data, 24*time.Hour).Err(); err != nil {
		s.logger.Warn("redis mirror write failed", map[string]interface{}{"investigation_id": inv.ID, "error": err.Error()})
	}
	return nil
}

var _ Store = (*InMemoryStore)(nil)
var _ Store = (*RedisMirroredStore)(nil)
