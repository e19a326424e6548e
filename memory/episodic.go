package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vigia/sentinela/core"
)

// DefaultRetention is T_retain from spec §4.9: episodic records expire
// after 90 days unless the caller overrides it.
const DefaultRetention = 90 * 24 * time.Hour

// EpisodicRecord is one durable write keyed by investigation id, used
// for reflection and post-hoc audit.
type EpisodicRecord struct {
	InvestigationID string
	Key             string
	Payload         map[string]interface{}
	CreatedAt       time.Time
}

// EpisodicStore is the durable, per-investigation memory tier. It is
// backed by Redis when configured, or an in-process map in memory-only
// mode — mirroring the teacher's core.MemoryStore layering over
// go-redis.
type EpisodicStore struct {
	rdb       *redis.Client
	retention time.Duration
	logger    core.Logger

	fallback *inMemoryEpisodic
}

// NewEpisodicStore builds the store. When addr is empty the store runs
// memory-only, per config.MemoryOnly().
func NewEpisodicStore(addr string, retention time.Duration, logger core.Logger) *EpisodicStore {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if retention == 0 {
		retention = DefaultRetention
	}
	s := &EpisodicStore{retention: retention, logger: logger}
	if addr == "" {
		s.fallback = newInMemoryEpisodic()
		return s
	}
	s.rdb = redis.NewClient(&redis.Options{Addr: addr})
	return s
}

func (s *EpisodicStore) key(investigationID, key string) string {
	return "sentinela:episodic:" + investigationID + ":" + key
}

// Store writes an append-only episodic record. Deletes require an
// owning identity and are explicit (see Delete), never implicit on
// overwrite.
func (s *EpisodicStore) Store(ctx context.Context, rec EpisodicRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if s.fallback != nil {
		s.fallback.store(rec)
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return core.NewError("Store", core.KindSystem, rec.InvestigationID, "marshal episodic record", err)
	}
	if err := s.rdb.Set(ctx, s.key(rec.InvestigationID, rec.Key), data, s.retention).Err(); err != nil {
		return core.NewError("Store", core.KindSystem, rec.InvestigationID, "redis set failed", err)
	}
	return nil
}

// Load returns every episodic record for an investigation.
func (s *EpisodicStore) Load(ctx context.Context, investigationID string) ([]EpisodicRecord, error) {
	if s.fallback != nil {
		return s.fallback.load(investigationID), nil
	}

	keys, err := s.rdb.Keys(ctx, s.key(investigationID, "*")).Result()
	if err != nil {
		return nil, core.NewError("Load", core.KindSystem, investigationID, "redis keys failed", err)
	}
	records := make([]EpisodicRecord, 0, len(keys))
	for _, k := range keys {
		data, err := s.rdb.Get(ctx, k).Bytes()
		if err != nil {
			continue
		}
		var rec EpisodicRecord
		if json.Unmarshal(data, &rec) == nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Delete removes a record by owning identity, satisfying the explicit
// delete requirement: deletes are never implicit on write.
func (s *EpisodicStore) Delete(ctx context.Context, investigationID, key, ownerID string) error {
	if ownerID == "" {
		return core.NewError("Delete", core.KindInput, investigationID, "delete requires an owning identity", core.ErrInvalidInput)
	}
	if s.fallback != nil {
		s.fallback.delete(investigationID, key)
		return nil
	}
	return s.rdb.Del(ctx, s.key(investigationID, key)).Err()
}

type inMemoryEpisodic struct {
	mu      sync.Mutex
	records map[string][]EpisodicRecord
}

func newInMemoryEpisodic() *inMemoryEpisodic {
	return &inMemoryEpisodic{records: make(map[string][]EpisodicRecord)}
}

func (m *inMemoryEpisodic) store(rec EpisodicRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.InvestigationID] = append(m.records[rec.InvestigationID], rec)
}

func (m *inMemoryEpisodic) load(investigationID string) []EpisodicRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EpisodicRecord, len(m.records[investigationID]))
	copy(out, m.records[investigationID])
	return out
}

func (m *inMemoryEpisodic) delete(investigationID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[investigationID][:0]
	for _, r := range m.records[investigationID] {
		if r.Key != key {
			kept = append(kept, r)
		}
	}
	m.records[investigationID] = kept
}
