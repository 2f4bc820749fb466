package ledger

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Record is the per-identity sliding-window state. Mutated only while the
// ledger holds its lock.
type Record struct {
	Hits        int
	WindowStart time.Time
	Score       float64
}

// Store abstracts the record map so a deployment with more than one replica
// can back it with a shared cache without touching decision or guard logic.
type Store interface {
	Get(key string) (*Record, bool)
	Set(key string, rec *Record, ttl time.Duration)
	Delete(key string)
	Items() map[string]*Record
}

// MemoryStore is the in-process default, backed by go-cache so idle entries
// also expire by TTL between explicit sweeps.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a store whose janitor prunes expired entries.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *MemoryStore) Get(key string) (*Record, bool) {
	if v, ok := s.cache.Get(key); ok {
		return v.(*Record), true
	}
	return nil, false
}

func (s *MemoryStore) Set(key string, rec *Record, ttl time.Duration) {
	s.cache.Set(key, rec, ttl)
}

func (s *MemoryStore) Delete(key string) {
	s.cache.Delete(key)
}

func (s *MemoryStore) Items() map[string]*Record {
	items := s.cache.Items()
	out := make(map[string]*Record, len(items))
	for k, item := range items {
		out[k] = item.Object.(*Record)
	}
	return out
}
