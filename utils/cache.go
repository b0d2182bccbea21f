package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore is a small key-value snapshot cache backed by Redis when
// available and by process memory otherwise. Entries expire after their TTL;
// eviction is idempotent, so racing evictions are safe and cost at most a
// recomputation.
type CacheStore struct {
	rc  *redis.Client
	mu  sync.Mutex
	mem map[string]memEntry
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewCacheStore creates a store over the given Redis client. A nil client
// selects the in-memory fallback.
func NewCacheStore(rc *redis.Client) *CacheStore {
	return &CacheStore{rc: rc, mem: map[string]memEntry{}}
}

// Get returns the cached bytes for a key if present and unexpired.
func (s *CacheStore) Get(key string) ([]byte, bool) {
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, err := s.rc.Get(ctx, key).Bytes()
		if err != nil {
			if Sugar != nil {
				Sugar.Debugf("cache get miss key=%s err=%v", key, err)
			}
			return nil, false
		}
		return b, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.mem[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.mem, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores bytes under a key with the given TTL.
func (s *CacheStore) Set(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.rc.Set(ctx, key, b, ttl).Err(); err != nil && Sugar != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
		return
	}
	s.mu.Lock()
	s.mem[key] = memEntry{value: b, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Evict removes a key. Evicting an absent key is a no-op.
func (s *CacheStore) Evict(key string) {
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.rc.Del(ctx, key).Err(); err != nil && Sugar != nil {
			Sugar.Warnf("cache evict failed key=%s err=%v", key, err)
		}
		return
	}
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
}

// GetOrCompute returns the cached value for a key, computing and storing it
// on a miss. Compute errors are returned without touching the cache, so the
// cache is never authoritative for failures.
func (s *CacheStore) GetOrCompute(key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, error) {
	if b, ok := s.Get(key); ok {
		return b, nil
	}
	b, err := compute()
	if err != nil {
		return nil, err
	}
	s.Set(key, b, ttl)
	return b, nil
}
