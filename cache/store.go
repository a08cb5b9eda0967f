package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruStore is the default Store (spec §4.1), backed by
// hashicorp/golang-lru/v2's expirable variant: it natively supplies
// capacity, TTL-based expiry, insertion/use-ordered eviction and
// enumeration, which is exactly the external LRU-library contract the
// spec asks for.
type lruStore struct {
	lru        *expirable.LRU[string, any]
	max        int
	maxAge     time.Duration
	allowStale bool
}

// LRUStoreFactory creates the default expirable-LRU-backed Store.
type LRUStoreFactory struct{}

// NewLRUStoreFactory returns the default Store factory.
func NewLRUStoreFactory() StoreFactory { return LRUStoreFactory{} }

func (LRUStoreFactory) Create(opts LRUCacheOptions) (Store, error) {
	max := opts.Max
	if max <= 0 {
		max = 10000
	}
	return &lruStore{
		lru:        expirable.NewLRU[string, any](max, nil, opts.MaxAge),
		max:        max,
		maxAge:     opts.MaxAge,
		allowStale: opts.AllowStale,
	}, nil
}

func (s *lruStore) Get(key string) (any, bool) {
	v, ok := s.lru.Get(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (s *lruStore) Set(key string, value any) {
	if value == nil {
		return
	}
	s.lru.Add(key, value)
}

func (s *lruStore) Del(key string) { s.lru.Remove(key) }

func (s *lruStore) Reset() { s.lru.Purge() }

func (s *lruStore) Has(key string) bool { return s.lru.Contains(key) }

func (s *lruStore) Keys() []string { return s.lru.Keys() }

// Prune calls Get on every key that Keys lists. It removes nothing:
// expirable.LRU has no eager-purge call, its Keys does not list expired
// entries and its Get does not remove them; expired entries are dropped
// by the library's own background sweep.
func (s *lruStore) Prune() {
	for _, k := range s.lru.Keys() {
		s.lru.Get(k)
	}
}

func (s *lruStore) ItemCount() int { return s.lru.Len() }

func (s *lruStore) Length() int64 { return int64(s.lru.Len()) }

func (s *lruStore) Max() int { return s.max }

func (s *lruStore) MaxAge() time.Duration { return s.maxAge }

func (s *lruStore) AllowStale() bool { return s.allowStale }
