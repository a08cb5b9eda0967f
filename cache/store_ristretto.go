package cache

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto"
)

// ristrettoStore is the alternate Store for callers who bound their
// cache by ristretto's MaxCost rather than an item count — selected when
// LRUCacheOptions.MaxCost is set, mirroring the teacher's dual
// LRU/Ristretto LocalCacheFactory split. Set gives every entry a cost of
// 1; no byte size of the stored value is computed. Ristretto tracks admission
// and eviction itself but exposes no key enumeration, and its OnEvict
// callback only ever hands back the internal uint64 hash of a key, never
// the original string. A custom KeyToHash lets the store compute that
// same hash itself and keep a reverse index, so eviction can prune the
// side index that backs Keys()/ItemCount() instead of leaking evicted
// entries into it forever. Set records a key in the side index only after
// checking that ristretto admitted it.
type ristrettoStore struct {
	cache  *ristretto.Cache
	maxAge time.Duration
	allow  bool

	mu        sync.Mutex
	keys      map[string]struct{}
	hashToKey map[uint64]string
}

// RistrettoStoreFactory creates a cost-weighted ristretto-backed Store.
type RistrettoStoreFactory struct{}

// NewRistrettoStoreFactory returns the alternate Store factory.
func NewRistrettoStoreFactory() StoreFactory { return RistrettoStoreFactory{} }

// ristrettoKeyToHash hashes string keys the same way on both sides of the
// index: once here when the store records a key, and once inside ristretto
// when it stores or evicts the entry, so item.Key in OnEvict always matches
// a hash this store already has on file.
func ristrettoKeyToHash(key interface{}) (uint64, uint64) {
	s, _ := key.(string)
	return xxhash.Sum64String(s), xxhash.Sum64String(s + "\x00conflict")
}

func (RistrettoStoreFactory) Create(opts LRUCacheOptions) (Store, error) {
	numCounters := opts.NumCounters
	if numCounters <= 0 {
		numCounters = 10 * 1e6
	}
	bufferItems := opts.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	s := &ristrettoStore{
		maxAge:    opts.MaxAge,
		allow:     opts.AllowStale,
		keys:      make(map[string]struct{}),
		hashToKey: make(map[uint64]string),
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: bufferItems,
		KeyToHash:   ristrettoKeyToHash,
		OnEvict: func(item *ristretto.Item) {
			s.mu.Lock()
			if key, ok := s.hashToKey[item.Key]; ok {
				delete(s.hashToKey, item.Key)
				delete(s.keys, key)
			}
			s.mu.Unlock()
		},
	})
	if err != nil {
		return nil, err
	}
	s.cache = c
	return s, nil
}

func (s *ristrettoStore) Get(key string) (any, bool) {
	v, ok := s.cache.Get(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (s *ristrettoStore) Set(key string, value any) {
	if value == nil {
		return
	}
	var ok bool
	if s.maxAge > 0 {
		ok = s.cache.SetWithTTL(key, value, 1, s.maxAge)
	} else {
		ok = s.cache.Set(key, value, 1)
	}
	if !ok {
		return
	}
	s.cache.Wait()
	if _, admitted := s.cache.Get(key); !admitted {
		return
	}
	hash, _ := ristrettoKeyToHash(key)
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.hashToKey[hash] = key
	s.mu.Unlock()
}

func (s *ristrettoStore) Del(key string) {
	s.cache.Del(key)
	hash, _ := ristrettoKeyToHash(key)
	s.mu.Lock()
	delete(s.keys, key)
	delete(s.hashToKey, hash)
	s.mu.Unlock()
}

func (s *ristrettoStore) Reset() {
	s.cache.Clear()
	s.mu.Lock()
	s.keys = make(map[string]struct{})
	s.hashToKey = make(map[uint64]string)
	s.mu.Unlock()
}

func (s *ristrettoStore) Has(key string) bool {
	_, ok := s.cache.Get(key)
	return ok
}

func (s *ristrettoStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Prune is a no-op: ristretto expires entries lazily on access and has
// no eager-sweep primitive to call into.
func (s *ristrettoStore) Prune() {}

func (s *ristrettoStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *ristrettoStore) Length() int64 { return int64(s.ItemCount()) }

func (s *ristrettoStore) Max() int { return 0 }

func (s *ristrettoStore) MaxAge() time.Duration { return s.maxAge }

func (s *ristrettoStore) AllowStale() bool { return s.allow }
