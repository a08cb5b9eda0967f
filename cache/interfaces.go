package cache

import (
	"context"
	"time"
)

// Logger defines the interface for logging in the cache (teacher shape,
// generalized from a structured-logging backend rather than fmt).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Loader is invoked on a cache miss. Returning a nil value means "do
// not cache" (spec §4.2, §9 open question: nil/undefined are both
// treated as absent).
type Loader func(ctx context.Context, key string) (any, error)

// Store is the external LRU Store contract of spec §4.1: a bounded
// keyed mapping with eviction, TTL and size accounting. Implementations
// must guarantee O(1) amortized Get/Set and bounded memory.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Del(key string)
	Reset()
	Has(key string) bool
	Keys() []string
	// Prune eagerly purges expired entries.
	Prune()

	ItemCount() int
	Length() int64
	Max() int
	MaxAge() time.Duration
	AllowStale() bool
}

// LRUCacheOptions is the opaque bag passed to the external LRU
// library (spec §6.1). Not interpreted beyond the fields named here.
type LRUCacheOptions struct {
	// Max is the item-count capacity (golang-lru/v2/expirable path).
	Max int
	// MaxAge is the TTL applied to every entry. Zero means no expiry.
	MaxAge time.Duration
	// AllowStale governs whether the external LRU library would return
	// an expired-but-not-yet-evicted value on read. Not interpreted by
	// the core (spec §4.1); surfaced only via the Store.AllowStale()
	// passthrough inspector.
	AllowStale bool

	// MaxCost switches the default factory to the cost-weighted
	// ristretto-backed Store instead of the item-count LRU. That Store
	// gives every entry a cost of 1; it does not measure values in bytes.
	MaxCost     int64
	NumCounters int64
	BufferItems int64
}

// StoreFactory creates a Store from LRUCacheOptions.
type StoreFactory interface {
	Create(opts LRUCacheOptions) (Store, error)
}

// Stats mirrors the teacher's Stats struct, generalized to this
// domain's hit/miss/invalidation counters (SPEC_FULL §9 ambient
// observability surface).
type Stats struct {
	LocalHits          int64
	LocalMisses        int64
	CoalescedLoads     int64
	LoaderErrors       int64
	Invalidations      int64
	SelfEchoSuppressed int64
	Reconnects         int64
}

// Cache is the public facade surface of spec §4.5.
type Cache interface {
	GetOrLoad(ctx context.Context, key string, load Loader) (any, error)
	Del(ctx context.Context, key string) error
	Reset(ctx context.Context) error

	Has(key string) bool
	Keys() []string
	DoesAllowStale() bool
	GetItemCount() int
	GetLength() int64
	GetMax() int
	GetMaxAge() time.Duration
	Prune()

	Stats() Stats

	On(event string, listener Listener) ListenerID
	Off(event string, id ListenerID)

	Close() error
}
