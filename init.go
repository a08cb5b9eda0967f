// Package rabbitlru is a bounded, TTL-aware local cache kept coherent
// across process instances by broadcasting invalidations over a
// RabbitMQ fanout exchange.
package rabbitlru

import (
	"github.com/ohmycache/rabbit-lru-cache/bus"
	"github.com/ohmycache/rabbit-lru-cache/cache"
)

// Config configures a cache instance (spec §6.1).
type Config struct {
	// Name namespaces the invalidation domain: the fanout exchange is
	// "rabbit-lru-cache-" + Name, shared by every instance that should
	// see each other's invalidations.
	Name string

	// LRUCacheOptions configures the local Store.
	LRUCacheOptions LRUCacheOptions

	// StoreFactory creates the local Store. If nil, defaults to the
	// item-count LRU factory, or the cost-weighted ristretto factory
	// when LRUCacheOptions.MaxCost is set.
	StoreFactory StoreFactory

	// AMQPConnectOptions describes how to reach the broker.
	AMQPConnectOptions AMQPConnectOptions

	// ReconnectionOptions configures reconnect backoff and the
	// stale-data policy while disconnected.
	ReconnectionOptions ReconnectionOptions

	// Logger is the logger for debug logging. If nil, defaults to a
	// no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// OnError is called when an error occurs in background operations.
	OnError func(error)

	// Dialer overrides how the supervisor opens AMQP connections.
	// Exposed for tests; nil uses the real broker client.
	Dialer bus.Dialer
}

// New creates a new cache instance (spec §4.5, §4.1 init sequence).
func New(cfg Config) (Cache, error) {
	opts := cache.Options{
		Name:                cfg.Name,
		LRUCacheOptions:     cfg.LRUCacheOptions,
		StoreFactory:        cfg.StoreFactory,
		AMQPConnectOptions:  cfg.AMQPConnectOptions,
		ReconnectionOptions: cfg.ReconnectionOptions,
		Logger:              cfg.Logger,
		DebugMode:           cfg.DebugMode,
		OnError:             cfg.OnError,
		Dialer:              cfg.Dialer,
	}
	return cache.New(opts)
}

// DefaultConfig returns default cache configuration. Name and
// AMQPConnectOptions have no sensible default and must be set by the
// caller before passing to New.
func DefaultConfig() Config {
	return Config{
		LRUCacheOptions:     DefaultLRUCacheOptions(),
		ReconnectionOptions: DefaultReconnectionOptions(),
		DebugMode:           false,
	}
}
