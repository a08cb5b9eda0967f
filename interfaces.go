package rabbitlru

import (
	"github.com/ohmycache/rabbit-lru-cache/bus"
	"github.com/ohmycache/rabbit-lru-cache/cache"
)

// Cache is an alias for cache.Cache.
type Cache = cache.Cache

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// Loader is an alias for cache.Loader.
type Loader = cache.Loader

// Store is an alias for cache.Store.
type Store = cache.Store

// StoreFactory is an alias for cache.StoreFactory.
type StoreFactory = cache.StoreFactory

// LRUCacheOptions is an alias for cache.LRUCacheOptions.
type LRUCacheOptions = cache.LRUCacheOptions

// ReconnectionOptions is an alias for cache.ReconnectionOptions.
type ReconnectionOptions = cache.ReconnectionOptions

// AMQPConnectOptions is an alias for cache.AMQPConnectOptions.
type AMQPConnectOptions = cache.AMQPConnectOptions

// Stats is an alias for cache.Stats.
type Stats = cache.Stats

// Listener is an alias for cache.Listener.
type Listener = cache.Listener

// ListenerID is an alias for cache.ListenerID.
type ListenerID = cache.ListenerID

// Dialer is an alias for bus.Dialer, for callers supplying a fake
// transport in tests.
type Dialer = bus.Dialer

// Event names emitted through Cache.On (spec §4.6).
const (
	EventInvalidationMessageReceived = cache.EventInvalidationMessageReceived
	EventReconnecting                = cache.EventReconnecting
	EventReconnected                 = cache.EventReconnected
)

// DefaultLRUCacheOptions returns default local Store configuration.
func DefaultLRUCacheOptions() LRUCacheOptions {
	return cache.DefaultLRUCacheOptions()
}

// DefaultReconnectionOptions returns the documented reconnect defaults.
func DefaultReconnectionOptions() ReconnectionOptions {
	return cache.DefaultReconnectionOptions()
}

// NewLRUStoreFactory returns the bounded item-count Store factory.
func NewLRUStoreFactory() StoreFactory { return cache.NewLRUStoreFactory() }

// NewRistrettoStoreFactory returns the cost-weighted Store factory.
func NewRistrettoStoreFactory() StoreFactory { return cache.NewRistrettoStoreFactory() }

// NewNoOpLogger returns a Logger that discards everything.
func NewNoOpLogger() Logger { return cache.NewNoOpLogger() }

// NewZerologLogger returns a Logger backed by github.com/rs/zerolog,
// tagged with the given component name.
func NewZerologLogger(component string) Logger { return cache.NewZerologLogger(component) }
