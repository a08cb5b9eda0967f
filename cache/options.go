package cache

import (
	"errors"
	"time"

	"github.com/ohmycache/rabbit-lru-cache/bus"
)

// ReconnectionOptions is an alias for the supervisor's reconnect
// knobs (spec §6.1 reconnectionOptions).
type ReconnectionOptions = bus.ReconnectOptions

// DefaultReconnectionOptions returns the spec's documented defaults.
func DefaultReconnectionOptions() ReconnectionOptions {
	return bus.DefaultReconnectOptions()
}

// AMQPConnectOptions is an alias for the bus-client connection
// descriptor (spec §6.1 amqpConnectOptions).
type AMQPConnectOptions = bus.ConnectOptions

// Options configures a Cache instance.
type Options struct {
	// Name namespaces the invalidation domain (spec §3): the exchange
	// is "rabbit-lru-cache-" + Name.
	Name string

	// LRUCacheOptions configures the local LRU Store (spec §6.1).
	LRUCacheOptions LRUCacheOptions

	// StoreFactory creates the local Store. If nil, defaults to the
	// item-count LRU factory, or the cost-weighted ristretto factory
	// when LRUCacheOptions.MaxCost is set.
	StoreFactory StoreFactory

	// AMQPConnectOptions is the bus-client connection descriptor,
	// passed verbatim to the AMQP client.
	AMQPConnectOptions AMQPConnectOptions

	// ReconnectionOptions configures reconnect backoff and the
	// stale-data policy during disconnection.
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

// DefaultOptions returns default cache options. Name and
// AMQPConnectOptions have no sensible default and must be supplied by
// the caller.
func DefaultOptions() Options {
	return Options{
		LRUCacheOptions:     DefaultLRUCacheOptions(),
		ReconnectionOptions: DefaultReconnectionOptions(),
		DebugMode:           false,
	}
}

// DefaultLRUCacheOptions returns default local cache configuration.
func DefaultLRUCacheOptions() LRUCacheOptions {
	return LRUCacheOptions{
		Max:         10000,
		NumCounters: 1e7,
		MaxCost:     0,
		BufferItems: 64,
	}
}

// Validate validates the options (spec §6.1: missing required fields
// fail construction with a precondition error).
func (o *Options) Validate() error {
	if o.Name == "" {
		return ErrEmptyName
	}
	if o.AMQPConnectOptions.URL == "" && o.AMQPConnectOptions.Host == "" {
		return ErrMissingConnectOptions
	}
	if o.LRUCacheOptions.Max <= 0 && o.LRUCacheOptions.MaxCost <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// resolveStoreFactory picks the default StoreFactory when none was
// supplied, following the MaxCost-present-means-ristretto rule
// documented on Options.StoreFactory.
func (o *Options) resolveStoreFactory() StoreFactory {
	if o.StoreFactory != nil {
		return o.StoreFactory
	}
	if o.LRUCacheOptions.MaxCost > 0 {
		return NewRistrettoStoreFactory()
	}
	return NewLRUStoreFactory()
}

// Sentinel errors (spec §6.4).
var (
	ErrClosing               = errors.New("rabbitlru: cache is closing")
	ErrInvalidConfig         = errors.New("rabbitlru: invalid cache configuration")
	ErrEmptyName             = errors.New("rabbitlru: name must not be empty")
	ErrMissingConnectOptions = errors.New("rabbitlru: amqp connect options are required")
)
