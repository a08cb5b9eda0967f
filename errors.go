package rabbitlru

import "github.com/ohmycache/rabbit-lru-cache/cache"

// ErrClosing is returned by cache operations called after Close.
var ErrClosing = cache.ErrClosing

// ErrInvalidConfig is returned when the cache configuration is invalid.
var ErrInvalidConfig = cache.ErrInvalidConfig

// ErrEmptyName is returned when Config.Name is empty.
var ErrEmptyName = cache.ErrEmptyName

// ErrMissingConnectOptions is returned when no broker address was given.
var ErrMissingConnectOptions = cache.ErrMissingConnectOptions
