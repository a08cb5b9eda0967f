package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ohmycache/rabbit-lru-cache/bus"
	"github.com/ohmycache/rabbit-lru-cache/types"
)

// cacheImpl is the Cache Facade of spec §4.5, tying the LRU Store,
// Inflight Table, Connection Supervisor and local Event Bus together
// (teacher: SyncedCache).
type cacheImpl struct {
	name     string
	cacheID  string
	exchange string

	store    Store
	inflight *inflight
	events   *eventBus
	sup      *bus.Supervisor

	logger  Logger
	onError func(error)
	debug   bool
	allow   bool // ReconnectionOptions.AllowStaleData

	closed int32

	statsMu sync.Mutex
	stats   Stats
}

// New creates a new Cache instance (teacher: cache.New).
func New(opts Options) (Cache, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}

	store, err := opts.resolveStoreFactory().Create(opts.LRUCacheOptions)
	if err != nil {
		return nil, err
	}

	c := &cacheImpl{
		name:     opts.Name,
		cacheID:  uuid.Must(uuid.NewV7()).String(),
		exchange: bus.ExchangeName(opts.Name),
		store:    store,
		inflight: newInflight(),
		events:   newEventBus(),
		logger:   logger,
		onError:  opts.OnError,
		debug:    opts.DebugMode,
		allow:    opts.ReconnectionOptions.AllowStaleData,
	}

	hooks := bus.Hooks{
		BeforeReconnect: c.handleEnterReconnecting,
		AfterReconnect:  c.handleReattached,
		OnReconnecting:  c.handleReconnecting,
		OnReconnected:   c.handleReconnected,
		OnDelivery:      c.handleDelivery,
		OnLog:           c.handleLog,
	}

	c.sup = bus.NewSupervisor(opts.Dialer, opts.AMQPConnectOptions, opts.ReconnectionOptions, c.exchange, c.cacheID, hooks)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.sup.Open(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// GetOrLoad implements spec §4.2.
func (c *cacheImpl) GetOrLoad(ctx context.Context, key string, load Loader) (any, error) {
	if c.isClosed() {
		return nil, ErrClosing
	}

	if v, ok := c.store.Get(key); ok {
		c.bump(func(s *Stats) { s.LocalHits++ })
		return v, nil
	}
	c.bump(func(s *Stats) { s.LocalMisses++ })

	v, shared, err := c.inflight.do(key, func() (any, error) {
		// Snapshot taken here, not by the caller, since only one
		// caller's closure executes per coalesced group (spec §4.2
		// steps 1-3; see cache.inflight doc comment).
		g0, k0 := c.inflight.generation(key)

		val, lerr := load(ctx, key)
		if lerr != nil {
			return nil, lerr
		}

		if val != nil && c.inflight.stillValid(key, g0, k0) {
			if c.sup.State() != types.StateReconnecting || c.allow {
				c.store.Set(key, val)
			}
		}
		return val, nil
	})

	if shared {
		c.bump(func(s *Stats) { s.CoalescedLoads++ })
	}
	if err != nil {
		c.bump(func(s *Stats) { s.LoaderErrors++ })
		return nil, err
	}
	return v, nil
}

// Del implements spec §4.3: publish first, then apply locally.
func (c *cacheImpl) Del(ctx context.Context, key string) error {
	if c.isClosed() {
		return ErrClosing
	}
	if err := c.sup.Publish(ctx, bus.EncodeDelete(key)); err != nil {
		c.logWarn("failed to publish delete", err)
	}
	c.inflight.invalidateKey(key)
	c.store.Del(key)
	return nil
}

// Reset implements spec §4.3: publish first, then apply locally.
func (c *cacheImpl) Reset(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosing
	}
	if err := c.sup.Publish(ctx, bus.EncodeReset()); err != nil {
		c.logWarn("failed to publish reset", err)
	}
	c.inflight.invalidateAll()
	c.store.Reset()
	return nil
}

func (c *cacheImpl) Has(key string) bool {
	if c.isClosed() {
		return false
	}
	return c.store.Has(key)
}

func (c *cacheImpl) Keys() []string {
	if c.isClosed() {
		return nil
	}
	return c.store.Keys()
}

func (c *cacheImpl) DoesAllowStale() bool {
	if c.isClosed() {
		return false
	}
	return c.store.AllowStale()
}

func (c *cacheImpl) GetItemCount() int {
	if c.isClosed() {
		return 0
	}
	return c.store.ItemCount()
}

func (c *cacheImpl) GetLength() int64 {
	if c.isClosed() {
		return 0
	}
	return c.store.Length()
}

func (c *cacheImpl) GetMax() int {
	if c.isClosed() {
		return 0
	}
	return c.store.Max()
}

func (c *cacheImpl) GetMaxAge() time.Duration {
	if c.isClosed() {
		return 0
	}
	return c.store.MaxAge()
}

func (c *cacheImpl) Prune() {
	if c.isClosed() {
		return
	}
	c.store.Prune()
}

func (c *cacheImpl) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *cacheImpl) On(event string, listener Listener) ListenerID {
	return c.events.on(event, listener)
}

func (c *cacheImpl) Off(event string, id ListenerID) {
	c.events.off(event, id)
}

// Close performs the ordered teardown of spec §4.5.
func (c *cacheImpl) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	err := c.sup.Close()
	c.store.Reset()
	return err
}

func (c *cacheImpl) isClosed() bool {
	return atomic.LoadInt32(&c.closed) != 0
}

// handleEnterReconnecting implements spec §4.4 step 1.
func (c *cacheImpl) handleEnterReconnecting() {
	c.inflight.invalidateAll()
	c.store.Reset()
}

// handleReattached implements spec §4.4's second clear on successful
// reattach. This intentionally discards any value loaded during the
// reconnect window even when AllowStaleData is true (spec §9 open
// question: preserved as-is, not "fixed").
func (c *cacheImpl) handleReattached() {
	c.inflight.invalidateAll()
	c.store.Reset()
}

func (c *cacheImpl) handleReconnecting(e types.ReconnectEvent) {
	c.events.emit(EventReconnecting, e.Err, e.Attempt, e.RetryInterval)
}

func (c *cacheImpl) handleReconnected(e types.ReconnectEvent) {
	c.bump(func(s *Stats) { s.Reconnects++ })
	c.events.emit(EventReconnected, e.Err, e.Attempt, e.RetryInterval)
}

// handleDelivery implements spec §4.3's receiver table and the
// self-echo suppression of invariant I2.
func (c *cacheImpl) handleDelivery(msg bus.Message) {
	if msg.IsSelfOrigin(c.cacheID) {
		c.bump(func(s *Stats) { s.SelfEchoSuppressed++ })
		return
	}

	switch msg.Verb {
	case bus.VerbDelete:
		c.inflight.invalidateKey(msg.Key)
		c.store.Del(msg.Key)
		c.bump(func(s *Stats) { s.Invalidations++ })
	case bus.VerbReset:
		c.inflight.invalidateAll()
		c.store.Reset()
		c.bump(func(s *Stats) { s.Invalidations++ })
	case bus.VerbUnknown:
		// no mutation; still observable below.
	}

	c.events.emit(EventInvalidationMessageReceived, msg.Raw, msg.Sender)
}

func (c *cacheImpl) handleLog(level, msg string, err error) {
	if c.onError != nil && err != nil {
		c.onError(err)
	}
	if !c.debug {
		return
	}
	switch level {
	case "error":
		c.logger.Error(msg, "error", err)
	case "warn":
		c.logger.Warn(msg, "error", err)
	default:
		c.logger.Info(msg, "error", err)
	}
}

func (c *cacheImpl) logWarn(msg string, err error) {
	c.handleLog("warn", msg, err)
}

func (c *cacheImpl) bump(f func(*Stats)) {
	c.statsMu.Lock()
	f(&c.stats)
	c.statsMu.Unlock()
}
