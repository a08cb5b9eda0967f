package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ohmycache/rabbit-lru-cache/types"
)

// ReconnectOptions configures the supervisor's reconnect behavior
// (spec §6.1 reconnectionOptions).
type ReconnectOptions struct {
	AllowStaleData        bool
	RetryIntervalUpTo     time.Duration
	RetryIntervalIncrease time.Duration
}

// DefaultReconnectOptions returns the spec's documented defaults.
func DefaultReconnectOptions() ReconnectOptions {
	return ReconnectOptions{
		AllowStaleData:        false,
		RetryIntervalUpTo:     60 * time.Second,
		RetryIntervalIncrease: 1 * time.Second,
	}
}

// Hooks lets the cache facade observe and react to supervisor
// transitions without the bus package importing the cache package.
type Hooks struct {
	// BeforeReconnect is invoked synchronously on entering Reconnecting,
	// before the first reconnecting event fires (spec §4.4 step 1:
	// clear Inflight Table and LRU Store).
	BeforeReconnect func()
	// AfterReconnect is invoked synchronously on successful reattach,
	// before the reconnected event fires (spec §4.4: clear again).
	AfterReconnect func()
	// OnReconnecting fires once per failed reconnect attempt, reporting
	// the interval that was waited before that attempt. It never fires
	// for the attempt that finally succeeds — that attempt reports only
	// OnReconnected.
	OnReconnecting func(types.ReconnectEvent)
	// OnReconnected fires exactly once per successful recovery.
	OnReconnected func(types.ReconnectEvent)
	// OnDelivery is invoked for every inbound message, already decoded.
	OnDelivery func(Message)
	// OnLog receives ambient diagnostics the supervisor absorbs instead
	// of surfacing as errors (spec §7: transport errors only ever
	// reach the user via reconnecting/reconnected events, but operators
	// running with logging enabled should still see them).
	OnLog func(level string, msg string, err error)
}

// Supervisor owns one connected episode's connection, publisher
// channel and consumer channel, and runs the reconnect state machine
// of spec §4.4.
type Supervisor struct {
	dialer   Dialer
	opts     ConnectOptions
	reconn   ReconnectOptions
	exchange string
	queue    string
	cacheID  string
	hooks    Hooks

	mu    sync.Mutex
	state types.State
	conn  Connection
	pubCh Channel
	subCh Channel

	errored    atomic.Bool // latches the once-only error handler per episode
	closeOnce  sync.Once
	closedCh   chan struct{}
	consumeWG  sync.WaitGroup
}

// NewSupervisor constructs a Supervisor; callers must call Open to attach.
func NewSupervisor(dialer Dialer, connOpts ConnectOptions, reconnOpts ReconnectOptions, exchange, cacheID string, hooks Hooks) *Supervisor {
	if dialer == nil {
		dialer = DialAMQP
	}
	return &Supervisor{
		dialer:   dialer,
		opts:     connOpts,
		reconn:   reconnOpts,
		exchange: exchange,
		queue:    QueueName(exchange, cacheID),
		cacheID:  cacheID,
		hooks:    hooks,
		closedCh: make(chan struct{}),
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() types.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open performs the initial attach (spec §6.2 wire surface).
func (s *Supervisor) Open(ctx context.Context) error {
	conn, pubCh, subCh, err := s.attach(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.pubCh = pubCh
	s.subCh = subCh
	s.state = types.StateConnected
	s.mu.Unlock()

	s.errored.Store(false)
	s.watch(conn, subCh)
	return nil
}

// attach dials, opens two channels, declares the exchange and this
// instance's queue, binds it, and registers the consumer.
func (s *Supervisor) attach(ctx context.Context) (Connection, Channel, Channel, error) {
	conn, err := s.dialer(ctx, s.opts)
	if err != nil {
		return nil, nil, nil, err
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, nil, err
	}

	subCh, err := conn.Channel()
	if err != nil {
		pubCh.Close()
		conn.Close()
		return nil, nil, nil, err
	}

	if err := pubCh.ExchangeDeclare(s.exchange, "fanout", false, false, false, false, nil); err != nil {
		pubCh.Close()
		subCh.Close()
		conn.Close()
		return nil, nil, nil, err
	}

	if _, err := subCh.QueueDeclare(s.queue, false, true, true, false, nil); err != nil {
		pubCh.Close()
		subCh.Close()
		conn.Close()
		return nil, nil, nil, err
	}

	if err := subCh.QueueBind(s.queue, "", s.exchange, false, nil); err != nil {
		pubCh.Close()
		subCh.Close()
		conn.Close()
		return nil, nil, nil, err
	}

	deliveries, err := subCh.Consume(s.queue, s.cacheID, true, true, false, false, nil)
	if err != nil {
		pubCh.Close()
		subCh.Close()
		conn.Close()
		return nil, nil, nil, err
	}

	s.consumeWG.Add(1)
	go s.consume(deliveries)

	return conn, pubCh, subCh, nil
}

// consume delivers decoded, self-filtered messages to OnDelivery until
// the delivery channel closes (broker-side cancel or channel close).
func (s *Supervisor) consume(deliveries <-chan amqp.Delivery) {
	defer s.consumeWG.Done()
	for d := range deliveries {
		sender, _ := d.Headers[types.CacheIDHeader].(string)
		msg := Decode(d.Body, sender)
		if s.hooks.OnDelivery != nil {
			s.hooks.OnDelivery(msg)
		}
	}
}

// watch arms the once-only transport-error handler for this episode:
// the first of connection-close or channel-close triggers reconnect;
// everything after is discarded (spec §9 "once-only error handler").
func (s *Supervisor) watch(conn Connection, subCh Channel) {
	connClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	chanClose := subCh.NotifyClose(make(chan *amqp.Error, 1))

	go func() {
		var err error
		select {
		case e := <-connClose:
			err = errOrNil(e)
		case e := <-chanClose:
			err = errOrNil(e)
		case <-s.closedCh:
			return
		}
		s.onTransportError(err)
	}()
}

func errOrNil(e *amqp.Error) error {
	if e == nil {
		return nil
	}
	return e
}

// onTransportError is the latched entry point into Reconnecting. Only
// the first caller per episode proceeds (spec §4.4: "subsequent events
// during reconnect are ignored").
func (s *Supervisor) onTransportError(err error) {
	if !s.errored.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	if s.state == types.StateClosing || s.state == types.StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = types.StateReconnecting
	s.mu.Unlock()

	s.log("warn", "transport lost, entering reconnect loop", err)

	if s.hooks.BeforeReconnect != nil {
		s.hooks.BeforeReconnect()
	}

	s.reconnectLoop(err)
}

// reconnectLoop implements the linear-capped backoff of spec §4.4. Each
// iteration waits the current backoff interval (0 on the first attempt),
// then attaches. OnReconnecting only fires after a failed attach, reporting
// the interval that was just waited — the attempt that finally succeeds
// reports OnReconnected instead, never a preceding OnReconnecting (spec
// §6.3, enumerated acceptance scenario §8.4).
func (s *Supervisor) reconnectLoop(firstErr error) {
	attempt := 0
	interval := time.Duration(0)
	lastErr := firstErr

	for {
		attempt++
		usedInterval := interval

		if s.isClosing() {
			return
		}

		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-timer.C:
			case <-s.closedCh:
				timer.Stop()
				return
			}
		}

		if s.isClosing() {
			return
		}

		conn, pubCh, subCh, err := s.attach(context.Background())
		if err != nil {
			lastErr = err
			s.log("warn", "reconnect attempt failed", err)
			if s.hooks.OnReconnecting != nil {
				s.hooks.OnReconnecting(types.ReconnectEvent{
					Err:           lastErr,
					Attempt:       attempt,
					RetryInterval: usedInterval.Milliseconds(),
				})
			}
			interval += s.reconn.RetryIntervalIncrease
			if interval > s.reconn.RetryIntervalUpTo {
				interval = s.reconn.RetryIntervalUpTo
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.pubCh = pubCh
		s.subCh = subCh
		s.state = types.StateConnected
		s.mu.Unlock()

		s.errored.Store(false)
		s.watch(conn, subCh)

		if s.hooks.AfterReconnect != nil {
			s.hooks.AfterReconnect()
		}

		if s.hooks.OnReconnected != nil {
			s.hooks.OnReconnected(types.ReconnectEvent{
				Err:           lastErr,
				Attempt:       attempt,
				RetryInterval: usedInterval.Milliseconds(),
			})
		}
		return
	}
}

func (s *Supervisor) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == types.StateClosing || s.state == types.StateClosed
}

// Publish sends a payload on the fanout exchange with the x-cache-id
// header. Per spec §4.3, publishes are silently dropped while
// Reconnecting (availability over cross-fleet consistency).
func (s *Supervisor) Publish(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	state := s.state
	pubCh := s.pubCh
	s.mu.Unlock()

	if state != types.StateConnected {
		return nil
	}

	return pubCh.PublishWithContext(ctx, s.exchange, "", false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        payload,
		Headers:     amqp.Table{types.CacheIDHeader: s.cacheID},
	})
}

// Close moves the supervisor to Closing and performs the ordered
// teardown of spec §4.5 close sequence steps 2-4, ending in Closed (the
// facade's own closed flag and the LRU reset are the caller's
// responsibility).
func (s *Supervisor) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = types.StateClosing
		conn := s.conn
		pubCh := s.pubCh
		subCh := s.subCh
		s.mu.Unlock()

		close(s.closedCh)

		if subCh != nil {
			_ = subCh.Cancel(s.cacheID, false)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if subCh != nil {
				_ = subCh.Close()
			}
		}()
		go func() {
			defer wg.Done()
			if pubCh != nil {
				_ = pubCh.Close()
			}
		}()
		wg.Wait()

		if conn != nil {
			closeErr = conn.Close()
		}

		s.consumeWG.Wait()

		s.mu.Lock()
		s.state = types.StateClosed
		s.mu.Unlock()
	})
	return closeErr
}

func (s *Supervisor) log(level, msg string, err error) {
	if s.hooks.OnLog != nil {
		s.hooks.OnLog(level, msg, err)
	}
}
