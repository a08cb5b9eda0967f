package bus_test

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ohmycache/rabbit-lru-cache/bus"
)

// fakeBroker is an in-memory stand-in for a RabbitMQ fanout exchange:
// every bound queue receives every published message, exactly like a
// real fanout exchange, without a live broker.
type fakeBroker struct {
	mu      sync.Mutex
	queues  map[string]chan amqp.Delivery
	conns   []*fakeConnection
	dialErr error
	dials   int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{queues: make(map[string]chan amqp.Delivery)}
}

func (b *fakeBroker) dialer() bus.Dialer {
	return func(ctx context.Context, opts bus.ConnectOptions) (bus.Connection, error) {
		b.mu.Lock()
		b.dials++
		err := b.dialErr
		if err == nil {
			c := &fakeConnection{broker: b, closeCh: make(chan *amqp.Error, 1)}
			b.conns = append(b.conns, c)
			b.mu.Unlock()
			return c, nil
		}
		b.mu.Unlock()
		return nil, err
	}
}

func (b *fakeBroker) publish(body []byte, headers amqp.Table) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.queues {
		select {
		case ch <- amqp.Delivery{Body: body, Headers: headers}:
		default:
		}
	}
}

// breakLatest simulates the broker forcibly dropping the most recently
// dialed connection, the one currently in use by a healthy supervisor.
func (b *fakeBroker) breakLatest() {
	b.mu.Lock()
	var c *fakeConnection
	if n := len(b.conns); n > 0 {
		c = b.conns[n-1]
	}
	b.mu.Unlock()
	if c != nil {
		c.break_()
	}
}

type fakeConnection struct {
	broker  *fakeBroker
	closeCh chan *amqp.Error
	mu      sync.Mutex
	closed  bool
	chans   []*fakeChannel
}

func (c *fakeConnection) Channel() (bus.Channel, error) {
	ch := &fakeChannel{conn: c, broker: c.broker, closeCh: make(chan *amqp.Error, 1)}
	c.mu.Lock()
	c.chans = append(c.chans, ch)
	c.mu.Unlock()
	return ch, nil
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	go func() {
		if e, ok := <-c.closeCh; ok {
			receiver <- e
		}
	}()
	return receiver
}

// break_ fires the connection's close notification and, as a broker does
// when it drops a connection, closes every channel opened on it so their
// consumers' delivery channels end.
func (c *fakeConnection) break_() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.closeCh <- &amqp.Error{Code: 320, Reason: "CONNECTION_FORCED"}:
	default:
	}
	chans := c.chans
	c.mu.Unlock()
	for _, ch := range chans {
		_ = ch.Close()
	}
}

type fakeChannel struct {
	conn    *fakeConnection
	broker  *fakeBroker
	closeCh chan *amqp.Error

	mu        sync.Mutex
	queueName string
	delivery  chan amqp.Delivery
	closed    bool
}

func (ch *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return nil
}

func (ch *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.mu.Lock()
	ch.queueName = name
	ch.mu.Unlock()
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	d := make(chan amqp.Delivery, 16)
	ch.broker.queues[name] = d
	ch.mu.Lock()
	ch.delivery = d
	ch.mu.Unlock()
	return nil
}

func (ch *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.delivery == nil {
		return nil, errors.New("queue not bound")
	}
	return ch.delivery, nil
}

func (ch *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	ch.broker.publish(msg.Body, msg.Headers)
	return nil
}

func (ch *fakeChannel) Cancel(consumer string, noWait bool) error { return nil }

func (ch *fakeChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil
	}
	ch.closed = true
	ch.broker.mu.Lock()
	if ch.queueName != "" {
		if d, ok := ch.broker.queues[ch.queueName]; ok {
			close(d)
			delete(ch.broker.queues, ch.queueName)
		}
	}
	ch.broker.mu.Unlock()
	return nil
}

func (ch *fakeChannel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	go func() {
		if e, ok := <-ch.closeCh; ok {
			receiver <- e
		}
	}()
	return receiver
}
