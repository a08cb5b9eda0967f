package cache_test

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ohmycache/rabbit-lru-cache/bus"
)

// fakeBroker is a minimal in-memory fanout exchange used to exercise
// the Cache Facade's publish/consume wiring without a live broker.
type fakeBroker struct {
	mu     sync.Mutex
	queues map[string]chan amqp.Delivery
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{queues: make(map[string]chan amqp.Delivery)}
}

func (b *fakeBroker) dialer() bus.Dialer {
	return func(ctx context.Context, opts bus.ConnectOptions) (bus.Connection, error) {
		return &fakeConn{broker: b}, nil
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

type fakeConn struct{ broker *fakeBroker }

func (c *fakeConn) Channel() (bus.Channel, error) { return &fakeChan{broker: c.broker}, nil }
func (c *fakeConn) Close() error                  { return nil }
func (c *fakeConn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return receiver // never fires: these tests don't exercise reconnect
}

type fakeChan struct {
	broker    *fakeBroker
	queueName string
	delivery  chan amqp.Delivery
}

func (f *fakeChan) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return nil
}

func (f *fakeChan) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.queueName = name
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChan) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.broker.mu.Lock()
	defer f.broker.mu.Unlock()
	d := make(chan amqp.Delivery, 16)
	f.broker.queues[name] = d
	f.delivery = d
	return nil
}

func (f *fakeChan) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.delivery, nil
}

func (f *fakeChan) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.broker.publish(msg.Body, msg.Headers)
	return nil
}

func (f *fakeChan) Cancel(consumer string, noWait bool) error { return nil }

func (f *fakeChan) Close() error {
	f.broker.mu.Lock()
	defer f.broker.mu.Unlock()
	if f.queueName != "" {
		if d, ok := f.broker.queues[f.queueName]; ok {
			close(d)
			delete(f.broker.queues, f.queueName)
		}
	}
	return nil
}

func (f *fakeChan) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return receiver
}
