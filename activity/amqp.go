package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "whiteboard"
	publishTimeout  = 5 * time.Second
	queueSize       = 1024
)

type publishFunc func(ctx context.Context, key string, body []byte) error

// AMQP publishes events to a RabbitMQ topic exchange with routing keys of
// the form room.<code>.<kind>. Publish only enqueues; a single goroutine
// does the network work, and events are dropped when the queue is full.
type AMQP struct {
	publish publishFunc
	events  chan Event
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	release func()
	logger  *slog.Logger
}

// DialAMQP connects to url, opens a channel and declares the exchange.
func DialAMQP(url, exchange string, logger *slog.Logger) (*AMQP, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(exchange, "topic", false, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	publish := func(ctx context.Context, key string, body []byte) error {
		return ch.PublishWithContext(ctx, exchange, key, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		})
	}
	release := func() {
		ch.Close()
		conn.Close()
	}

	return newAMQP(publish, release, logger), nil
}

func newAMQP(publish publishFunc, release func(), logger *slog.Logger) *AMQP {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AMQP{
		publish: publish,
		events:  make(chan Event, queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		release: release,
		logger:  logger,
	}
	go a.run()
	return a
}

func (a *AMQP) Publish(_ context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	select {
	case <-a.quit:
		return
	default:
	}

	select {
	case a.events <- e:
	default:
		a.logger.Warn("activity queue full, dropping event", "kind", e.Kind, "room", e.Room)
	}
}

func (a *AMQP) run() {
	defer close(a.stopped)

	for {
		select {
		case e := <-a.events:
			a.send(e)
		case <-a.quit:
			return
		}
	}
}

func (a *AMQP) send(e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		a.logger.Error("cannot encode activity event", "kind", e.Kind, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := a.publish(ctx, RoutingKey(e), body); err != nil {
		a.logger.Error("cannot publish activity event", "kind", e.Kind, "room", e.Room, "error", err)
	}
}

// Close stops the publishing goroutine and releases the AMQP channel and
// connection. Events still queued are discarded.
func (a *AMQP) Close() {
	a.once.Do(func() {
		close(a.quit)
		<-a.stopped
		if a.release != nil {
			a.release()
		}
	})
}

// RoutingKey builds room.<code>.<kind>. Dots and wildcards inside the room
// code are replaced so the code stays a single topic word.
func RoutingKey(e Event) string {
	code := strings.NewReplacer(".", "_", "*", "_", "#", "_").Replace(e.Room)
	return "room." + code + "." + string(e.Kind)
}
