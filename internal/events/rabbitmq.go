package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("not connected to broker")
	ErrClosed       = errors.New("publisher closed")
)

// AMQPPublisher publishes events to a durable topic exchange and reconnects
// when the broker drops the connection. Dialing happens outside the lock, so
// publishes fail fast with ErrNotConnected while a reconnect is running.
type AMQPPublisher struct {
	url        string
	exchange   string
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
	dial       func() (*amqp.Connection, *amqp.Channel, error)

	mu         sync.RWMutex
	connection *amqp.Connection
	channel    *amqp.Channel
	isClosing  bool
}

func NewAMQPPublisher(url, exchange string, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &AMQPPublisher{
		url:        url,
		exchange:   exchange,
		retryCount: 3,
		retryDelay: 2 * time.Second,
		logger:     logger,
	}
	p.dial = p.openChannel
	return p
}

func (p *AMQPPublisher) Connect() error {
	var err error
	for i := 0; i < p.retryCount; i++ {
		if p.closing() {
			return ErrClosed
		}

		conn, ch, dialErr := p.dial()
		if dialErr == nil {
			return p.adopt(conn, ch)
		}
		err = dialErr

		p.logger.Warn("broker connection failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.retryCount),
			zap.Error(err))
		if i < p.retryCount-1 {
			time.Sleep(p.retryDelay)
		}
	}

	return fmt.Errorf("connect to broker: %w", err)
}

// adopt installs a freshly dialed connection unless Close ran meanwhile, in
// which case the connection is closed instead.
func (p *AMQPPublisher) adopt(conn *amqp.Connection, ch *amqp.Channel) error {
	p.mu.Lock()
	if p.isClosing {
		p.mu.Unlock()
		_ = ch.Close()
		_ = conn.Close()
		return ErrClosed
	}
	p.connection = conn
	p.channel = ch
	p.mu.Unlock()

	p.logger.Info("connected to broker", zap.String("exchange", p.exchange))
	go p.watchConnection(conn)
	return nil
}

func (p *AMQPPublisher) closing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isClosing
}

func (p *AMQPPublisher) openChannel() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return conn, ch, nil
}

func (p *AMQPPublisher) watchConnection(conn *amqp.Connection) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	err, ok := <-notifyClose
	if !ok || p.closing() {
		return
	}

	p.logger.Warn("broker connection lost, reconnecting", zap.Error(err))
	time.Sleep(p.retryDelay)
	if err := p.Connect(); err != nil && !errors.Is(err, ErrClosed) {
		p.logger.Error("broker reconnect failed", zap.Error(err))
	}
}

func (p *AMQPPublisher) PublishPurchaseCommitted(ctx context.Context, event PurchaseCommitted) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isClosing {
		return ErrClosed
	}
	if p.channel == nil || p.connection == nil || p.connection.IsClosed() {
		return ErrNotConnected
	}

	err = p.channel.Publish(
		p.exchange,
		RoutingKeyPurchaseCommitted,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID.String(),
			Timestamp:    event.OccurredAt,
			Type:         RoutingKeyPurchaseCommitted,
			Headers: amqp.Table{
				"purchase_id": event.PurchaseID.String(),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isClosing {
		return nil
	}
	p.isClosing = true

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}
