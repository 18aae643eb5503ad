package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/entity"
)

var (
	ErrProducerClosed = errors.New("producer is closed")
	// ErrNotConnected is returned by Publish while the broker is unreachable.
	ErrNotConnected = errors.New("producer is not connected to RabbitMQ")
)

const defaultReconnectDelay = 5 * time.Second

// RabbitMQProducer publishes lead tasks. Publish never dials: while the
// broker is down it fails immediately and Run redials in the background,
// so the api keeps answering.
type RabbitMQProducer struct {
	url         string
	retryDelays []time.Duration

	// DialTimeout bounds each dial attempt.
	DialTimeout time.Duration
	// ReconnectDelay is the pause between background dial attempts.
	ReconnectDelay time.Duration

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool

	dialMu sync.Mutex
	kick   chan struct{}
}

func NewProducer(url string, retryDelays []time.Duration) *RabbitMQProducer {
	return &RabbitMQProducer{
		url:            url,
		retryDelays:    retryDelays,
		DialTimeout:    DefaultDialTimeout,
		ReconnectDelay: defaultReconnectDelay,
		kick:           make(chan struct{}, 1),
	}
}

// Connect dials once. A failure here is not fatal; Run keeps retrying.
func (p *RabbitMQProducer) Connect() error {
	return p.reconnect()
}

// Run redials whenever the channel is gone, until ctx is done. A failed
// publish wakes it early, but never sooner than ReconnectDelay after a
// failed dial.
func (p *RabbitMQProducer) Run(ctx context.Context) {
	for {
		kick := p.kick
		if !p.Connected() {
			if err := p.reconnect(); err != nil && !errors.Is(err, ErrProducerClosed) {
				zap.L().Warn("broker unavailable; publishing disabled", zap.Error(err),
					zap.Duration("retry_in", p.ReconnectDelay))
				kick = nil
			}
		}

		t := time.NewTimer(p.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-kick:
			t.Stop()
		case <-t.C:
		}
	}
}

func (p *RabbitMQProducer) Publish(ctx context.Context, task entity.Task) (string, error) {
	id := uuid.NewString()
	msg, err := buildPublishing(id, task, time.Now())
	if err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		publishedTotal.WithLabelValues("error").Inc()
		return "", ErrProducerClosed
	}
	if p.ch == nil || p.ch.IsClosed() {
		publishedTotal.WithLabelValues("error").Inc()
		p.wake()
		return "", ErrNotConnected
	}

	if err := p.ch.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, msg); err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		p.wake()
		return "", fmt.Errorf("failed to publish to RabbitMQ: %w", err)
	}

	publishedTotal.WithLabelValues("ok").Inc()
	return id, nil
}

// Connected reports whether the producer currently holds an open channel.
func (p *RabbitMQProducer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch != nil && !p.ch.IsClosed()
}

func (p *RabbitMQProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.reset()
}

// reconnect dials without holding p.mu, so publishes keep failing fast
// while a dial is in flight.
func (p *RabbitMQProducer) reconnect() error {
	p.dialMu.Lock()
	defer p.dialMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		p.mu.Unlock()
		return nil
	}
	p.reset()
	p.mu.Unlock()

	r, err := dialRabbitMQ(p.url, p.retryDelays, p.DialTimeout)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		r.Close()
		return ErrProducerClosed
	}
	p.conn, p.ch = r.Conn, r.Ch
	return nil
}

func (p *RabbitMQProducer) wake() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// reset must be called with p.mu held.
func (p *RabbitMQProducer) reset() error {
	var err error
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if !p.conn.IsClosed() {
			err = p.conn.Close()
		}
		p.conn = nil
	}
	return err
}

func buildPublishing(id string, task entity.Task, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode task: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

// DecodeTask parses a queue message body.
func DecodeTask(body []byte) (entity.Task, error) {
	var task entity.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return entity.Task{}, fmt.Errorf("invalid task payload: %w", err)
	}
	return task, nil
}

// RetryCount reads RetryCountHeader; a missing or malformed header is 0.
func RetryCount(headers amqp.Table) int {
	switch v := headers[RetryCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
