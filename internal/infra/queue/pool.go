package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/usecase"
)

// Pool runs Size consumers on one connection. Each consumer has its own
// channel with prefetch 1, so a slow task holds exactly one unacked message.
type Pool struct {
	URL       string
	Size      int
	WorkerID  string
	Processor LeadProcessor
	Policy    usecase.RetryPolicy
	Notifier  ExhaustionNotifier
	Logger    *zap.Logger

	// ReconnectDelay is the pause before redialing or reopening a channel.
	ReconnectDelay time.Duration

	consuming atomic.Int32
}

// Consuming reports whether at least one consumer is registered with the
// broker right now.
func (p *Pool) Consuming() bool {
	return p.consuming.Load() > 0
}

// Run blocks until ctx is cancelled, redialing the broker when the
// connection drops.
func (p *Pool) Run(ctx context.Context) error {
	if p.Size < 1 {
		p.Size = 1
	}
	if p.ReconnectDelay <= 0 {
		p.ReconnectDelay = 5 * time.Second
	}

	for {
		r, err := NewRabbitMQ(p.URL, p.Policy.Delays())
		if err != nil {
			p.Logger.Error("broker unavailable; retrying", zap.Error(err), zap.Duration("delay", p.ReconnectDelay))
		} else {
			// the topology channel is not needed by consumers
			r.Ch.Close()
			p.Logger.Info("worker pool consuming", zap.String("queue", QueueName), zap.Int("concurrency", p.Size))
			p.runConsumers(ctx, r.Conn)
			r.Conn.Close()
		}

		if !sleepCtx(ctx, p.ReconnectDelay) {
			p.Logger.Info("worker pool stopped")
			return nil
		}
	}
}

func (p *Pool) runConsumers(ctx context.Context, conn *amqp.Connection) {
	var wg sync.WaitGroup
	for i := 0; i < p.Size; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			p.runConsumer(ctx, conn, slot)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) runConsumer(ctx context.Context, conn *amqp.Connection, slot int) {
	tag := fmt.Sprintf("%s-%d", p.WorkerID, slot)
	log := p.Logger.With(zap.String("consumer", tag))

	for ctx.Err() == nil && !conn.IsClosed() {
		if err := p.consumeOnce(ctx, conn, tag, log); err != nil && ctx.Err() == nil {
			log.Warn("consumer stopped; reopening channel", zap.Error(err))
			if !sleepCtx(ctx, p.ReconnectDelay) {
				return
			}
		}
	}
}

func (p *Pool) consumeOnce(ctx context.Context, conn *amqp.Connection, tag string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}

	msgs, err := ch.Consume(
		QueueName, // queue
		tag,       // consumer
		false,     // auto-ack (ack after the outcome is stored)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	p.consuming.Add(1)
	defer p.consuming.Add(-1)

	w := NewWorker(p.Processor, &ChannelRetrier{Ch: ch}, p.Policy, p.Notifier, log)
	return w.Consume(ctx, msgs)
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
