package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/entity"
	"github.com/xavierca1/leadflow/internal/usecase"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

type LeadProcessor interface {
	Execute(ctx context.Context, task entity.Task, retries int) usecase.Outcome
}

// Retrier republishes a delivery so that it comes back after delay.
type Retrier interface {
	Retry(ctx context.Context, d amqp.Delivery, retries int, delay time.Duration) error
}

// ExhaustionNotifier is told about tasks that ran out of retries.
type ExhaustionNotifier interface {
	NotifyExhausted(taskID string, task entity.Task, cause error)
}

type Worker struct {
	Processor LeadProcessor
	Retrier   Retrier
	Policy    usecase.RetryPolicy
	Notifier  ExhaustionNotifier
	Logger    *zap.Logger
}

func NewWorker(processor LeadProcessor, retrier Retrier, policy usecase.RetryPolicy, notifier ExhaustionNotifier, logger *zap.Logger) *Worker {
	return &Worker{
		Processor: processor,
		Retrier:   retrier,
		Policy:    policy,
		Notifier:  notifier,
		Logger:    logger,
	}
}

// Consume handles deliveries one at a time until ctx is done or the
// channel closes.
func (w *Worker) Consume(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			if err := w.Handle(ctx, d); err != nil {
				w.Logger.Warn("failed to settle delivery", zap.String("task_id", d.MessageId), zap.Error(err))
			}
		}
	}
}

// Handle processes one delivery and settles it. The delivery is acked only
// after its outcome is stored, so a crash mid-task means redelivery.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) error {
	// A started task runs to completion even during shutdown.
	ctx = context.WithoutCancel(ctx)

	retries := RetryCount(d.Headers)
	log := w.Logger.With(zap.String("task_id", d.MessageId), zap.Int("retries", retries))

	task, err := DecodeTask(d.Body)
	if err != nil {
		log.Error("discarding malformed task", zap.Error(err))
		processedTotal.WithLabelValues("malformed").Inc()
		return d.Nack(false, false)
	}

	switch out := w.Processor.Execute(ctx, task, retries).(type) {
	case usecase.Success:
		if out.Created {
			processedTotal.WithLabelValues("created").Inc()
		} else {
			processedTotal.WithLabelValues("duplicate").Inc()
		}
		log.Info("lead processed", zap.String("phone_number", out.PhoneNumber), zap.Bool("created", out.Created))
		return d.Ack(false)

	case usecase.Invalid:
		processedTotal.WithLabelValues("invalid").Inc()
		return d.Ack(false)

	case usecase.Transient:
		processedTotal.WithLabelValues("transient").Inc()
		if w.Policy.Exhausted(retries) {
			log.Error("retries exhausted; dead-lettering task",
				zap.String("phone_number", out.PhoneNumber), zap.Error(out.Err))
			deadLetteredTotal.Inc()
			w.Notifier.NotifyExhausted(d.MessageId, task, out.Err)
			return d.Nack(false, false)
		}
		if err := w.Retrier.Retry(ctx, d, retries+1, out.RetryAfter); err != nil {
			log.Error("failed to schedule retry; requeueing", zap.Error(err))
			return d.Nack(false, true)
		}
		retriesTotal.Inc()
		log.Warn("task scheduled for retry", zap.Duration("delay", out.RetryAfter), zap.Error(out.Err))
		return d.Ack(false)

	default:
		return fmt.Errorf("unknown outcome %T", out)
	}
}

// ChannelRetrier publishes retries on a channel in confirm mode and waits
// for the broker to confirm before the original is acked.
type ChannelRetrier struct {
	Ch *amqp.Channel
}

func (r *ChannelRetrier) Retry(ctx context.Context, d amqp.Delivery, retries int, delay time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dc, err := r.Ch.PublishWithDeferredConfirmWithContext(ctx, RetryExchangeName, RetryQueueName(delay), false, false,
		retryPublishing(d, retries))
	if err != nil {
		return fmt.Errorf("publish retry: %w", err)
	}
	if dc == nil {
		return nil
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await retry confirm: %w", err)
	}
	if !ok {
		return errors.New("retry publish nacked by broker")
	}
	return nil
}

func retryPublishing(d amqp.Delivery, retries int) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[RetryCountHeader] = int32(retries)

	contentType := d.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return amqp.Publishing{
		Headers:      headers,
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Timestamp:    d.Timestamp,
		Body:         d.Body,
	}
}
