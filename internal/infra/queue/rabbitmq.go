package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName      = "ex.leads"
	QueueName         = "leads"
	RoutingKey        = "k.lead"
	RetryExchangeName = "ex.leads.retry"
	DLXName           = "ex.leads.dlx" // Dead Letter Exchange
	DLQName           = "leads.dlq"

	// RetryCountHeader holds how many times a task has been requeued.
	RetryCountHeader = "x-retry-count"
)

// RetryQueueName names the delay queue holding tasks for exactly delay.
func RetryQueueName(delay time.Duration) string {
	return fmt.Sprintf("%s.retry.%ds", QueueName, int64(delay/time.Second))
}

// topologyChannel is the subset of *amqp.Channel used to declare topology.
type topologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DefaultDialTimeout bounds the TCP connect and the AMQP handshake. A
// broker that accepts connections but never speaks AMQP fails within it.
const DefaultDialTimeout = 2 * time.Second

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string, retryDelays []time.Duration) (*RabbitMQ, error) {
	return dialRabbitMQ(url, retryDelays, DefaultDialTimeout)
}

func dialRabbitMQ(url string, retryDelays []time.Duration, timeout time.Duration) (*RabbitMQ, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := SetupTopology(ch, retryDelays); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}

// SetupTopology declares the work queue, its dead-letter queue and one
// delay queue per retry delay. Delay queues have no consumers; expired
// messages dead-letter back onto the work queue.
func SetupTopology(ch topologyChannel, retryDelays []time.Duration) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DLXName, err)
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DLQName, err)
	}
	if err := ch.QueueBind(DLQName, RoutingKey, DLXName, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", DLQName, err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeName, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": RoutingKey,
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare %s: %w", QueueName, err)
	}
	if err := ch.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", QueueName, err)
	}

	if err := ch.ExchangeDeclare(RetryExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", RetryExchangeName, err)
	}
	for _, delay := range retryDelays {
		name := RetryQueueName(delay)
		retryArgs := amqp.Table{
			"x-message-ttl":             delay.Milliseconds(),
			"x-dead-letter-exchange":    ExchangeName,
			"x-dead-letter-routing-key": RoutingKey,
		}
		if _, err := ch.QueueDeclare(name, true, false, false, false, retryArgs); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}
		if err := ch.QueueBind(name, name, RetryExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}

	return nil
}
