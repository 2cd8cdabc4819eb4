package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tickethive/models"
)

// Broker publishes JSON messages to a RabbitMQ topic exchange.
type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
}

func NewBroker(rabbitMQURL, exchange string) (*Broker, error) {
	b := &Broker{exchange: exchange, url: rabbitMQURL}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if b.exchange != "" {
		err = ch.ExchangeDeclare(
			b.exchange,
			"topic",
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
		}
	}

	b.conn = conn
	b.channel = ch
	return nil
}

func (b *Broker) ensureConnection() error {
	if b.conn == nil || b.conn.IsClosed() || b.channel == nil || b.channel.IsClosed() {
		log.Println("Reconnecting to RabbitMQ")
		return b.connect()
	}
	return nil
}

func (b *Broker) Publish(ctx context.Context, key string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnection(); err != nil {
		return err
	}

	err = b.channel.PublishWithContext(ctx,
		b.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			return err
		}
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Publisher sends a message under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, message any) error
}

// Ledger forwards paid bookings to downstream consumers.
type Ledger struct {
	pub Publisher
}

func NewLedger(pub Publisher) *Ledger {
	return &Ledger{pub: pub}
}

func (l *Ledger) BookingPaid(ctx context.Context, ev *models.BookingPaidEvent) error {
	return l.pub.Publish(ctx, models.EventBookingPaid, ev)
}
