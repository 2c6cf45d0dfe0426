package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Message is a delivery handed to the worker. Exactly one of Ack or Requeue
// must be called.
type Message struct {
	Body      []byte
	MessageID string

	ack     func() error
	requeue func() error
}

// NewMessage builds a Message settled through the given callbacks.
func NewMessage(body []byte, messageID string, ack, requeue func() error) Message {
	return Message{Body: body, MessageID: messageID, ack: ack, requeue: requeue}
}

func (m Message) Ack() error     { return m.ack() }
func (m Message) Requeue() error { return m.requeue() }

type Consumer interface {
	Consume(ctx context.Context) (<-chan Message, error)
	Close() error
}

// ConsumerConfig selects the queue and the per-consumer prefetch window.
type ConsumerConfig struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
}

type rabbitMQConsumer struct {
	channel *amqp.Channel
	cfg     ConsumerConfig
	logger  zerolog.Logger
}

func NewRabbitMQConsumer(channel *amqp.Channel, cfg ConsumerConfig, logger zerolog.Logger) Consumer {
	if cfg.PrefetchCount < 1 {
		cfg.PrefetchCount = 1
	}
	return &rabbitMQConsumer{
		channel: channel,
		cfg:     cfg,
		logger:  logger.With().Str("queue", cfg.Queue).Logger(),
	}
}

func (c *rabbitMQConsumer) Consume(ctx context.Context) (<-chan Message, error) {
	if err := c.channel.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
		return nil, err
	}

	deliveries, err := c.channel.Consume(
		c.cfg.Queue,       // queue
		c.cfg.ConsumerTag, // consumer
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return nil, err
	}

	out := make(chan Message)
	go c.forward(ctx, deliveries, out)

	c.logger.Info().
		Str("consumer_tag", c.cfg.ConsumerTag).
		Int("prefetch", c.cfg.PrefetchCount).
		Msg("RabbitMQ consumer started")

	return out, nil
}

// forward hands deliveries to out until the broker closes the stream or ctx
// ends. A delivery taken but not handed over goes back to the queue.
func (c *rabbitMQConsumer) forward(ctx context.Context, deliveries <-chan amqp.Delivery, out chan<- Message) {
	defer close(out)

	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Stopping RabbitMQ consumer")
			return
		case d, ok = <-deliveries:
			if !ok {
				c.logger.Warn().Msg("RabbitMQ delivery channel closed")
				return
			}
		}

		select {
		case out <- toMessage(d):
		case <-ctx.Done():
			if err := d.Nack(false, true); err != nil {
				c.logger.Error().Err(err).Msg("Failed to requeue undelivered message")
			}
			return
		}
	}
}

func toMessage(d amqp.Delivery) Message {
	return NewMessage(d.Body, d.MessageId,
		func() error { return d.Ack(false) },
		func() error { return d.Nack(false, true) },
	)
}

func (c *rabbitMQConsumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Cancel(c.cfg.ConsumerTag, false); err != nil {
			c.logger.Error().Err(err).Msg("Failed to cancel RabbitMQ consumer")
		}
	}

	c.logger.Info().Msg("RabbitMQ consumer closed")
	return nil
}
