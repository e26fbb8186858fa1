package rabbitmq_consumer

import (
	"context"
	"fmt"
	"sync"

	"real-estate-search-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler обрабатывает одно сообщение. nil - ack, ошибка - nack без возврата в очередь.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// ConsumerConfig конфигурация для потребителя
type ConsumerConfig struct {
	rabbitmq_common.Config

	QueueName    string
	DurableQueue bool
	QueueArgs    amqp.Table // например x-dead-letter-exchange

	// Привязка очереди к обменнику; пустое имя - без привязки
	ExchangeName    string
	ExchangeType    string
	DeclareExchange bool
	RoutingKey      string

	PrefetchCount int // сколько сообщений обрабатывается одновременно
	ConsumerTag   string

	Logger rabbitmq_common.Logger
}

func (c ConsumerConfig) validate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.QueueName == "" {
		return fmt.Errorf("queue name is required")
	}
	if c.DeclareExchange && (c.ExchangeName == "" || c.ExchangeType == "") {
		return fmt.Errorf("exchange name and type are required to declare an exchange")
	}
	return nil
}

// Consumer читает очередь и запускает обработчик на каждое сообщение в своей горутине.
// Параллелизм ограничивается PrefetchCount.
type Consumer struct {
	config     ConsumerConfig
	connection *amqp.Connection
	channel    *amqp.Channel
	handler    MessageHandler
	wg         sync.WaitGroup

	Logger rabbitmq_common.Logger
}

// NewConsumer получает канал у менеджера соединений и объявляет очередь
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*Consumer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("consumer: invalid config: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer: message handler is required")
	}
	if connManager == nil {
		return nil, fmt.Errorf("consumer: connection manager is required")
	}

	c := &Consumer{
		config:  cfg,
		handler: handler,
		Logger:  rabbitmq_common.OrNoop(cfg.Logger),
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("consumer: failed to get channel from manager: %w", err)
	}
	c.connection = conn
	c.channel = ch

	if err := c.setup(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consumer: setup failed: %w", err)
	}
	return c, nil
}

// setup настраивает QoS, очередь и привязку
func (c *Consumer) setup() error {
	if c.config.PrefetchCount > 0 {
		c.Logger.Debug("Setting QoS", "prefetch_count", c.config.PrefetchCount)
		if err := c.channel.Qos(c.config.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	c.Logger.Debug("Declaring queue", "name", c.config.QueueName, "durable", c.config.DurableQueue)
	if _, err := c.channel.QueueDeclare(
		c.config.QueueName,
		c.config.DurableQueue,
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		c.config.QueueArgs,
	); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", c.config.QueueName, err)
	}

	if c.config.ExchangeName == "" {
		return nil
	}

	if c.config.DeclareExchange {
		c.Logger.Debug("Declaring exchange", "name", c.config.ExchangeName, "type", c.config.ExchangeType)
		if err := c.channel.ExchangeDeclare(c.config.ExchangeName, c.config.ExchangeType, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange '%s': %w", c.config.ExchangeName, err)
		}
	}

	c.Logger.Debug("Binding queue to exchange",
		"queue_name", c.config.QueueName,
		"exchange_name", c.config.ExchangeName,
		"routing_key", c.config.RoutingKey,
	)
	if err := c.channel.QueueBind(c.config.QueueName, c.config.RoutingKey, c.config.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", c.config.QueueName, c.config.ExchangeName, err)
	}
	return nil
}

// StartConsuming блокируется, пока не отменен ctx или брокер не закрыл соединение.
// Отмена ctx - штатное завершение, возвращается nil.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.channel == nil || c.connection == nil || c.connection.IsClosed() {
		return fmt.Errorf("consumer: not connected")
	}

	msgs, err := c.channel.Consume(
		c.config.QueueName,
		c.config.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumer %s: failed to register on queue '%s': %w", c.config.ConsumerTag, c.config.QueueName, err)
	}

	notifyClose := c.connection.NotifyClose(make(chan *amqp.Error, 1))
	c.Logger.Info("[*] Waiting for messages on queue", "queue_name", c.config.QueueName)

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Context cancelled. Shutting down consumer.", "consumer_tag", c.config.ConsumerTag)
			return nil

		case amqpErr := <-notifyClose:
			if amqpErr == nil {
				return fmt.Errorf("consumer %s: connection closed", c.config.ConsumerTag)
			}
			c.Logger.Error(amqpErr, "Connection closed for consumer.", "consumer_tag", c.config.ConsumerTag)
			return amqpErr

		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer %s: deliveries channel closed", c.config.ConsumerTag)
			}
			c.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer c.wg.Done()
				c.process(ctx, delivery)
			}(d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	// обработка начатого сообщения не прерывается остановкой потребителя
	handlerCtx := context.WithoutCancel(ctx)

	if err := c.handler(handlerCtx, d); err != nil {
		c.Logger.Error(err, "Handler error for message. Nacking without requeue.",
			"consumer_tag", c.config.ConsumerTag,
			"delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
	c.Logger.Debug("[+] Message Ack'd", "consumer_tag", c.config.ConsumerTag, "delivery_tag", d.DeliveryTag)
}

// Close дожидается активных обработчиков и закрывает канал
func (c *Consumer) Close() error {
	c.Logger.Debug("Waiting for message handlers to finish...")
	c.wg.Wait()

	var err error
	if c.channel != nil {
		if err = c.channel.Close(); err != nil {
			c.Logger.Error(err, "Error closing channel")
		}
		c.channel = nil
	}
	c.Logger.Info("Consumer closed")
	return err
}
