package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// BroadcastExchange — direct-обменник заданий рассылки.
const BroadcastExchange = "broadcast"

// QueueConfig — пара очередь/ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetBroadcastQueues возвращает топологию очередей рассылки.
func GetBroadcastQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "broadcast.outgoing", RoutingKey: "outgoing"},
	}
}

// SetupChannel открывает канал, объявляет обменник и привязывает
// очереди. Объявления идемпотентны, канал безопасно настраивать из
// нескольких процессов.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		BroadcastExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			BroadcastExchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
