package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/cardgate-bot/internal/models"
)

// PublishMessage публикует сообщение в обменник с ключом маршрутизации.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// BroadcastPublisher ставит задания рассылки в очередь broadcast.outgoing.
type BroadcastPublisher struct {
	ch *amqp.Channel
}

// NewBroadcastPublisher создает новый экземпляр BroadcastPublisher.
func NewBroadcastPublisher(ch *amqp.Channel) *BroadcastPublisher {
	return &BroadcastPublisher{ch: ch}
}

// PublishBroadcast публикует задание рассылки.
func (p *BroadcastPublisher) PublishBroadcast(_ context.Context, job models.BroadcastJob) error {
	return PublishMessage(p.ch, BroadcastExchange, "outgoing", job)
}
