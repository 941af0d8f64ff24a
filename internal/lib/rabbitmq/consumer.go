package rabbitmq

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
)

// Message событие, полученное из очереди.
type Message struct {
	RoutingKey string
	Body       []byte
}

// ConsumeMessages читает очередь и передаёт сообщения в handler, пока не отменён ctx.
// Сообщение подтверждается, если handler вернул nil, иначе возвращается в очередь.
func ConsumeMessages(ctx context.Context, ch *amqp.Channel, queueName string, handler func(Message) error) error {
	const op = "rabbitmq.ConsumeMessages"
	deliveries, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}
			if err := handler(Message{RoutingKey: d.RoutingKey, Body: d.Body}); err != nil {
				if nackErr := d.Nack(false, true); nackErr != nil {
					return fmt.Errorf("%s: nack: %w", op, nackErr)
				}
				continue
			}
			if ackErr := d.Ack(false); ackErr != nil {
				return fmt.Errorf("%s: ack: %w", op, ackErr)
			}
		}
	}
}
