package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// Subscriber is the subset of *amqp.Channel used to watch updates.
type Subscriber interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Watch binds a private queue to the updates of sessionID, or of every
// session when sessionID is empty, and calls fn for each update until ctx is
// done or the channel closes.
func Watch(ctx context.Context, ch Subscriber, sessionID string, fn func(Update)) error {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	key := RoutingKey(sessionID)
	if sessionID == "" {
		key = RoutingKey("*")
	}
	if err := ch.QueueBind(q.Name, key, Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to %s: %w", key, err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue name
		"",     // consumer tag
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // arguments
	)
	if err != nil {
		return fmt.Errorf("error consuming rabbitmq message: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var u Update
			if err := json.Unmarshal(msg.Body, &u); err != nil {
				log.Printf("error unmarshalling update body. err: %v", err)
				continue
			}
			fn(u)
		}
	}
}
