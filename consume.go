package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/mockinterview/internal/events"
)

func watch(ctx context.Context, rabbitmqURL, sessionID string, out io.Writer) error {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ. err: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("error connecting to rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if sessionID == "" {
		log.Println("watching updates for all sessions")
	} else {
		log.Printf("watching updates for session %s", sessionID)
	}
	err = events.Watch(ctx, ch, sessionID, func(u events.Update) {
		fmt.Fprintln(out, updateLine(u))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
