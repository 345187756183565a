// Package events publishes interview session updates to RabbitMQ so another
// process can render the session.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/mockinterview/internal/interview"
)

// Exchange is the topic exchange updates are published to.
const Exchange = "session_updates"

// Kinds of update.
const (
	KindState     = "state"
	KindCountdown = "countdown"
	KindError     = "error"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Update is the JSON body of every published message.
type Update struct {
	SessionID string              `json:"session_id"`
	Kind      string              `json:"kind"`
	Status    interview.Status    `json:"status,omitempty"`
	Message   string              `json:"message,omitempty"`
	Countdown *int                `json:"countdown,omitempty"`
	Snapshot  *interview.Snapshot `json:"snapshot,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Publisher is an interview.EventSink for a single session. Draft changes
// are not published.
type Publisher struct {
	mu        sync.Mutex
	ch        Channel
	sessionID string
	status    interview.Status
	now       func() time.Time
}

var _ interview.EventSink = (*Publisher)(nil)

// Open creates a channel on conn and declares the exchange.
func Open(conn *amqp.Connection, sessionID string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	p, err := New(ch, sessionID)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return p, nil
}

// New declares the exchange on ch and returns a publisher for sessionID.
func New(ch Channel, sessionID string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}
	return &Publisher{ch: ch, sessionID: sessionID, now: time.Now}, nil
}

// RoutingKey returns the key updates for sessionID are published with.
func RoutingKey(sessionID string) string {
	return fmt.Sprintf("session.%s", sessionID)
}

func (p *Publisher) StateChanged(s interview.Snapshot) {
	p.mu.Lock()
	changed := s.Status != p.status
	p.status = s.Status
	p.mu.Unlock()

	u := Update{Kind: KindState, Status: s.Status, Snapshot: &s}
	if changed {
		u.Message = statusMessage(s)
	}
	p.publish(u)
}

func (p *Publisher) CountdownTick(remaining int) {
	p.publish(Update{Kind: KindCountdown, Countdown: &remaining})
}

func (p *Publisher) DraftChanged(string) {}

func (p *Publisher) SessionError(code interview.ErrorCode, detail string) {
	p.publish(Update{Kind: KindError, Message: fmt.Sprintf("%s: %s", code, detail)})
}

// Close closes the underlying channel.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) publish(u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u.SessionID = p.sessionID
	u.Timestamp = p.now()
	body, err := json.Marshal(u)
	if err != nil {
		log.Println("failed to marshal update:", err)
		return
	}
	err = p.ch.Publish(
		Exchange,
		RoutingKey(p.sessionID),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   u.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		log.Println("failed to publish update:", err)
	}
}

func statusMessage(s interview.Snapshot) string {
	switch s.Status {
	case interview.StatusAwaitingQuestion:
		return fmt.Sprintf("generating question %d of %d", s.QuestionIndex+1, s.TurnLimit)
	case interview.StatusAwaitingAnswer:
		return fmt.Sprintf("question %d of %d asked", s.QuestionIndex+1, s.TurnLimit)
	case interview.StatusScoring:
		return "scoring answer"
	case interview.StatusCooldown:
		return "answer scored"
	case interview.StatusEvaluating:
		return "final evaluation started"
	case interview.StatusComplete:
		return "interview completed"
	case interview.StatusClosed:
		return "interview closed"
	default:
		return string(s.Status)
	}
}
