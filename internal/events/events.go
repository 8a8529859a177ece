package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/nkiryanov/fuowallet/internal/logger"
	"github.com/nkiryanov/fuowallet/internal/models"
	"github.com/nkiryanov/fuowallet/internal/session"
)

const (
	TopicSessionStarted = "session.started"
	TopicSessionEnded   = "session.ended"
)

type SessionStarted struct {
	Subject   string    `json:"subject"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionEnded struct {
	// One of session.Reason*
	Reason string `json:"reason"`
}

// Publisher announces session lifecycle, it is session.Observer
type Publisher struct {
	publisher message.Publisher
	logger    logger.Logger
}

func NewPublisher(publisher message.Publisher, l logger.Logger) *Publisher {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Publisher{
		publisher: publisher,
		logger:    l,
	}
}

func (p *Publisher) SessionStarted(ctx context.Context, claims session.Claims, profile models.Profile) {
	event := SessionStarted{
		Subject:   claims.Subject,
		UserID:    string(claims.UserID),
		Username:  profile.Username,
		ExpiresAt: claims.ExpiresAtTime().UTC(),
	}

	if err := p.publish(ctx, TopicSessionStarted, event); err != nil {
		p.logger.Warn("Failed to publish session event", "topic", TopicSessionStarted, "error", err)
	}
}

func (p *Publisher) SessionEnded(ctx context.Context, reason string) {
	if err := p.publish(ctx, TopicSessionEnded, SessionEnded{Reason: reason}); err != nil {
		p.logger.Warn("Failed to publish session event", "topic", TopicSessionEnded, "error", err)
	}
}

func (p *Publisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Handlers of session events, nil ones are skipped
type Handlers struct {
	Started func(SessionStarted)
	Ended   func(SessionEnded)
}

// Listen consumes session events until ctx is done
func Listen(ctx context.Context, subscriber message.Subscriber, h Handlers, l logger.Logger) error {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	started, err := subscriber.Subscribe(ctx, TopicSessionStarted)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicSessionStarted, err)
	}

	ended, err := subscriber.Subscribe(ctx, TopicSessionEnded)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicSessionEnded, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-started:
			if !ok {
				return nil
			}
			var event SessionStarted
			if decode(msg, &event, l) && h.Started != nil {
				h.Started(event)
			}

		case msg, ok := <-ended:
			if !ok {
				return nil
			}
			var event SessionEnded
			if decode(msg, &event, l) && h.Ended != nil {
				h.Ended(event)
			}
		}
	}
}

// decode acks message in any case: broken event won't get better on redelivery
func decode(msg *message.Message, v any, l logger.Logger) bool {
	defer msg.Ack()

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		l.Warn("Failed to decode session event", "message_uuid", msg.UUID, "error", err)
		return false
	}

	return true
}
