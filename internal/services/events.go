package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticket-marketplace/internal/logging"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	TopicTicketsPurchased = "tickets.purchased"
	TopicTicketValidated  = "tickets.validated"
)

// EventHeader is carried by every published domain event
type EventHeader struct {
	ID          string `json:"id"`
	PublishedAt string `json:"published_at"`
}

// TicketsPurchased is published after a checkout has been recorded
type TicketsPurchased struct {
	Header    EventHeader    `json:"header"`
	OrderID   string         `json:"order_id"`
	Reference string         `json:"reference"`
	SessionID string         `json:"session_id"`
	Lines     []CheckoutLine `json:"lines"`
	TicketIDs []string       `json:"ticket_ids"`
	Total     int            `json:"total"`
}

// TicketValidated is published the first time a ticket is validated
type TicketValidated struct {
	Header      EventHeader `json:"header"`
	TicketID    string      `json:"ticket_id"`
	EventID     string      `json:"event_id"`
	ValidatedAt time.Time   `json:"validated_at"`
}

// NewEventHeader stamps a fresh header
func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          watermill.NewUUID(),
		PublishedAt: time.Now().Format(time.RFC3339Nano),
	}
}

// EventBus marshals domain events to JSON and publishes them on a watermill publisher
type EventBus struct {
	publisher message.Publisher
}

// NewEventBus creates a bus on publisher
func NewEventBus(publisher message.Publisher) *EventBus {
	return &EventBus{publisher: publisher}
}

// Publish sends payload to topic
func (b *EventBus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("type", topic)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// PubSub bundles the publisher and subscriber of one transport
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both sides of the transport
func (p *PubSub) Close() error {
	if err := p.Publisher.Close(); err != nil {
		return err
	}
	return p.Subscriber.Close()
}

// NewPubSub returns a redis stream transport when client is set and an
// in-process channel otherwise.
func NewPubSub(client *redis.Client, consumerGroup string, logger watermill.LoggerAdapter) (*PubSub, error) {
	if client == nil {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch}, nil
	}

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}

	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
	}, logger)
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("failed to create redis stream subscriber: %w", err)
	}

	return &PubSub{Publisher: pub, Subscriber: sub}, nil
}

// NewAuditRouter builds a watermill router that writes every domain event to the log
func NewAuditRouter(subscriber message.Subscriber, logger *logrus.Entry) (*message.Router, error) {
	wmLogger := logging.NewWatermillAdapter(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
	)

	router.AddNoPublisherHandler("audit_tickets_purchased", TopicTicketsPurchased, subscriber, func(msg *message.Message) error {
		var event TicketsPurchased
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"order_id":  event.OrderID,
			"reference": event.Reference,
			"tickets":   len(event.TicketIDs),
			"total":     event.Total,
		}).Info("Tickets purchased")
		return nil
	})

	router.AddNoPublisherHandler("audit_ticket_validated", TopicTicketValidated, subscriber, func(msg *message.Message) error {
		var event TicketValidated
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"ticket_id": event.TicketID,
			"event_id":  event.EventID,
		}).Info("Ticket validated")
		return nil
	})

	return router, nil
}
