package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/lithammer/shortuuid/v3"
)

type Notification interface {
	Topic() string
}

// Notifier hands a notification to the delivery pipeline. It never sends mail itself.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

type correlationIDKey struct{}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// StreamNotifier publishes notifications as watermill messages, one topic per notification type.
type StreamNotifier struct {
	publisher message.Publisher
}

func NewStreamNotifier(publisher message.Publisher) *StreamNotifier {
	return &StreamNotifier{publisher: publisher}
}

func (n *StreamNotifier) Publish(ctx context.Context, evt Notification) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling notification: %w", err)
	}

	correlationID := CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = "gen_" + shortuuid.New()
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	middleware.SetCorrelationID(correlationID, msg)
	msg.Metadata.Set("type", evt.Topic())

	if err := n.publisher.Publish(evt.Topic(), msg); err != nil {
		return fmt.Errorf("publishing %s: %w", evt.Topic(), err)
	}
	return nil
}
