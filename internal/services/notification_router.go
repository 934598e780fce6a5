package services

import (
	"fmt"
	"log/slog"
	"time"

	"eventpass/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/lithammer/shortuuid/v3"
)

type NotificationRouterDeps struct {
	Logger     watermill.LoggerAdapter
	Subscriber message.Subscriber
	Mailer     Mailer
	AppURL     string

	MaxRetries      int
	InitialInterval time.Duration
}

// NewNotificationRouter consumes ticket notifications and turns them into emails. A message that
// still fails after the retries is logged and acknowledged so one bad address cannot block the
// stream.
func NewNotificationRouter(deps NotificationRouterDeps) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	maxRetries := deps.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	interval := deps.InitialInterval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}

	router.AddMiddleware(correlationIDMiddleware)
	router.AddMiddleware(dropFailedMiddleware)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      maxRetries,
		InitialInterval: interval,
		MaxInterval:     10 * interval,
		Multiplier:      2,
		Logger:          deps.Logger,
	}.Middleware)

	router.AddNoPublisherHandler(
		"mail-ticket-approved",
		models.TopicTicketApproved,
		deps.Subscriber,
		handleTicketApproved(deps.Mailer, deps.AppURL),
	)
	router.AddNoPublisherHandler(
		"mail-ticket-rejected",
		models.TopicTicketRejected,
		deps.Subscriber,
		handleTicketRejected(deps.Mailer, deps.AppURL),
	)

	return router, nil
}

func correlationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		msg.SetContext(ContextWithCorrelationID(msg.Context(), correlationID))

		return next(msg)
	}
}

func dropFailedMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := next(msg)
		if err != nil {
			slog.Error("Notification dropped after retries",
				"message_uuid", msg.UUID,
				"type", msg.Metadata.Get("type"),
				"correlation_id", CorrelationIDFromContext(msg.Context()),
				"error", err,
			)
			return nil, nil
		}
		return msgs, nil
	}
}

func handleTicketApproved(mailer Mailer, appURL string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var evt models.TicketApproved
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		html, err := RenderMail(approvedMailTemplate, map[string]any{
			"Name":       evt.HolderName,
			"TicketType": evt.TicketType,
			"TicketURL":  fmt.Sprintf("%s/tickets/%s", appURL, evt.TicketID),
		})
		if err != nil {
			return err
		}

		return mailer.Send(msg.Context(), evt.Email, "Your ticket is confirmed", html)
	}
}

func handleTicketRejected(mailer Mailer, appURL string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var evt models.TicketRejected
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		html, err := RenderMail(rejectedMailTemplate, map[string]any{
			"Name":     evt.HolderName,
			"Reason":   evt.Reason,
			"RetryURL": fmt.Sprintf("%s/tickets", appURL),
		})
		if err != nil {
			return err
		}

		return mailer.Send(msg.Context(), evt.Email, "We could not verify your payment", html)
	}
}
