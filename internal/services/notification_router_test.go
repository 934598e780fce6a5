package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"eventpass/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMailer struct {
	mailerSpy
	failures atomic.Int32
	calls    atomic.Int32
}

func (m *flakyMailer) Send(ctx context.Context, to, subject, html string) error {
	m.calls.Add(1)
	if m.failures.Load() > 0 {
		m.failures.Add(-1)
		return errors.New("smtp timeout")
	}
	return m.mailerSpy.Send(ctx, to, subject, html)
}

func startRouter(t *testing.T, mailer Mailer) *StreamNotifier {
	t.Helper()

	logger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	router, err := NewNotificationRouter(NotificationRouterDeps{
		Logger:          logger,
		Subscriber:      pubSub,
		Mailer:          mailer,
		AppURL:          "https://tickets.example.com",
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = router.Close()
	})

	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	return NewStreamNotifier(pubSub)
}

func TestNotificationRouter_SendsApprovalMail(t *testing.T) {
	mailer := &mailerSpy{}
	notifier := startRouter(t, mailer)

	err := notifier.Publish(context.Background(), models.TicketApproved{
		Header:     models.NewHeader(),
		TicketID:   "t1",
		HolderName: "Ana",
		Email:      "ana@example.com",
		TicketType: models.TicketDuo,
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(mailer.all()) == 1 }, time.Second, 10*time.Millisecond)

	sent := mailer.all()[0]
	assert.Equal(t, "ana@example.com", sent.To)
	assert.Equal(t, "Your ticket is confirmed", sent.Subject)
	assert.Contains(t, sent.HTML, "https://tickets.example.com/tickets/t1")
	assert.Contains(t, sent.HTML, "duo")
}

func TestNotificationRouter_SendsRejectionMail(t *testing.T) {
	mailer := &mailerSpy{}
	notifier := startRouter(t, mailer)

	err := notifier.Publish(context.Background(), models.TicketRejected{
		Header:     models.NewHeader(),
		TicketID:   "t1",
		HolderName: "Ben",
		Email:      "ben@example.com",
		Reason:     "reference not found",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(mailer.all()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, mailer.all()[0].HTML, "reference not found")
}

func TestNotificationRouter_RetriesTransientFailure(t *testing.T) {
	mailer := &flakyMailer{}
	mailer.failures.Store(1)
	notifier := startRouter(t, mailer)

	require.NoError(t, notifier.Publish(context.Background(), models.TicketApproved{Email: "ana@example.com", TicketID: "t1"}))

	assert.Eventually(t, func() bool { return len(mailer.all()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), mailer.calls.Load())
}

func TestNotificationRouter_DropsAfterRetriesAndKeepsConsuming(t *testing.T) {
	mailer := &flakyMailer{}
	mailer.failures.Store(3)
	notifier := startRouter(t, mailer)

	require.NoError(t, notifier.Publish(context.Background(), models.TicketApproved{Email: "bad@example.com", TicketID: "t1"}))
	assert.Eventually(t, func() bool { return mailer.calls.Load() == 3 }, time.Second, 10*time.Millisecond)

	require.NoError(t, notifier.Publish(context.Background(), models.TicketApproved{Email: "good@example.com", TicketID: "t2"}))
	assert.Eventually(t, func() bool { return len(mailer.all()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "good@example.com", mailer.all()[0].To)
}

func TestStreamNotifier_KeepsCorrelationID(t *testing.T) {
	logger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	messages, err := pubSub.Subscribe(context.Background(), models.TopicTicketApproved)
	require.NoError(t, err)

	ctx := ContextWithCorrelationID(context.Background(), "req-42")
	require.NoError(t, NewStreamNotifier(pubSub).Publish(ctx, models.TicketApproved{TicketID: "t1"}))

	select {
	case msg := <-messages:
		assert.Equal(t, "req-42", msg.Metadata.Get("correlation_id"))
		assert.Equal(t, models.TopicTicketApproved, msg.Metadata.Get("type"))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}
