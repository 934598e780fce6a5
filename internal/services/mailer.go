package services

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	"github.com/pocketbase/pocketbase/tools/template"
	circuit "github.com/rubyist/circuitbreaker"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// PocketBaseMailer sends through the app's configured SMTP settings. After a run of consecutive
// failures the breaker opens and sends fail fast until it resets.
type PocketBaseMailer struct {
	app     core.App
	breaker *circuit.Breaker
}

func NewPocketBaseMailer(app core.App, failureThreshold int64) *PocketBaseMailer {
	return &PocketBaseMailer{
		app:     app,
		breaker: circuit.NewConsecutiveBreaker(failureThreshold),
	}
}

func (m *PocketBaseMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	meta := m.app.Settings().Meta
	msg := &mailer.Message{
		From: mail.Address{
			Address: meta.SenderAddress,
			Name:    meta.SenderName,
		},
		To:      []mail.Address{{Address: to}},
		Subject: subject,
		HTML:    html,
	}

	err := m.breaker.Call(func() error {
		return m.app.NewMailClient().Send(msg)
	}, 0)
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

var mailTemplates = template.NewRegistry()

func RenderMail(tpl string, data any) (string, error) {
	html, err := mailTemplates.LoadString(tpl).Render(data)
	if err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return html, nil
}

const approvedMailTemplate = `<p>Hi {{.Name}},</p>
<p>Your payment has been verified and your {{.TicketType}} pass is ready.</p>
<p>Open <a href="{{.TicketURL}}">your ticket</a> to show the QR code at the gate.</p>`

const rejectedMailTemplate = `<p>Hi {{.Name}},</p>
<p>We could not verify your payment.{{if .Reason}} Reason: {{.Reason}}.{{end}}</p>
<p>You can discard this booking and <a href="{{.RetryURL}}">submit a new one</a>.</p>`

const reminderMailTemplate = `<p>Hi {{.Name}},</p>
<p>{{.Body}}</p>`
