package cmd

import (
	"context"
	"fmt"
	"strings"

	"eventpass/internal/services"
	"eventpass/models"

	"github.com/spf13/cobra"
)

const cliActorID = "cli"

type reminderSender interface {
	Send(ctx context.Context, actor services.Actor, req services.ReminderRequest) (*services.ReminderReport, error)
}

func newRemindersCommand(reminders reminderSender) *cobra.Command {
	root := &cobra.Command{
		Use:   "reminders",
		Short: "Send reminder emails to ticket holders",
	}

	var (
		subject  string
		body     string
		statuses []string
		eventID  string
	)

	send := &cobra.Command{
		Use:          "send",
		Short:        "Mail every matching holder, spaced by MAIL_SEND_DELAY",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildReminderRequest(subject, body, statuses, eventID)
			if err != nil {
				return err
			}

			actor := services.Actor{ID: cliActorID, Role: services.RoleSuperAdmin}
			report, err := reminders.Send(cmd.Context(), actor, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent %d/%d\n", report.Sent, report.Total)
			for _, email := range report.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "failed: %s\n", email)
			}
			return nil
		},
	}

	send.Flags().StringVar(&subject, "subject", "", "email subject")
	send.Flags().StringVar(&body, "body", "", "email body")
	send.Flags().StringSliceVar(&statuses, "status", []string{string(models.StatusPaid)}, "ticket statuses to include")
	send.Flags().StringVar(&eventID, "event", "", "limit to holders of this event")
	_ = send.MarkFlagRequired("subject")
	_ = send.MarkFlagRequired("body")

	root.AddCommand(send)
	return root
}

func buildReminderRequest(subject, body string, statuses []string, eventID string) (services.ReminderRequest, error) {
	req := services.ReminderRequest{
		EventID: strings.TrimSpace(eventID),
		Subject: strings.TrimSpace(subject),
		Body:    body,
	}
	if req.Subject == "" || strings.TrimSpace(body) == "" {
		return req, fmt.Errorf("subject and body are required")
	}

	for _, s := range statuses {
		st, err := models.ParseStatus(strings.TrimSpace(s))
		if err != nil {
			return req, err
		}
		req.Statuses = append(req.Statuses, st)
	}

	return req, nil
}
