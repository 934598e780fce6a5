package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"eventpass/internal/status"
	"eventpass/models"

	"github.com/lithammer/shortuuid/v3"
)

type ReminderRequest struct {
	EventID  string          `json:"eventId"`
	Statuses []models.Status `json:"statuses"`
	Subject  string          `json:"subject"`
	Body     string          `json:"body"`
}

type ReminderReport struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed []string `json:"failed"`
}

type ReminderService struct {
	recipients RecipientStore
	mailer     Mailer
	locker     Locker
	jobs       JobStore
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewReminderService(recipients RecipientStore, mailer Mailer, locker Locker, jobs JobStore, delay time.Duration) *ReminderService {
	return &ReminderService{
		recipients: recipients,
		mailer:     mailer,
		locker:     locker,
		jobs:       jobs,
		delay:      delay,
		sleep:      sleepContext,
	}
}

// Send mails every selected recipient and reports the outcome. Sends are spaced by the configured
// delay; a failed recipient is recorded and the batch goes on.
func (s *ReminderService) Send(ctx context.Context, actor Actor, req ReminderRequest) (*ReminderReport, error) {
	if !actor.IsSuperAdmin() {
		return nil, status.ErrForbidden
	}

	unlock, err := s.locker.Lock(ctx, reminderLockName(req))
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.run(ctx, req, nil)
}

// Start runs the batch in the background and returns a job id to poll.
func (s *ReminderService) Start(ctx context.Context, actor Actor, req ReminderRequest) (*ReminderJob, error) {
	if !actor.IsSuperAdmin() {
		return nil, status.ErrForbidden
	}

	unlock, err := s.locker.Lock(ctx, reminderLockName(req))
	if err != nil {
		return nil, err
	}

	job := &ReminderJob{
		ID:        shortuuid.New(),
		State:     JobRunning,
		StartedBy: actor.ID,
		Failed:    []string{},
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		unlock()
		return nil, fmt.Errorf("jobs.SaveJob -> %w", err)
	}

	started := job.snapshot()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer unlock()

		report, err := s.run(bg, req, func(r *ReminderReport) {
			job.apply(r)
			if err := s.jobs.SaveJob(bg, job); err != nil {
				slog.Warn("Failed to save reminder progress", "job_id", job.ID, "error", err)
			}
		})

		job.State = JobDone
		if err != nil {
			job.State = JobFailed
			job.Error = err.Error()
		}
		if report != nil {
			job.apply(report)
		}
		if err := s.jobs.SaveJob(bg, job); err != nil {
			slog.Error("Failed to save reminder result", "job_id", job.ID, "error", err)
		}
	}()

	return started, nil
}

func (s *ReminderService) Job(ctx context.Context, actor Actor, id string) (*ReminderJob, error) {
	if !actor.IsAdmin() {
		return nil, status.ErrForbidden
	}
	return s.jobs.GetJob(ctx, id)
}

func (s *ReminderService) run(ctx context.Context, req ReminderRequest, progress func(*ReminderReport)) (*ReminderReport, error) {
	recipients, err := s.recipients.ListRecipients(ctx, req.EventID, recipientStatuses(req.Statuses))
	if err != nil {
		return nil, fmt.Errorf("recipients.ListRecipients -> %w", err)
	}

	report := &ReminderReport{Total: len(recipients), Failed: []string{}}

	for i, r := range recipients {
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return report, err
			}
		}

		html, err := RenderMail(reminderMailTemplate, map[string]any{
			"Name": r.HolderName,
			"Body": req.Body,
		})
		if err == nil {
			err = s.mailer.Send(ctx, r.Email, req.Subject, html)
		}

		if err != nil {
			slog.Warn("Reminder not delivered", "email", r.Email, "error", err)
			report.Failed = append(report.Failed, r.Email)
		} else {
			report.Sent++
		}

		if progress != nil {
			progress(report)
		}
	}

	slog.Info("Reminder batch finished",
		"event_id", req.EventID,
		"total", report.Total,
		"sent", report.Sent,
		"failed", len(report.Failed),
	)

	return report, nil
}

// recipientStatuses applies the paid default and drops repeats, so equivalent requests select
// and lock the same scope.
func recipientStatuses(in []models.Status) []models.Status {
	if len(in) == 0 {
		return []models.Status{models.StatusPaid}
	}

	seen := make(map[models.Status]struct{}, len(in))
	out := make([]models.Status, 0, len(in))
	for _, st := range in {
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out
}

func reminderLockName(req ReminderRequest) string {
	selected := recipientStatuses(req.Statuses)
	statuses := make([]string, len(selected))
	for i, st := range selected {
		statuses[i] = string(st)
	}
	sort.Strings(statuses)

	scope := req.EventID
	if scope == "" {
		scope = "all"
	}
	return fmt.Sprintf("reminders:%s:%s", scope, strings.Join(statuses, ","))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
