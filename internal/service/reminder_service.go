package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"daily-tracker/internal/metrics"
)

// ReminderTitle is the title of every reminder notification.
const ReminderTitle = "Activity reminder"

// Permission is the state of the reminder permission.
type Permission int

const (
	PermissionDenied Permission = iota
	PermissionGranted
)

func (p Permission) String() string {
	if p == PermissionGranted {
		return "granted"
	}
	return "denied"
}

// Notifier is the notification subsystem of one owner.
type Notifier interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Permission(ctx context.Context) (Permission, error)
	ScheduleOneShot(ctx context.Context, title, body string, at time.Time) (string, error)
}

// Lead is how long before an activity its reminder fires.
type Lead struct {
	Hours   int
	Minutes int
}

// ParseLead reads reminder hours and minutes input fields.
func ParseLead(hours, minutes string) Lead {
	return Lead{Hours: ParseCount(hours), Minutes: ParseCount(minutes)}
}

func (l Lead) Total() time.Duration {
	return time.Duration(l.Hours*60+l.Minutes) * time.Minute
}

// TriggerTime is the instant a reminder for target fires.
func TriggerTime(target time.Time, lead Lead) time.Time {
	return target.Add(-lead.Total())
}

// ReminderOutcome reports what Schedule did.
type ReminderOutcome string

const (
	ReminderScheduled ReminderOutcome = "scheduled"
	ReminderNoLead    ReminderOutcome = "no_lead"
	ReminderDenied    ReminderOutcome = "denied"
	ReminderPast      ReminderOutcome = "past"
	ReminderFailed    ReminderOutcome = "failed"
)

// ReminderScheduler turns an activity and a lead into a one-shot notification.
type ReminderScheduler struct {
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewReminderScheduler(notifier Notifier, now func() time.Time, log *slog.Logger) *ReminderScheduler {
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{notifier: notifier, now: now, log: log}
}

// RequestPermission asks the notification subsystem for permission and
// returns the resulting state.
func (s *ReminderScheduler) RequestPermission(ctx context.Context) (Permission, error) {
	perm, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		return PermissionDenied, err
	}
	s.log.Debug("reminder permission", "permission", perm)
	return perm, nil
}

// Schedule requests a reminder for title at target minus lead. It never
// fails: skipped and failed requests are reported through the outcome and
// the log only.
func (s *ReminderScheduler) Schedule(ctx context.Context, title string, target time.Time, lead Lead) ReminderOutcome {
	outcome := s.schedule(ctx, title, target, lead)
	metrics.RecordReminder(string(outcome))
	return outcome
}

func (s *ReminderScheduler) schedule(ctx context.Context, title string, target time.Time, lead Lead) ReminderOutcome {
	if lead.Total() <= 0 {
		return ReminderNoLead
	}

	perm, err := s.notifier.Permission(ctx)
	if err != nil {
		s.log.Warn("reminder permission check failed", "task", title, "err", err)
		return ReminderDenied
	}
	if perm != PermissionGranted {
		s.log.Debug("reminder skipped", "task", title, "permission", perm)
		return ReminderDenied
	}

	trigger := TriggerTime(target, lead)
	if !trigger.After(s.now()) {
		s.log.Debug("reminder skipped, trigger passed", "task", title, "trigger", trigger)
		return ReminderPast
	}

	body := fmt.Sprintf("%s starts soon (reminder %dh %dm)!", title, lead.Hours, lead.Minutes)
	id, err := s.notifier.ScheduleOneShot(ctx, ReminderTitle, body, trigger)
	if err != nil {
		s.log.Error("schedule reminder", "task", title, "trigger", trigger, "err", err)
		return ReminderFailed
	}

	s.log.Info("reminder scheduled", "task", title, "trigger", trigger, "notification", id)
	return ReminderScheduled
}
