package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
)

// AddInput is the form data for a new activity. Hours, minutes and the
// reminder lead are raw input fields.
type AddInput struct {
	Task            string
	Category        model.Category
	Hours           string
	Minutes         string
	Date            time.Time
	Clock           time.Time
	ReminderHours   string
	ReminderMinutes string
}

// AddResult describes a created activity.
type AddResult struct {
	Activity     model.Activity
	ScheduledAt  time.Time
	PastSchedule bool
	Reminder     ReminderOutcome
}

// SessionManager owns the activity collection of one user.
type SessionManager struct {
	mu         sync.Mutex
	store      *SessionStore
	reminders  *ReminderScheduler
	now        func() time.Time
	loc        *time.Location
	log        *slog.Logger
	activities []model.Activity
}

func NewSessionManager(store *SessionStore, reminders *ReminderScheduler, now func() time.Time, loc *time.Location, log *slog.Logger) *SessionManager {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &SessionManager{store: store, reminders: reminders, now: now, loc: loc, log: log}
}

// Load replaces the in-memory collection with the stored one.
func (m *SessionManager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acts, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	m.activities = acts
	return nil
}

// Activities returns the collection in insertion order.
func (m *SessionManager) Activities() []model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneActivities(m.activities)
}

// View returns the filtered and sorted collection.
func (m *SessionManager) View(filter StatusFilter, order SortOrder) []model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ApplyView(m.activities, filter, order)
}

// RequestReminderPermission asks for the reminder permission of the owner.
// Without a reminder scheduler it is always denied.
func (m *SessionManager) RequestReminderPermission(ctx context.Context) (Permission, error) {
	if m.reminders == nil {
		return PermissionDenied, nil
	}
	return m.reminders.RequestPermission(ctx)
}

// Find returns the activity with id.
func (m *SessionManager) Find(id string) (model.Activity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		return m.activities[i], true
	}
	return model.Activity{}, false
}

// Add validates the input, appends a new activity, persists the collection
// and requests its reminder.
func (m *SessionManager) Add(ctx context.Context, in AddInput) (AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := strings.TrimSpace(in.Task)
	total := TotalMinutes(in.Hours, in.Minutes)
	if task == "" || total <= 0 {
		metrics.RecordOperation("add", "invalid")
		return AddResult{}, ErrValidation
	}

	category := in.Category
	if category == "" {
		category = model.CategoryStudy
	}

	now := m.now()
	scheduled := CombineDateTime(in.Date, in.Clock, m.loc)
	past := scheduled.Before(now)
	if past {
		m.log.Warn("activity scheduled in the past", "task", task, "scheduled", scheduled)
	}

	activity := model.Activity{
		ID:       m.nextID(now),
		Task:     task,
		Category: category,
		Duration: model.Minutes(total),
		Time:     scheduled.Format(model.DisplayTimeLayout),
		Done:     false,
	}

	updated := append(cloneActivities(m.activities), activity)
	if err := m.persist(ctx, updated); err != nil {
		metrics.RecordOperation("add", "error")
		return AddResult{}, err
	}
	metrics.RecordOperation("add", "ok")
	m.log.Info("activity created", "store", m.store.Key(), "id", activity.ID, "duration", total)

	outcome := ReminderNoLead
	if m.reminders != nil {
		outcome = m.reminders.Schedule(ctx, task, scheduled, ParseLead(in.ReminderHours, in.ReminderMinutes))
	}

	return AddResult{
		Activity:     activity,
		ScheduledAt:  scheduled,
		PastSchedule: past,
		Reminder:     outcome,
	}, nil
}

// ToggleDone flips the done flag of id. It reports false when id is unknown.
func (m *SessionManager) ToggleDone(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		metrics.RecordOperation("toggle", "not_found")
		return false, nil
	}

	updated := cloneActivities(m.activities)
	updated[i].Done = !updated[i].Done
	if err := m.persist(ctx, updated); err != nil {
		metrics.RecordOperation("toggle", "error")
		return false, err
	}
	metrics.RecordOperation("toggle", "ok")
	return true, nil
}

// Delete removes id. Callers confirm with the user first. It reports false
// when id is unknown.
func (m *SessionManager) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		metrics.RecordOperation("delete", "not_found")
		return false, nil
	}

	updated := make([]model.Activity, 0, len(m.activities)-1)
	updated = append(updated, m.activities[:i]...)
	updated = append(updated, m.activities[i+1:]...)
	if err := m.persist(ctx, updated); err != nil {
		metrics.RecordOperation("delete", "error")
		return false, err
	}
	metrics.RecordOperation("delete", "ok")
	m.log.Info("activity deleted", "store", m.store.Key(), "id", id)
	return true, nil
}

// Edit replaces the task name and duration of id.
func (m *SessionManager) Edit(ctx context.Context, id, task, hours, minutes string) (model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task = strings.TrimSpace(task)
	total := TotalMinutes(hours, minutes)
	if task == "" || total <= 0 {
		metrics.RecordOperation("edit", "invalid")
		return model.Activity{}, ErrValidation
	}

	i := m.indexOf(id)
	if i < 0 {
		metrics.RecordOperation("edit", "not_found")
		return model.Activity{}, ErrActivityNotFound
	}

	updated := cloneActivities(m.activities)
	updated[i].Task = task
	updated[i].Duration = model.Minutes(total)
	if err := m.persist(ctx, updated); err != nil {
		metrics.RecordOperation("edit", "error")
		return model.Activity{}, err
	}
	metrics.RecordOperation("edit", "ok")
	return updated[i], nil
}

func (m *SessionManager) persist(ctx context.Context, updated []model.Activity) error {
	if err := m.store.Save(ctx, updated); err != nil {
		return err
	}
	m.activities = updated
	return nil
}

func (m *SessionManager) indexOf(id string) int {
	for i, a := range m.activities {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// nextID derives an id from the creation time in milliseconds, bumping it
// until it is unused.
func (m *SessionManager) nextID(now time.Time) string {
	n := now.UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if m.indexOf(id) < 0 {
			return id
		}
		n++
	}
}

// CombineDateTime takes the calendar day of date and the hour and minute of
// clock. Seconds are dropped.
func CombineDateTime(date, clock time.Time, loc *time.Location) time.Time {
	date = date.In(loc)
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
}
