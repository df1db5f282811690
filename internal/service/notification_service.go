package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
)

// Sender delivers a fired reminder to its owner.
type Sender interface {
	SendReminder(ownerID int64, title, body string) error
}

// UserLookup resolves the reminder permission of an owner.
type UserLookup interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// OneShotScheduler runs a job once at a given instant.
type OneShotScheduler interface {
	ScheduleOnce(at time.Time, job func()) (cron.EntryID, error)
}

// NotificationService is the reminder subsystem shared by all owners.
type NotificationService struct {
	scheduler OneShotScheduler
	users     UserLookup
	log       *slog.Logger

	mu     sync.RWMutex
	sender Sender
}

func NewNotificationService(scheduler OneShotScheduler, users UserLookup, log *slog.Logger) *NotificationService {
	return &NotificationService{scheduler: scheduler, users: users, log: log}
}

// Attach sets the delivery channel. Reminders firing before Attach are
// dropped and logged.
func (s *NotificationService) Attach(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// ForOwner returns the notifier of one Telegram user.
func (s *NotificationService) ForOwner(ownerID int64) Notifier {
	return &ownerNotifier{svc: s, owner: ownerID}
}

func (s *NotificationService) permission(ctx context.Context, owner int64) (Permission, error) {
	user, err := s.users.FindByTelegramID(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PermissionDenied, nil
		}
		return PermissionDenied, fmt.Errorf("find user %d: %w", owner, err)
	}
	if user.RemindersMuted {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

func (s *NotificationService) deliver(owner int64, id, title, body string) {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()

	if sender == nil {
		s.log.Error("reminder fired without sender", "owner", owner, "notification", id)
		metrics.RecordDelivery("failed")
		return
	}
	if err := sender.SendReminder(owner, title, body); err != nil {
		s.log.Error("deliver reminder", "owner", owner, "notification", id, "err", err)
		metrics.RecordDelivery("failed")
		return
	}
	s.log.Info("reminder delivered", "owner", owner, "notification", id)
	metrics.RecordDelivery("sent")
}

type ownerNotifier struct {
	svc   *NotificationService
	owner int64
}

// RequestPermission reports the stored permission. Starting the bot is the
// opt-in; /notify changes it afterwards.
func (n *ownerNotifier) RequestPermission(ctx context.Context) (Permission, error) {
	return n.svc.permission(ctx, n.owner)
}

func (n *ownerNotifier) Permission(ctx context.Context) (Permission, error) {
	return n.svc.permission(ctx, n.owner)
}

func (n *ownerNotifier) ScheduleOneShot(_ context.Context, title, body string, at time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := n.svc.scheduler.ScheduleOnce(at, func() {
		n.svc.deliver(n.owner, id, title, body)
	}); err != nil {
		return "", fmt.Errorf("schedule notification: %w", err)
	}
	return id, nil
}
