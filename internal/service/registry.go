package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NotifierSource hands out the notifier of an owner.
type NotifierSource interface {
	ForOwner(ownerID int64) Notifier
}

// SessionRegistry keeps one loaded SessionManager per owner. Every owner's
// collection lives under "<prefix>:<owner id>".
type SessionRegistry struct {
	storage       Storage
	prefix        string
	notifications NotifierSource
	now           func() time.Time
	loc           *time.Location
	log           *slog.Logger

	mu       sync.Mutex
	managers map[int64]*SessionManager
}

func NewSessionRegistry(storage Storage, prefix string, notifications NotifierSource, loc *time.Location, log *slog.Logger) *SessionRegistry {
	return &SessionRegistry{
		storage:       storage,
		prefix:        prefix,
		notifications: notifications,
		now:           time.Now,
		loc:           loc,
		log:           log,
		managers:      make(map[int64]*SessionManager),
	}
}

// StorageKey is the key the collection of ownerID is stored under.
func (r *SessionRegistry) StorageKey(ownerID int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, ownerID)
}

// For returns the manager of ownerID, loading it on first use. A failed load
// is not cached so the next call retries.
func (r *SessionRegistry) For(ctx context.Context, ownerID int64) (*SessionManager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.managers[ownerID]; ok {
		return m, nil
	}

	var reminders *ReminderScheduler
	if r.notifications != nil {
		reminders = NewReminderScheduler(r.notifications.ForOwner(ownerID), r.now, r.log)
	}
	key := r.StorageKey(ownerID)
	m := NewSessionManager(NewSessionStore(r.storage, key), reminders, r.now, r.loc, r.log.With("owner", ownerID))
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	r.log.Debug("session collection loaded", "store", key, "count", len(m.Activities()))
	r.managers[ownerID] = m
	return m, nil
}
