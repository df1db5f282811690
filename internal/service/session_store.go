package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"daily-tracker/internal/model"
)

// Storage is the key-value contract the session store persists through.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// SessionStore keeps the whole activity collection under one key.
type SessionStore struct {
	storage Storage
	key     string
	mirror  []model.Activity
}

func NewSessionStore(storage Storage, key string) *SessionStore {
	return &SessionStore{storage: storage, key: key}
}

func (s *SessionStore) Key() string {
	return s.key
}

// Load reads the collection. A missing or blank value is an empty
// collection; a value that does not decode is an error, never empty.
func (s *SessionStore) Load(ctx context.Context) ([]model.Activity, error) {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		s.mirror = nil
		return []model.Activity{}, nil
	}

	var activities []model.Activity
	if err := json.Unmarshal([]byte(raw), &activities); err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", ErrCorruptSessions, s.key, err)
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	s.mirror = cloneActivities(activities)
	return activities, nil
}

// Save overwrites the stored collection and replaces the mirror once the
// write succeeded.
func (s *SessionStore) Save(ctx context.Context, activities []model.Activity) error {
	if activities == nil {
		activities = []model.Activity{}
	}
	raw, err := json.Marshal(activities)
	if err != nil {
		return fmt.Errorf("encode activities: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("save activities: %w", err)
	}
	s.mirror = cloneActivities(activities)
	return nil
}

// Snapshot returns a copy of the last loaded or saved collection.
func (s *SessionStore) Snapshot() []model.Activity {
	return cloneActivities(s.mirror)
}

func cloneActivities(src []model.Activity) []model.Activity {
	out := make([]model.Activity, len(src))
	copy(out, src)
	return out
}
