package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-tracker/internal/model"
)

// KVRepository stores opaque string values under string keys.
type KVRepository struct {
	db *gorm.DB
}

func NewKVRepository(db *gorm.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get returns the value stored under key. The boolean is false when the key
// has never been written.
func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry model.Entry
	err := r.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	switch {
	case err == nil:
		return entry.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
}

// Set overwrites the value under key in a single upsert statement.
func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	entry := model.Entry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}
