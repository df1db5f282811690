package model

import "time"

// Entry is one key-value row. The activity collection of a user lives in a
// single entry as a JSON array.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey"`
	Value     string
	UpdatedAt time.Time
}
