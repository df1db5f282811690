package service

import "errors"

var (
	ErrValidation       = errors.New("fill in the task and a valid duration (hours or minutes)")
	ErrActivityNotFound = errors.New("activity not found")
	ErrCorruptSessions  = errors.New("stored activities are corrupted")
)
