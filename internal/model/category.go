package model

import (
	"fmt"
	"strings"
)

// Category groups activities. Only two fixed values exist.
type Category string

const (
	CategoryStudy    Category = "Study"
	CategoryTraining Category = "Training"
)

// Toggle returns the other category.
func (c Category) Toggle() Category {
	if c == CategoryStudy {
		return CategoryTraining
	}
	return CategoryStudy
}

// ParseCategory accepts either category name in any case.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "study":
		return CategoryStudy, nil
	case "training":
		return CategoryTraining, nil
	default:
		return "", fmt.Errorf("unknown category %q", raw)
	}
}
