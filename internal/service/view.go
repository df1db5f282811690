package service

import (
	"fmt"
	"sort"
	"strings"

	"daily-tracker/internal/model"
)

// StatusFilter selects activities by their done flag.
type StatusFilter string

const (
	FilterAll     StatusFilter = "all"
	FilterPending StatusFilter = "pending"
	FilterDone    StatusFilter = "done"
)

func ParseStatusFilter(raw string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending:
		return FilterPending, nil
	case FilterDone:
		return FilterDone, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q, expected all, pending or done", raw)
	}
}

func (f StatusFilter) keep(a model.Activity) bool {
	switch f {
	case FilterPending:
		return !a.Done
	case FilterDone:
		return a.Done
	default:
		return true
	}
}

// SortOrder orders activities by task name.
type SortOrder string

const (
	SortDefault SortOrder = "default"
	SortAsc     SortOrder = "asc"
	SortDesc    SortOrder = "desc"
)

// Next cycles default -> asc -> desc -> default.
func (o SortOrder) Next() SortOrder {
	switch o {
	case SortAsc:
		return SortDesc
	case SortDesc:
		return SortDefault
	default:
		return SortAsc
	}
}

// ApplyView filters activities and then sorts the filtered subset. The input
// slice is left untouched. Equal names keep their relative order.
func ApplyView(activities []model.Activity, filter StatusFilter, order SortOrder) []model.Activity {
	out := make([]model.Activity, 0, len(activities))
	for _, a := range activities {
		if filter.keep(a) {
			out = append(out, a)
		}
	}

	if order != SortAsc && order != SortDesc {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		a := strings.ToUpper(out[i].Task)
		b := strings.ToUpper(out[j].Task)
		if order == SortAsc {
			return a < b
		}
		return a > b
	})
	return out
}
