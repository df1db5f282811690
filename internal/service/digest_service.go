package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"daily-tracker/internal/model"
)

// DigestService builds the periodic HTML report of a user's activities.
type DigestService struct {
	registry *SessionRegistry
	loc      *time.Location
}

func NewDigestService(registry *SessionRegistry, loc *time.Location) *DigestService {
	return &DigestService{registry: registry, loc: loc}
}

// DailySummary loads the collection of user and renders it.
func (s *DigestService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	manager, err := s.registry.For(ctx, user.TelegramID)
	if err != nil {
		return "", err
	}
	return Digest(manager.Activities(), now.In(s.loc)), nil
}

type scheduledActivity struct {
	model.Activity
	at    time.Time
	valid bool
}

// Digest lists pending activities by scheduled time and counts the done ones.
func Digest(activities []model.Activity, now time.Time) string {
	var pending []scheduledActivity
	done := 0
	for _, a := range activities {
		if a.Done {
			done++
			continue
		}
		at, err := time.ParseInLocation(model.DisplayTimeLayout, a.Time, now.Location())
		pending = append(pending, scheduledActivity{Activity: a, at: at, valid: err == nil})
	}

	sort.SliceStable(pending, func(i, j int) bool {
		switch {
		case !pending[i].valid:
			return false
		case !pending[j].valid:
			return true
		default:
			return pending[i].at.Before(pending[j].at)
		}
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Activity report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02/01/2006")))

	builder.WriteString("🔥 <b>Pending</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing pending\n")
	} else {
		for _, a := range pending {
			builder.WriteString(formatPending(a, now))
		}
	}

	builder.WriteString(fmt.Sprintf("\n✅ Done: %d of %d", done, len(activities)))
	return builder.String()
}

func formatPending(a scheduledActivity, now time.Time) string {
	icon := "🟢"
	if a.valid {
		switch {
		case now.After(a.at):
			icon = "⚠️"
		case a.at.Sub(now) <= 2*time.Hour:
			icon = "⏳"
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>", icon, html.EscapeString(a.Task), html.EscapeString(string(a.Category))))
	sb.WriteString(fmt.Sprintf("\n   ⏰ %s · %s", html.EscapeString(a.Time), FormatMinutes(int(a.Duration))))
	if a.valid && now.After(a.at) {
		sb.WriteString(" — <b>overdue</b>")
	}
	sb.WriteByte('\n')
	return sb.String()
}
