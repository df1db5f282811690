package bot

import (
	"fmt"
	"html"
	"strings"

	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

func formatList(activities []model.Activity, view viewState) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Activities</b> · %s · %s\n\n", filterLabel(view.filter), sortLabel(view.order)))

	if len(activities) == 0 {
		if view.filter == service.FilterAll {
			builder.WriteString("No activities yet. Add one with /new.")
		} else {
			builder.WriteString("No activities match this filter.")
		}
		return builder.String()
	}

	for _, a := range activities {
		builder.WriteString(formatActivity(a))
	}
	return strings.TrimSpace(builder.String())
}

func formatActivity(a model.Activity) string {
	icon := "⬜"
	if a.Done {
		icon = "✅"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s\n", icon, escape(a.Task), categoryLabel(a.Category)))
	b.WriteString(fmt.Sprintf("   🕒 %s · ⏱ %s\n", escape(a.Time), service.FormatMinutes(int(a.Duration))))
	b.WriteString(fmt.Sprintf("   🆔 <code>%s</code>\n\n", escape(a.ID)))
	return b.String()
}

func formatAddResult(res service.AddResult) string {
	a := res.Activity
	var summary strings.Builder
	summary.WriteString("✅ <b>Activity saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Task:</b> %s\n", escape(a.Task)))
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", categoryLabel(a.Category)))
	summary.WriteString(fmt.Sprintf("• <b>Duration:</b> %s\n", service.FormatMinutes(int(a.Duration))))
	summary.WriteString(fmt.Sprintf("• <b>When:</b> %s\n", escape(a.Time)))
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", escape(a.ID)))

	if res.PastSchedule {
		summary.WriteString("\n⚠️ This time has already passed. The activity was saved anyway.\n")
	}

	switch res.Reminder {
	case service.ReminderScheduled:
		summary.WriteString("\n🔔 Reminder scheduled.")
	case service.ReminderDenied:
		summary.WriteString("\n🔕 Reminders are off, no reminder was scheduled. Use /notify on.")
	case service.ReminderPast:
		if !res.PastSchedule {
			summary.WriteString("\n🔕 The reminder time has already passed, no reminder was scheduled.")
		}
	case service.ReminderFailed:
		summary.WriteString("\n⚠️ The reminder could not be scheduled.")
	}
	return strings.TrimSpace(summary.String())
}

func filterLabel(f service.StatusFilter) string {
	switch f {
	case service.FilterPending:
		return "Pending"
	case service.FilterDone:
		return "Done"
	default:
		return "All"
	}
}

func sortLabel(o service.SortOrder) string {
	switch o {
	case service.SortAsc:
		return "A→Z"
	case service.SortDesc:
		return "Z→A"
	default:
		return "as added"
	}
}

func categoryLabel(c model.Category) string {
	icon := "📚"
	if c == model.CategoryTraining {
		icon = "🏋️"
	}
	return fmt.Sprintf("<i>%s %s</i>", icon, escape(string(c)))
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
