package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/jules-cli/internal/application"
	"github.com/bnema/jules-cli/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

// ViewData is everything the status view can show; nil sections are
// omitted.
type ViewData struct {
	Sessions []domain.Session
	Watch    *application.WatchStatus
	Cache    *domain.CacheStats
}

func renderView(data ViewData, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Jules Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(data.Sessions))),
	}

	if len(data.Sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions. Start one with 'jules sessions new'."))
	}
	for _, session := range data.Sessions {
		lines = append(lines, renderSession(session, opts, s))
	}

	if data.Watch != nil {
		lines = append(lines, s.section.Render(renderWatch(*data.Watch, opts, s)))
	}
	if data.Cache != nil {
		lines = append(lines, s.section.Render(renderCacheStats(*data.Cache, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session domain.Session, opts RenderOptions, s styles) string {
	parts := []string{
		stateBadge(session.State, s),
		" ",
		s.session.Render(sessionTitle(session)),
		"  ",
		s.meta.Render(session.ID()),
	}

	if updated := formatRelative(session.UpdateTime, opts.Now); updated != "" {
		parts = append(parts, "  ", s.meta.Render(updated))
	}
	if pr := pullRequestURL(session); pr != "" {
		parts = append(parts, "  ", s.detail.Render(pr))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderWatch(watch application.WatchStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Watching " + watch.SessionName),
	}

	state := s.detail.Render("state: ")
	if watch.State != "" {
		state += stateBadge(watch.State, s)
	} else {
		state += s.empty.Render("unknown")
	}
	lines = append(lines, state)

	lines = append(lines, s.detail.Render(fmt.Sprintf("new activities: %d", watch.NewActivityCount)))
	if !watch.LastSyncedAt.IsZero() && !opts.Now.IsZero() {
		lines = append(lines, s.meta.Render("last sync "+relativeDuration(opts.Now.Sub(watch.LastSyncedAt))+" ago"))
	}
	if watch.Phase == domain.PhaseWaiting {
		lines = append(lines, s.warning.Render("session is waiting on you"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCacheStats(stats domain.CacheStats, s styles) string {
	lines := []string{
		s.title.Render("Cache"),
		statLine(s, "entries", fmt.Sprintf("%d", stats.EntryCount)),
		statLine(s, "size", formatBytes(stats.TotalSizeBytes)),
		statLine(s, "hit rate", fmt.Sprintf("%.0f%% (%d hits, %d misses)",
			stats.HitRate()*100, stats.HitCount, stats.MissCount)),
	}
	if !stats.LastPrunedAt.IsZero() {
		lines = append(lines, statLine(s, "last prune", stats.LastPrunedAt.Format(time.RFC3339)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func statLine(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.statKey.Render(key+": "), s.detail.Render(value))
}

// RenderActivityLines formats an activity log for plain terminal
// output, oldest first.
func RenderActivityLines(activities []domain.Activity) []string {
	s := newStyles()
	lines := make([]string, 0, len(activities))
	for _, activity := range activities {
		lines = append(lines, renderActivity(activity, s))
	}
	return lines
}

func renderActivity(activity domain.Activity, s styles) string {
	label := activityLabel(activity.Kind())
	style := s.agent
	if activity.Kind() == domain.ActivityUserMessage {
		style = s.actor
	}

	parts := []string{style.Render(label)}
	if summary := activity.Summary(); summary != "" {
		parts = append(parts, " ", s.detail.Render(summary))
	}
	if activity.CreateTime != "" {
		parts = append(parts, "  ", s.meta.Render(activity.CreateTime))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func activityLabel(kind domain.ActivityKind) string {
	switch kind {
	case domain.ActivityUserMessage:
		return "[you]"
	case domain.ActivityAgentMessage:
		return "[agent]"
	case domain.ActivityPlanGenerated:
		return "[plan]"
	case domain.ActivityPlanApproved:
		return "[approved]"
	case domain.ActivityProgressUpdated:
		return "[progress]"
	case domain.ActivitySessionCompleted:
		return "[done]"
	case domain.ActivitySessionFailed:
		return "[failed]"
	default:
		return "[event]"
	}
}

func stateBadge(state domain.SessionState, s styles) string {
	label := strings.ToLower(string(state))
	switch state {
	case domain.StateCompleted:
		return s.completed.Render(label)
	case domain.StateFailed:
		return s.failed.Render(label)
	default:
		switch state.Phase() {
		case domain.PhaseActive:
			return s.active.Render(label)
		default:
			return s.waiting.Render(label)
		}
	}
}

func sessionTitle(session domain.Session) string {
	if title := strings.TrimSpace(session.Title); title != "" {
		return title
	}
	if prompt := strings.TrimSpace(session.Prompt); prompt != "" {
		if len(prompt) > 60 {
			return prompt[:57] + "..."
		}
		return prompt
	}
	return session.ID()
}

func pullRequestURL(session domain.Session) string {
	for _, output := range session.Outputs {
		if output.PullRequest != nil && output.PullRequest.URL != "" {
			return output.PullRequest.URL
		}
	}
	return ""
}

func formatRelative(rfc3339 string, now time.Time) string {
	if rfc3339 == "" || now.IsZero() {
		return ""
	}
	at, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return ""
	}
	if at.After(now) {
		return "just now"
	}
	return relativeDuration(now.Sub(at)) + " ago"
}

func relativeDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "moments"
	case d < time.Hour:
		minutes := int(math.Round(d.Minutes()))
		return fmt.Sprintf("%dm", minutes)
	case d < 24*time.Hour:
		hours := int(math.Round(d.Hours()))
		return fmt.Sprintf("%dh", hours)
	default:
		days := int(math.Round(d.Hours() / 24))
		return fmt.Sprintf("%dd", days)
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
