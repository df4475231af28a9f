package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// RecentRuns caps the per-run list at the bottom of the view.
	RecentRuns int
}

const defaultRecentRuns = 5

func renderView(records []domain.RunRecord, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("WG-Gesucht Bot Status"),
	}

	if len(records) == 0 {
		lines = append(lines, s.empty.Render("No runs recorded yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	lines = append(lines,
		s.section.Render(renderSummary(records, now, s)),
		s.section.Render(renderLastRun(records[len(records)-1], s)),
		s.section.Render(renderRecentRuns(records, opts, s)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSummary(records []domain.RunRecord, now time.Time, s styles) string {
	var runs24h, messages24h int
	cutoff := now.Add(-24 * time.Hour)
	for _, record := range records {
		if record.StartedAt.After(cutoff) {
			runs24h++
			messages24h += record.MessagesSent
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		s.header.Render("Summary"),
		statLine(s, "Total runs", s.value.Render(fmt.Sprintf("%d", len(records)))),
		statLine(s, "Runs (last 24h)", s.value.Render(fmt.Sprintf("%d", runs24h))),
		statLine(s, "Messages (last 24h)", s.value.Render(fmt.Sprintf("%d", messages24h))),
	)
}

func renderLastRun(record domain.RunRecord, s styles) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		s.header.Render("Last run"),
		statLine(s, "Time", s.value.Render(formatRunTime(record.StartedAt))),
		statLine(s, "Status", statusLabel(record, s)),
		statLine(s, "Messages", s.value.Render(fmt.Sprintf("%d", record.MessagesSent))),
	)
}

func renderRecentRuns(records []domain.RunRecord, opts RenderOptions, s styles) string {
	limit := opts.RecentRuns
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	lines := []string{s.header.Render("Recent runs")}
	for i := len(records) - 1; i >= 0; i-- {
		lines = append(lines, runLine(records[i], s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func runLine(record domain.RunRecord, s styles) string {
	mark := s.good.Render("✓")
	if record.Status != domain.RunStatusSuccess {
		mark = s.bad.Render("✗")
	}

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		mark,
		" ",
		s.meta.Render(formatRunTime(record.StartedAt)),
	)
	if record.DryRun {
		line += " " + s.dry.Render("[DRY]")
	}
	line += " " + s.value.Render(fmt.Sprintf(
		"- Found: %d, New: %d, Sent: %d",
		record.OffersFound, record.OffersNew, record.MessagesSent,
	))
	return line
}

func statusLabel(record domain.RunRecord, s styles) string {
	switch record.Status {
	case domain.RunStatusSuccess:
		return s.good.Render(string(record.Status))
	case domain.RunStatusFailed:
		return s.bad.Render(string(record.Status))
	default:
		return s.value.Render(string(record.Status))
	}
}

// statLine pairs a padded label with an already-rendered value.
func statLine(s styles, label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.label.Render(fmt.Sprintf("%-22s", label+":")),
		value,
	)
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}
