package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const defaultBarWidth = 24

type RenderOptions struct {
	Now time.Time
	// BarWidth defaults to 24 cells.
	BarWidth int
	// Tick overrides the countdown carried by the state when it belongs to
	// the same session.
	Tick *domain.CountdownTick
}

func renderView(state domain.SessionState, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(sessionTitle(state.Variant)),
	}

	if state.SessionID == "" {
		lines = append(lines, s.empty.Render("No crawl session running."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.header.Render(fmt.Sprintf("session: %s (", state.SessionID))+s.phase(stateLabel(state))+s.header.Render(")"))
	lines = append(lines, s.section.Render(progressLine(state, opts, s)))
	lines = append(lines, countsLine(state, s))

	if state.CurrentRef != "" && state.Active {
		lines = append(lines, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.key.Render(currentLabel(state.Variant)+":"),
			" ",
			s.ref.Render(string(state.CurrentRef)),
		))
	}

	if line := countdownLine(state, opts, s); line != "" {
		lines = append(lines, line)
	}

	if state.Active && state.TimeRemaining > 0 {
		lines = append(lines, s.meta.Render("remaining: "+formatRemaining(state.TimeRemaining, opts.Now)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionTitle(variant domain.SessionVariant) string {
	switch variant {
	case domain.VariantBatch:
		return "Listing Batches"
	case domain.VariantPageVisit:
		return "Fund Page Visits"
	default:
		return "Crawl Session"
	}
}

func currentLabel(variant domain.SessionVariant) string {
	if variant == domain.VariantBatch {
		return "batch"
	}
	return "item"
}

const (
	phaseActive   = "active"
	phaseStopped  = "stopped"
	phaseFinished = "finished"
)

func stateLabel(state domain.SessionState) string {
	switch {
	case state.Active:
		return phaseActive
	case state.PendingItems > 0 && state.CompletedItems+state.FailedItems < state.TotalItems:
		return phaseStopped
	default:
		return phaseFinished
	}
}

func countsLine(state domain.SessionState, s styles) string {
	failed := s.counts
	if state.FailedItems > 0 {
		failed = s.failures
	}
	return s.counts.Render(fmt.Sprintf("completed: %d  ", state.CompletedItems)) +
		failed.Render(fmt.Sprintf("failed: %d", state.FailedItems)) +
		s.counts.Render(fmt.Sprintf("  pending: %d", state.PendingItems))
}

func progressLine(state domain.SessionState, opts RenderOptions, s styles) string {
	width := opts.BarWidth
	if width <= 0 {
		width = defaultBarWidth
	}

	settled := state.CompletedItems + state.FailedItems
	done := 0.0
	if state.TotalItems > 0 {
		done = float64(settled) / float64(state.TotalItems) * 100
	}

	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(done, 0, 100))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("progress:"),
		" ",
		renderProgressBar(done, width, s),
		" ",
		s.bar.count.Render(fmt.Sprintf("%d/%d", settled, state.TotalItems)),
		" ",
		percentStyle.Render(fmt.Sprintf("%3.0f%%", clampPercent(done))),
	)
}

func countdownLine(state domain.SessionState, opts RenderOptions, s styles) string {
	if !state.Active {
		return ""
	}

	ref := state.NextRef
	seconds := state.CountdownSeconds
	counting := state.CountingDown
	if tick := opts.Tick; tick != nil && tick.SessionID == state.SessionID {
		ref = tick.Ref
		seconds = tick.Seconds()
		counting = true
	}
	if ref == "" {
		return ""
	}

	label := s.key.Render("next:")
	if !counting {
		at := ""
		if !state.NextAt.IsZero() {
			at = " " + s.meta.Render("at "+formatAt(state.NextAt, opts.Now))
		}
		return label + " " + s.counts.Render(string(ref)) + at
	}

	// fades in as the wait runs out
	color := interpolateColor(float64(60-min(seconds, 60)), 0, 60)
	countdown := lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("in %ds", seconds))

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.ref.Render(string(ref)), " ", countdown)
}

func renderProgressBar(donePercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	doneFraction := clampPercent(donePercent) / 100.0
	filled := int(math.Round(float64(width) * doneFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.bar.bracket.Render("["),
		s.bar.fill.Render(strings.Repeat("=", filled)),
		s.bar.rest.Render(strings.Repeat("-", width-filled)),
		s.bar.bracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatAt(at, now time.Time) string {
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04:05")
	}

	return at.Format("15:04:05 on 02 Jan")
}

func formatRemaining(remaining time.Duration, now time.Time) string {
	rounded := remaining.Round(time.Second)
	if rounded < time.Second {
		rounded = time.Second
	}

	if now.IsZero() {
		return "~" + rounded.String()
	}
	return fmt.Sprintf("~%s (ends %s)", rounded, formatAt(now.Add(remaining), now))
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp: 240 faded at min, 255 bright at max
	baseColor := 240.0
	targetColor := 255.0

	interpolated := baseColor + (targetColor-baseColor)*normalized
	colorCode := int(interpolated)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
