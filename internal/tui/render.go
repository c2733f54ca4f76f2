package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EAF3FF")).
			Background(lipgloss.Color("#1E3A8A")).
			Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B95A7"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
	errorBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FEE2E2")).
			Background(lipgloss.Color("#991B1B")).
			Padding(0, 1)
)

var statusIcons = map[model.AgentState]string{
	model.AgentPending:   "⏳",
	model.AgentCompleted: "✅",
	model.AgentFailed:    "❌",
}

type view struct {
	state     store.State
	connected bool
	now       time.Time
	spin      string
	notice    string
	width     int
}

func render(v view) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("IdeaForge"))
	b.WriteString("  ")
	b.WriteString(renderConnection(v.connected))
	if el := renderElapsed(v.state, v.now); el != "" {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(el))
	}
	b.WriteString("\n\n")

	if h := renderRunHeader(v.state.CurrentRun); h != "" {
		b.WriteString(h)
		b.WriteString("\n\n")
	}
	if v.state.Error != "" {
		b.WriteString(errorBanner.Render("Error: " + v.state.Error))
		b.WriteString("\n\n")
	}

	if agents := renderAgents(v.state, v.spin); agents != "" {
		b.WriteString(agents)
		b.WriteString("\n")
	}
	if usage := renderTokenUsage(v.state.TokenUsage, v.width); usage != "" {
		b.WriteString(usage)
		b.WriteString("\n")
	}
	if ideas := renderIdeas(v.state.Ideas, v.state.TotalIdeas); ideas != "" {
		b.WriteString(ideas)
		b.WriteString("\n")
	}

	footer := keys.help()
	if v.notice != "" {
		footer = v.notice + "  " + footer
	}
	b.WriteString(mutedStyle.Render(footer))
	return b.String()
}

func renderConnection(connected bool) string {
	if connected {
		return okStyle.Render("● connected")
	}
	return errStyle.Render("● reconnecting...")
}

// renderElapsed shows the run timer only while the run is in flight.
func renderElapsed(st store.State, now time.Time) string {
	if st.StartedAt.IsZero() || !st.Loading {
		return ""
	}
	return formatElapsed(st.Elapsed(now))
}

func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if mins := secs / 60; mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

func renderRunHeader(run *model.Run) string {
	if run == nil {
		return ""
	}
	return fmt.Sprintf("%s %s\n%s",
		lipgloss.NewStyle().Bold(true).Render("Run "+run.RunID),
		mutedStyle.Render("("+string(run.Status)+")"),
		mutedStyle.Render(fmt.Sprintf("query: %q  sources: %s  provider: %s",
			run.Query, strings.Join(run.Sources, ", "), run.LLMProvider)),
	)
}

func renderAgents(st store.State, spin string) string {
	if len(st.AgentStatuses) == 0 {
		if st.Loading && st.Error == "" {
			return runningStyle.Render(spin+" Starting agents...") + "\n"
		}
		return ""
	}
	var b strings.Builder
	for _, a := range st.AgentStatuses {
		b.WriteString(renderAgentRow(a, spin))
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

func renderAgentRow(a model.AgentStatus, spin string) string {
	icon, ok := statusIcons[a.Status]
	if a.Status == model.AgentRunning {
		icon = spin
	} else if !ok {
		icon = statusIcons[model.AgentPending]
	}

	style := mutedStyle
	switch a.Status {
	case model.AgentRunning:
		style = runningStyle
	case model.AgentCompleted:
		style = okStyle
	case model.AgentFailed:
		style = errStyle
	}

	row := fmt.Sprintf("%s %-16s %s", icon, a.AgentName, style.Render(string(a.Status)))
	if a.ResultSummary != nil && *a.ResultSummary != "" {
		row += "  " + mutedStyle.Render(*a.ResultSummary)
	}
	if a.ErrorMessage != nil && *a.ErrorMessage != "" {
		row += "  " + errStyle.Render(*a.ErrorMessage)
	}
	if a.DurationSeconds != nil {
		row += "  " + mutedStyle.Render(fmt.Sprintf("%.1fs", *a.DurationSeconds))
	}
	return row
}

var rateLabels = map[model.RateStatus]string{
	model.RateOK:          "ok",
	model.RateApproaching: "approaching limit",
	model.RateExceeded:    "limit exceeded",
}

func renderTokenUsage(u *model.TokenUsage, width int) string {
	if u == nil {
		return ""
	}
	status := u.RateStatus()
	label := rateLabels[status]
	switch status {
	case model.RateExceeded:
		label = errStyle.Render(label)
	case model.RateApproaching:
		label = warnStyle.Render(label)
	default:
		label = okStyle.Render(label)
	}

	var b strings.Builder
	b.WriteString("Token usage  " + label + "\n")
	if u.TPMLimit != nil && *u.TPMLimit > 0 {
		barWidth := 30
		if width > 20 && width-10 < barWidth {
			barWidth = width - 10
		}
		bar := progress.New(progress.WithSolidFill(barColor(status)), progress.WithWidth(barWidth), progress.WithoutPercentage())
		b.WriteString(bar.ViewAs(u.Percent() / 100))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s / %s TPM", formatNumber(u.TotalTokens), formatNumber(*u.TPMLimit)))
	} else {
		b.WriteString(fmt.Sprintf("%s tokens", formatNumber(u.TotalTokens)))
	}
	calls := "calls"
	if u.LLMCalls == 1 {
		calls = "call"
	}
	b.WriteString(fmt.Sprintf("  %d LLM %s", u.LLMCalls, calls))
	if u.Provider != "" {
		b.WriteString("  " + mutedStyle.Render(u.Provider))
	}
	return panelStyle.Render(b.String()) + "\n"
}

func barColor(s model.RateStatus) string {
	switch s {
	case model.RateExceeded:
		return "#EF4444"
	case model.RateApproaching:
		return "#EAB308"
	}
	return "#22C55E"
}

// formatNumber abbreviates thousands: 750 -> "750", 1500 -> "1.5K".
func formatNumber(n int64) string {
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func renderIdeas(ideas []model.Idea, total int) string {
	if len(ideas) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Ideas (%d of %d)", len(ideas), total)))
	b.WriteString("\n")
	for i, idea := range ideas {
		score := "  -"
		if idea.CompositeScore != nil {
			score = fmt.Sprintf("%3d", int(*idea.CompositeScore*100+0.5))
		}
		b.WriteString(fmt.Sprintf("%2d. [%s] %s", i+1, score, idea.Title))
		if idea.Source != "" {
			b.WriteString("  " + mutedStyle.Render(idea.Source))
		}
		b.WriteString("\n")
		if idea.Summary != "" {
			b.WriteString("       " + mutedStyle.Render(idea.Summary) + "\n")
		}
	}
	return b.String()
}
