package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolpulse/apps"
	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/access"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
)

const (
	fetchedLayout = "2006-01-02 15:04"
	barWidth      = 24
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	demoStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#C89A3A")).
			Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// renderer writes command output, styled with lipgloss when writing to a terminal.
type renderer struct {
	out    io.Writer
	styled bool
}

func (r renderer) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

func (r renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r renderer) insights(snap insights.Snapshot) {
	title := r.style(titleStyle, "School Pulse insights")
	if snap.Synthetic {
		title += " " + r.style(demoStyle, "DEMO DATA")
	}
	r.println(title)
	r.println(r.style(mutedStyle, fmt.Sprintf("Source: %s, fetched at %s", snap.Source, snap.FetchedAt.Format(fetchedLayout))))
	if !snap.Consistent() {
		r.println(r.style(errorStyle, "Warning: totals do not match trends"))
	}
	r.println("")

	mostCommon := string(snap.Summary.MostCommonDelayType)
	if snap.Summary.MostCommonDelayType == incident.DelayNone {
		mostCommon = "none"
	}
	metrics := []struct{ label, value string }{
		{"Total delays", fmt.Sprint(snap.Summary.TotalDelays)},
		{"Total infractions", fmt.Sprint(snap.Summary.TotalInfractions)},
		{"Positive actions", fmt.Sprint(snap.Summary.PositiveActions)},
		{"Most common delay", mostCommon},
	}
	if r.styled {
		cards := make([]string, 0, len(metrics))
		for _, m := range metrics {
			cards = append(cards, cardStyle.Render(cardTitleStyle.Render(m.label)+"\n"+cardValueStyle.Render(m.value)))
		}
		r.println(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	} else {
		for _, m := range metrics {
			r.println(fmt.Sprintf("%s: %s", m.label, m.value))
		}
	}

	r.println("")
	r.trend("Delays by date", snap.Trends.DelaysByDate)
	r.println("")
	r.trend("Infractions by category", snap.Trends.InfractionsByCategory)
}

func (r renderer) trend(title string, buckets []insights.TrendBucket) {
	r.println(r.style(titleStyle, title))
	if len(buckets) == 0 {
		r.println(r.style(mutedStyle, "  (none)"))
		return
	}

	keyWidth, maxCount := 0, 0
	for _, b := range buckets {
		if len(b.Key) > keyWidth {
			keyWidth = len(b.Key)
		}
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	for _, b := range buckets {
		line := fmt.Sprintf("  %-*s  %d", keyWidth, b.Key, b.Count)
		if r.styled && maxCount > 0 {
			line += " " + barStyle.Render(strings.Repeat("█", b.Count*barWidth/maxCount))
		}
		r.println(line)
	}
}

func (r renderer) submitResult(res incident.SubmitResult) {
	if res.Success {
		r.println(r.style(okStyle, "Saved: "+res.Message))
		return
	}
	r.println(r.style(errorStyle, "Rejected: "+res.Message))
}

func (r renderer) ping(ok bool, info core.ConnectionInfo) {
	if ok {
		r.println(r.style(okStyle, "Connected to "+info.BaseURL))
		return
	}
	r.println(r.style(errorStyle, "Cannot reach "+info.BaseURL))
}

func (r renderer) capabilities(role access.Role, caps access.Capabilities) {
	r.println(r.style(titleStyle, role.Label()))
	if !role.Valid() {
		r.println(r.style(mutedStyle, fmt.Sprintf("unknown role %q, showing %s capabilities", role, access.RoleTeacher.Label())))
	}
	for _, a := range caps.List() {
		r.println("  " + string(a))
	}
}

func (r renderer) info(info core.ConnectionInfo) {
	r.println(fmt.Sprintf("Backend: %s", info.BaseURL))
	r.println(fmt.Sprintf("Host: %s", info.Host))
	r.println(fmt.Sprintf("Insights mode: %s", info.Mode))
	r.println(fmt.Sprintf("Offline demo: %t", info.OfflineDemo))
}

// error describes err the way the dashboard would: per-field messages for validation errors,
// a retry hint for transient ones.
func (r renderer) error(err error) {
	var vErr *core.ValidationError
	var argErr *apps.ArgumentError
	switch {
	case errors.As(err, &vErr):
		fields := vErr.FieldErrors()
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		r.println(r.style(errorStyle, "Invalid entry:"))
		for _, name := range names {
			r.println(fmt.Sprintf("  %s: %s", name, fields[name]))
		}
	case errors.As(err, &argErr), errors.Is(err, apps.ErrForbidden):
		r.println(r.style(errorStyle, "Error: "+err.Error()))
	default:
		msg := fmt.Sprintf("Error (%s): %v", core.KindOf(err), err)
		if core.IsRetryable(err) {
			msg += ", try again"
		}
		r.println(r.style(errorStyle, msg))
	}
}
