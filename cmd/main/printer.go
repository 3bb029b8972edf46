package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"onion-watch/src/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffaf")).
			Background(lipgloss.Color("#5f00d7")).
			Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	severityMap = map[string]lipgloss.Style{
		"critical": alertStyle,
		"high":     lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8700")),
	}
)

// printer renders inbound messages one line each; handlers may run concurrently
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{out: w}
}

// -----------------------------------------------------------------------------

func (p *printer) line(label, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", labelStyle.Render(label), body)
}

func (p *printer) initial(m models.MInitialData) {
	p.line("initial", fmt.Sprintf("%s %s", summarize(m.TrafficData), dimStyle.Render(fmt.Sprintf("(%d history points)", len(m.TrafficHistory)))))
}

func (p *printer) live(m models.MLiveUpdate) {
	p.line("live", fmt.Sprintf("%s %s", summarize(m.TrafficData), dimStyle.Render(m.Timestamp)))
}

func (p *printer) control(m models.MTrafficControl) {
	p.line("control", alertStyle.Render(fmt.Sprintf("%s=%v", m.Action, m.Value)))
}

func (p *printer) auth(m models.MAuthResult) {
	if m.Authenticated {
		p.line("auth", okStyle.Render("authenticated as "+m.Subject))
		return
	}
	p.line("auth", alertStyle.Render("rejected: "+m.Error))
}

// -----------------------------------------------------------------------------

// summarize condenses a snapshot into one readable line
func summarize(s models.MTrafficSnapshot) string {
	parts := []string{
		fmt.Sprintf("req=%d", s.TotalRequests),
		fmt.Sprintf("conn=%d", s.ActiveConnections),
		fmt.Sprintf("bw=%.2fGB/s", s.Bandwidth),
		fmt.Sprintf("loss=%.2f%%", s.PacketLoss),
		fmt.Sprintf("rt=%dms", s.ResponseTime),
		fmt.Sprintf("blocked=%d", s.ThreatsBlocked),
	}

	var threats []string
	for _, t := range s.Threats {
		style, ok := severityMap[strings.ToLower(t.Severity)]
		if !ok {
			style = dimStyle
		}
		threats = append(threats, style.Render(t.Type))
	}
	if len(threats) > 0 {
		parts = append(parts, "threats=["+strings.Join(threats, ",")+"]")
	}
	return strings.Join(parts, " ")
}
