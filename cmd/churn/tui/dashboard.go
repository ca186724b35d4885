package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/churn/pkg/churn/types"
	"github.com/jamesainslie/churn/pkg/churn/worker"
)

// refreshInterval is how often the dashboard pulls fresh counters.
const refreshInterval = time.Second

// actionOrder fixes the display order of the per-action counts.
var actionOrder = []types.Action{
	types.ActionMkdir,
	types.ActionRmdir,
	types.ActionMkfile,
	types.ActionRmfile,
	types.ActionAppend,
	types.ActionRewrite,
}

// DoneMsg is sent when the run underneath the dashboard finishes.
type DoneMsg struct {
	Err error
}

// refreshMsg drives the periodic counter pull.
type refreshMsg time.Time

// Options configures the dashboard.
type Options struct {
	// Root is the workload tree shown in the header.
	Root string

	// Workers is the configured worker count.
	Workers int

	// Version is the build version shown in the header.
	Version string

	// Start is when the run began.
	Start time.Time

	// Fetch returns a fresh view of the shared worker counters.
	Fetch func() worker.StatsView
}

// Model is the dashboard's Bubble Tea model.
type Model struct {
	opts    Options
	spinner spinner.Model
	view    worker.StatsView
	width   int
	height  int
	done    bool
	err     error
}

// New creates a dashboard model.
func New(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		opts:    opts,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init starts the spinner and the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshTick())
}

// refreshTick schedules the next counter pull.
func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case refreshMsg:
		if m.opts.Fetch != nil {
			m.view = m.opts.Fetch()
		}
		return m, refreshTick()

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if m.opts.Fetch != nil {
			m.view = m.opts.Fetch()
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	if m.done {
		if m.err != nil {
			b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Stopped: %v", m.err)))
		} else {
			b.WriteString(warningTextStyle.Render("  Stopped."))
		}
	} else {
		b.WriteString(fmt.Sprintf("  %s Churning: %s",
			m.spinner.View(),
			truncatePath(m.opts.Root, contentWidth-20)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(m.renderActions())
	b.WriteString("\n")

	content := b.String()
	contentLines := strings.Count(content, "\n") + 1

	availableLines := m.height - 2
	if availableLines > contentLines {
		content += strings.Repeat("\n", availableLines-contentLines)
	}

	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

// renderHeader renders the title line.
func (m Model) renderHeader(width int) string {
	title := titleStyle.Render(fmt.Sprintf("  churn %s", m.opts.Version))
	hint := mutedTextStyle.Render(fmt.Sprintf("%d worker(s)  [q to stop]", m.opts.Workers))

	spacing := width - lipgloss.Width(title) - lipgloss.Width(hint)
	if spacing < 1 {
		spacing = 1
	}

	return title + strings.Repeat(" ", spacing) + hint
}

// renderStats renders the headline counter boxes.
func (m Model) renderStats(totalWidth int) string {
	boxWidth := (totalWidth - 12) / 5
	if boxWidth < 10 {
		boxWidth = 10
	}

	ticksBox := m.renderStatBox("Actions", humanize.Comma(m.view.Ticks), boxWidth)
	writtenBox := m.renderStatBox("Written", types.FormatSize(m.view.BytesWritten), boxWidth)
	freedBox := m.renderStatBox("Freed", types.FormatSize(m.view.BytesFreed), boxWidth)
	recovBox := m.renderStatBox("Rescans", humanize.Comma(m.view.Recoveries), boxWidth)
	elapsedBox := m.renderStatBox("Time", formatDuration(time.Since(m.opts.Start)), boxWidth)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ", ticksBox, " ", writtenBox, " ", freedBox, " ", recovBox, " ", elapsedBox)
}

// renderStatBox renders a single stat box.
func (m Model) renderStatBox(label, value string, width int) string {
	labelStr := statsLabelStyle.Render(label)
	valueStr := statsValueStyle.Render(value)

	content := lipgloss.JoinVertical(lipgloss.Center,
		center(labelStr, width-4),
		center(valueStr, width-4))

	return statsBoxStyle.Width(width).Render(content)
}

// renderActions renders the per-action counts table.
func (m Model) renderActions() string {
	var b strings.Builder
	for _, a := range actionOrder {
		b.WriteString("  ")
		b.WriteString(actionLabelStyle.Render(a.String()))
		b.WriteString(statsValueStyle.Render(humanize.Comma(m.view.Actions[a.String()])))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	mins := d / time.Minute
	secs := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", mins, secs)
}
