package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
)

// Source is what the watch view polls.
type Source interface {
	Status(ctx context.Context) (*domain.Status, error)
	History(ctx context.Context, limit int) ([]string, error)
	SetState(ctx context.Context, actor *domain.Actor, target domain.State) (*domain.Status, error)
}

const (
	defaultWidth   = 60
	historyRows    = 288
	requestTimeout = 5 * time.Second
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Background(lipgloss.Color("17"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	errStyle   = lipgloss.NewStyle().Foreground(colorCold)
)

type tickMsg time.Time

// snapshotMsg carries one poll result.
type snapshotMsg struct {
	status *domain.Status
	rows   []string
	err    error
}

// Model is the live watch view. s stops monitoring, r resumes it, q quits.
type Model struct {
	source   Source
	actor    *domain.Actor
	interval time.Duration

	status *domain.Status
	values []float64
	err    error
	width  int
}

// NewModel polls source every interval; actor signs stop/resume commands.
func NewModel(source Source, actor *domain.Actor, interval time.Duration) Model {
	return Model{
		source:   source,
		actor:    actor,
		interval: interval,
		width:    defaultWidth,
	}
}

// Run starts the watch view on the terminal and blocks until it quits.
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run watch view: %w", err)
	}

	return nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) poll() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, err := m.source.Status(ctx)
	if err != nil {
		return snapshotMsg{err: err}
	}

	rows, err := m.source.History(ctx, historyRows)

	return snapshotMsg{status: status, rows: rows, err: err}
}

func (m Model) command(target domain.State) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		status, err := m.source.SetState(ctx, m.actor, target)
		if err != nil {
			return snapshotMsg{err: err}
		}

		return snapshotMsg{status: status}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll, m.tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "s":
			return m, m.command(domain.Stopped)
		case "r":
			return m, m.command(domain.Active)
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-4, 10)
	case tickMsg:
		return m, tea.Batch(m.poll, m.tick())
	case snapshotMsg:
		m.err = msg.err
		if msg.status != nil {
			m.status = msg.status
		}

		if msg.rows != nil {
			m.values = Values(msg.rows)
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" Katilinė ") + "\n\n")

	if m.status == nil {
		b.WriteString(dimStyle.Render("laukiama duomenų...") + "\n")
	} else {
		temp := "--"
		if m.status.HasReading {
			temp = fmt.Sprintf("%.1f °C", m.status.Temperature)
		}

		fmt.Fprintf(&b, "%s %s   %s %s\n",
			labelStyle.Render("Temperatūra:"), temp,
			labelStyle.Render("Būsena:"), m.status.State.String())
		fmt.Fprintf(&b, "%s %.1f / %.1f °C\n\n",
			labelStyle.Render("Ribos:"), m.status.Thresholds.TriggerC, m.status.Thresholds.ResetC)
		b.WriteString(Sparkline(m.values, m.width, m.status.Thresholds) + "\n")

		if lo, hi, _, ok := Summary(m.values); ok {
			b.WriteString(dimStyle.Render(fmt.Sprintf("min %.1f  max %.1f  (%d)", lo, hi, len(m.values))) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("s sustabdyti · r atnaujinti · q išeiti") + "\n")

	return b.String()
}
