// Package tui renders the progress of long runs, either as a Bubble Tea
// view or as single status lines.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/flocksim/internal/experiment"
)

const (
	barWidth   = 40
	sparkWidth = 40
)

type ProgressMsg experiment.Progress

type DoneMsg struct{ Err error }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the progress view of one job.
type Model struct {
	title    string
	progress experiment.Progress
	history  []float64
	frame    int
	done     bool
	err      error
	cancel   context.CancelFunc
}

func NewModel(title string, cancel context.CancelFunc) Model {
	return Model{title: title, cancel: cancel, history: make([]float64, 0, sparkWidth)}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case ProgressMsg:
		if msg.Phase != m.progress.Phase {
			m.history = m.history[:0]
		}
		m.progress = experiment.Progress(msg)
		m.history = append(m.history, msg.Polarization)
		if len(m.history) > sparkWidth {
			m.history = m.history[1:]
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	status := StatusRunning.Render(Spinner(m.frame))
	if m.done {
		status = StatusRunning.Render("✓")
		if m.err != nil {
			status = StatusFailed.Render("✗")
		}
	}
	fmt.Fprintf(&b, "%s %s\n\n", status, Title.Render(m.title))

	p := m.progress
	if p.Phase != "" {
		fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render(fmt.Sprintf("%-12s", p.Phase)), ProgressBar(p.Fraction(), barWidth))
		fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
			MetricLabel.Render("done"), MetricValue.Render(fmt.Sprintf("%3.0f%%", 100*p.Fraction())),
			MetricLabel.Render("elapsed"), MetricValue.Render(p.Elapsed.Round(time.Second).String()),
			MetricLabel.Render("remaining"), MetricValue.Render(p.Remaining.Round(time.Second).String()))
		fmt.Fprintf(&b, "%s %s %s\n",
			MetricLabel.Render("order"), Sparkline(m.history, sparkWidth),
			MetricValue.Render(fmt.Sprintf("%.3f", p.Polarization)))
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", StatusFailed.Render(m.err.Error()))
	}
	b.WriteString("\n" + KeyHint.Render("q: abort"))
	return Panel.Render(b.String()) + "\n"
}

// Run shows the progress view while job runs. job receives a context that
// is cancelled when the user quits, and a callback to report progress.
func Run(ctx context.Context, title string, job func(ctx context.Context, report experiment.ProgressFunc) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, cancel))
	errc := make(chan error, 1)
	go func() {
		err := job(ctx, func(pr experiment.Progress) { p.Send(ProgressMsg(pr)) })
		p.Send(DoneMsg{Err: err})
		errc <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}

// Line formats one status line: percentage, elapsed and remaining time.
func Line(p experiment.Progress) string {
	return fmt.Sprintf("%s %s %s  %s %s  %s %s  %s %.3f",
		MetricLabel.Render(string(p.Phase)),
		ProgressBar(p.Fraction(), barWidth/2),
		MetricValue.Render(fmt.Sprintf("%3.0f%%", 100*p.Fraction())),
		MetricLabel.Render("lapsed"), p.Elapsed.Round(time.Second),
		MetricLabel.Render("remaining"), p.Remaining.Round(time.Second),
		MetricLabel.Render("order"), p.Polarization)
}

// Printer writes a carriage-returned status line per report, and a newline
// when a phase completes.
func Printer(w io.Writer) experiment.ProgressFunc {
	return func(p experiment.Progress) {
		fmt.Fprintf(w, "\r%s", Line(p))
		if p.Step == p.Total {
			fmt.Fprintln(w)
		}
	}
}
