// Package monitor is a terminal view of a running batch session.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mcqforge/internal/batch"
	"github.com/abhisek/mcqforge/internal/store"
	"github.com/abhisek/mcqforge/internal/ui/components"
	"github.com/abhisek/mcqforge/internal/ui/layout"
	"github.com/abhisek/mcqforge/internal/ui/theme"
)

const recentEvents = 6

// Lookup loads a saved question for display.
type Lookup interface {
	GetMCQ(ctx context.Context, id string) (*store.MCQRecord, error)
}

type progressMsg batch.Progress

type closedMsg struct{}

type recordMsg struct {
	rec *store.MCQRecord
	err error
}

// Model follows the events of one session.
type Model struct {
	events <-chan batch.Progress
	cancel func()
	lookup Lookup

	title      string
	spinner    spinner.Model
	last       batch.Progress
	recent     []batch.Progress
	latest     *store.MCQRecord
	lookupErr  error
	done       bool
	cancelling bool

	width  int
	height int
}

// New creates a monitor reading events until a terminal event or until the
// channel closes. cancel is called on the first quit key while the session
// is running; lookup, when set, loads each saved question for display.
func New(title string, requested int, events <-chan batch.Progress, cancel func(), lookup Lookup) Model {
	return Model{
		events:  events,
		cancel:  cancel,
		lookup:  lookup,
		title:   title,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Secondary))),
		last:    batch.Progress{Status: batch.StatusProgress, Requested: requested},
	}
}

// Last returns the most recent event seen.
func (m Model) Last() batch.Progress {
	return m.last
}

// Done reports whether the session has ended.
func (m Model) Done() bool {
	return m.done
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.events))
}

func waitForProgress(events <-chan batch.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return progressMsg(p)
	}
}

func (m Model) loadRecord(id string) tea.Cmd {
	lookup := m.lookup
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rec, err := lookup.GetMCQ(ctx, id)
		return recordMsg{rec: rec, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done || m.cancelling || m.cancel == nil {
				return m, tea.Quit
			}
			m.cancelling = true
			m.cancel()
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		p := batch.Progress(msg)
		m.last = p
		m.recent = append(m.recent, p)
		if len(m.recent) > recentEvents {
			m.recent = m.recent[len(m.recent)-recentEvents:]
		}

		var cmds []tea.Cmd
		if p.MCQID != "" && m.lookup != nil {
			cmds = append(cmds, m.loadRecord(p.MCQID))
		}
		if p.Status.Terminal() {
			m.done = true
		} else {
			cmds = append(cmds, waitForProgress(m.events))
		}
		if len(cmds) == 0 {
			return m, nil
		}
		return m, tea.Batch(cmds...)

	case closedMsg:
		m.done = true
		return m, nil

	case recordMsg:
		m.lookupErr = msg.err
		if msg.err == nil {
			m.latest = msg.rec
		}
		return m, nil
	}

	return m, nil
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	f := layout.Frame{Title: m.title, Status: m.statusLine(), Hints: m.hints(), Width: m.width, Height: m.height}
	if f.Ready() {
		v.SetContent(f.Render(m.render()))
	}
	return v
}

func (m Model) statusLine() string {
	switch {
	case m.done:
		return string(m.last.Status)
	case m.cancelling:
		return "cancelling"
	default:
		return "running"
	}
}

func (m Model) hints() []layout.KeyHint {
	if m.done || m.cancelling {
		return []layout.KeyHint{{Key: "q", Description: "Quit"}}
	}
	return []layout.KeyHint{{Key: "q", Description: "Cancel batch"}}
}

// render draws the frame body: progress, counters, recent events and the
// latest saved question.
func (m Model) render() string {
	width := max(m.width-4, 20)
	p := m.last

	var b strings.Builder
	if !m.done {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(components.NewProgressBar("Progress", p.Done(), p.Requested, width-2).View())
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s  %s  %s  %s\n",
		theme.Correct.Render(fmt.Sprintf("produced %d", p.Produced)),
		theme.Warning.Render(fmt.Sprintf("rejected %d", p.Rejected)),
		theme.Incorrect.Render(fmt.Sprintf("failed %d", p.Failed)),
		theme.Hint.Render(fmt.Sprintf("of %d", p.Requested)),
	))
	if p.Session != "" {
		b.WriteString(theme.Hint.Render("session " + p.Session))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	for _, ev := range m.recent {
		line := fmt.Sprintf("%s  %-9s %s", ev.Time.Format("15:04:05"), ev.Status, ev.Node)
		if ev.Message != "" {
			line += "  " + ev.Message
		}
		if ev.Status == batch.StatusError {
			b.WriteString(theme.Incorrect.Render(line))
		} else {
			b.WriteString(theme.Body.Render(line))
		}
		b.WriteByte('\n')
	}

	if m.latest != nil {
		b.WriteByte('\n')
		b.WriteString(theme.StageStyle(m.latest.Stage).Render(string(m.latest.Stage)))
		b.WriteString("  " + theme.Hint.Render(m.latest.Node))
		b.WriteByte('\n')
		card := components.NewMCQCard(m.latest.MCQ, width)
		card.Reveal = true
		b.WriteString(card.View())
	} else if m.lookupErr != nil {
		b.WriteString(theme.Incorrect.Render("load question: " + m.lookupErr.Error()))
	}
	return b.String()
}

// Run shows the monitor until the session ends and the user quits, and
// returns the final model.
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
