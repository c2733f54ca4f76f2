// Package tui renders the run state store as a live terminal view.
//
// The model holds no protocol logic: it waits on the store's change
// notifications, re-reads a snapshot, and forwards key presses to the
// dashboard's user actions.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashita-ai/ideaforge/internal/model"
	"github.com/ashita-ai/ideaforge/internal/store"
)

const actionTimeout = 15 * time.Second

// Actions is what the view needs from the dashboard.
type Actions interface {
	Store() *store.Store
	Connected() bool
	CancelResearch(ctx context.Context) error
	LoadIdeas(ctx context.Context, skip, limit int) (*model.IdeaList, error)
}

type stateChangedMsg struct{}

type tickMsg time.Time

type actionDoneMsg struct {
	action string
	err    error
}

// Model is the bubbletea model of the watch view.
type Model struct {
	actions Actions
	store   *store.Store
	updates <-chan struct{}

	state     store.State
	connected bool
	now       time.Time
	notice    string
	spinner   spinner.Model
	width     int
}

// New subscribes to the dashboard's store. Call Close after the program exits.
func New(actions Actions) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	st := actions.Store()
	return Model{
		actions:   actions,
		store:     st,
		updates:   st.Subscribe(),
		state:     st.Snapshot(),
		connected: actions.Connected(),
		now:       time.Now(),
		spinner:   sp,
	}
}

// Close releases the store subscription.
func (m Model) Close() { m.store.Unsubscribe(m.updates) }

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.updates), tickCmd(), m.spinner.Tick)
}

// waitForChange blocks until the store reports a change.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Cancel):
			m.notice = "cancelling..."
			return m, m.cancelCmd()
		case key.Matches(msg, keys.Reload):
			m.notice = "reloading ideas..."
			return m, m.reloadCmd()
		}
		return m, nil

	case stateChangedMsg:
		m.state = m.store.Snapshot()
		m.connected = m.actions.Connected()
		return m, waitForChange(m.updates)

	case tickMsg:
		m.now = time.Time(msg)
		m.connected = m.actions.Connected()
		return m, tickCmd()

	case actionDoneMsg:
		if msg.err != nil {
			m.notice = msg.action + " failed: " + msg.err.Error()
		} else {
			m.notice = msg.action + " done"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) cancelCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{action: "cancel", err: m.actions.CancelResearch(ctx)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := m.actions.LoadIdeas(ctx, 0, 20)
		return actionDoneMsg{action: "reload", err: err}
	}
}

func (m Model) View() string {
	return render(view{
		state:     m.state,
		connected: m.connected,
		now:       m.now,
		spin:      m.spinner.View(),
		notice:    m.notice,
		width:     m.width,
	})
}
