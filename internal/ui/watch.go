// Package ui renders the live session view: connection status, the
// streamer roster, and the append-only log feed.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ennemli/webrtc-client-windows-streaming/internal/session"
)

const maxLogLines = 8

// Controls is the slice of the session controller the view drives.
type Controls interface {
	Connect()
	Subscribe(streamerID int)
}

// Updates flowing from the session core into the view.
type statusMsg session.Status

type rosterMsg []int

type phaseMsg struct {
	streamerID int
	phase      session.Phase
}

type logMsg string

// WatchUI runs the bubbletea program and doubles as the session Notifier:
// core events are queued on a buffered channel the model polls, so a
// notification can never block the dispatch loop.
type WatchUI struct {
	program *tea.Program
	updates chan tea.Msg
	model   *watchModel
}

// NewWatchUI creates the view. Call SetControls before Run to complete
// the circular dependency (the view drives the controller, the controller
// notifies the view).
func NewWatchUI() *WatchUI {
	updates := make(chan tea.Msg, 100)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := &watchModel{
		spinner: s,
		status:  session.StatusDisconnected,
		phases:  make(map[int]session.Phase),
		updates: updates,
	}

	return &WatchUI{
		// Inline mode keeps previous terminal output visible.
		program: tea.NewProgram(model),
		updates: updates,
		model:   model,
	}
}

// SetControls injects the session controller behind the key bindings:
// c toggles the connection, enter subscribes to the selected streamer.
func (ui *WatchUI) SetControls(controls Controls) {
	ui.model.controls = controls
}

// Run blocks until the user quits.
func (ui *WatchUI) Run() error {
	_, err := ui.program.Run()
	return err
}

// Quit stops the program from outside (e.g. on SIGINT).
func (ui *WatchUI) Quit() {
	ui.program.Quit()
}

func (ui *WatchUI) push(msg tea.Msg) {
	select {
	case ui.updates <- msg:
	default:
	}
}

// Notifier implementation.

func (ui *WatchUI) Status(s session.Status) { ui.push(statusMsg(s)) }

func (ui *WatchUI) Roster(ids []int) { ui.push(rosterMsg(ids)) }

func (ui *WatchUI) PeerPhase(id int, p session.Phase) {
	ui.push(phaseMsg{streamerID: id, phase: p})
}

func (ui *WatchUI) Logf(format string, args ...any) {
	ui.push(logMsg(fmt.Sprintf(format, args...)))
}

type watchModel struct {
	controls Controls
	spinner  spinner.Model

	status   session.Status
	roster   []int
	phases   map[int]session.Phase
	selected int
	logs     []string

	updates  chan tea.Msg
	quitting bool
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// waitForUpdate polls the notification channel; it is re-armed after
// every delivered message.
func (m *watchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			if m.controls != nil {
				m.controls.Connect()
			}
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.roster)-1 {
				m.selected++
			}
		case "enter", "s":
			if m.controls != nil && m.selected < len(m.roster) {
				m.controls.Subscribe(m.roster[m.selected])
			}
		}
		return m, nil

	case statusMsg:
		m.status = session.Status(msg)
		return m, m.waitForUpdate()

	case rosterMsg:
		m.roster = msg
		if m.selected >= len(m.roster) && len(m.roster) > 0 {
			m.selected = len(m.roster) - 1
		}
		// Forget phases of departed streamers.
		known := make(map[int]bool, len(msg))
		for _, id := range msg {
			known[id] = true
		}
		for id := range m.phases {
			if !known[id] {
				delete(m.phases, id)
			}
		}
		return m, m.waitForUpdate()

	case phaseMsg:
		m.phases[msg.streamerID] = msg.phase
		return m, m.waitForUpdate()

	case logMsg:
		m.logs = append(m.logs, string(msg))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(IconStream + " streamwatch"))
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	if len(m.roster) == 0 {
		b.WriteString(MutedStyle.Render("no streamers"))
		b.WriteString("\n")
	} else {
		for i, id := range m.roster {
			phase, ok := m.phases[id]
			if !ok {
				phase = session.PhaseIdle
			}
			line := fmt.Sprintf("%s streamer %-5d %s", IconPeer, id, phase)
			if i == m.selected {
				line = SelectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(m.logs) > 0 {
		b.WriteString("\n")
		for _, l := range m.logs {
			b.WriteString(MutedStyle.Render("· " + l))
			b.WriteString("\n")
		}
	}

	b.WriteString(FooterStyle.Render("c connect/disconnect · ↑/↓ select · enter subscribe · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *watchModel) statusLine() string {
	switch m.status {
	case session.StatusConnecting:
		return fmt.Sprintf("%s %s", m.spinner.View(), WarningStyle.Render("connecting..."))
	case session.StatusConnected:
		return StatusStyle.Render(IconConnect + " connected")
	case session.StatusConnectionError:
		return ErrorStyle.Render(IconError + " connection error")
	default:
		return MutedStyle.Render("disconnected (press c)")
	}
}
