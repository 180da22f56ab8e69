package tui

import (
	"fmt"
	"time"

	"github.com/burrowtool/burrow/internal/instance"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6 // account for "  > /" prefix
		return m, nil

	case statusTickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd())

	case fleetMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
			return m, nil
		}
		m.instances = msg.instances
		if m.cursor >= len(m.instances) && m.cursor > 0 {
			m.cursor = len(m.instances) - 1
		}
		return m, nil

	case instanceUpMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Instance %s up on port %d", msg.id, msg.port)
			m.isError = false
		}
		return m, m.refreshCmd()

	case instanceDownMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Stopped %s", msg.id)
			m.isError = false
		}
		return m, m.refreshCmd()

	case cleanupDoneMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Cleanup error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Removed %d, skipped %d", msg.report.Removed, msg.report.Skipped)
			m.isError = false
		}
		return m, m.refreshCmd()

	case confirmStopExpiredMsg:
		m.confirmStop = false
		m.confirmStopID = ""
		return m, nil

	case tea.KeyMsg:
		if m.commanding {
			return m.handleCommandMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	if m.commanding {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNormalMode handles keys when navigating the instance list.
func (m model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Dismiss help modal
	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// If confirming a stop, second x confirms, anything else cancels
	if m.confirmStop {
		m.confirmStop = false
		if msg.String() == "x" {
			id := m.confirmStopID
			m.confirmStopID = ""
			return m, m.stopCmd(id)
		}
		m.confirmStopID = ""
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "/":
		m.commanding = true
		m.input.Focus()
		m.input.SetValue("")
		return m, textinput.Blink

	case "n":
		m.message = "Starting new instance..."
		m.isError = false
		return m, m.upCmd()

	case "x":
		if in, ok := m.selected(); ok {
			m.confirmStop = true
			m.confirmStopID = in.ID
			return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
				return confirmStopExpiredMsg{}
			})
		}
		return m, nil

	case "c":
		m.message = "Cleaning up stale instances..."
		m.isError = false
		return m, m.cleanupCmd()

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if len(m.instances) > 0 {
			m.cursor = len(m.instances) - 1
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.instances)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if in, ok := m.selected(); ok && in.Running {
			m.psqlTo = in.ID
			return m, tea.Quit
		}
		m.message = "Selected instance is not running"
		m.isError = true
		return m, nil
	}

	return m, nil
}

// handleCommandMode handles keys when the command input is active.
func (m model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.commanding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case "enter":
		m.commanding = false
		m.input.Blur()
		return m.processInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) processInput() (tea.Model, tea.Cmd) {
	cmd := ParseCommand(m.input.Value())
	m.input.SetValue("")
	if cmd == nil {
		return m, nil
	}

	switch cmd.Name {
	case "up", "new":
		m.message = "Starting new instance..."
		m.isError = false
		return m, m.upCmd()

	case "stop":
		if len(cmd.Args) < 1 {
			m.message = "Usage: /stop <id>"
			m.isError = true
			return m, nil
		}
		return m, m.stopCmd(cmd.Args[0])

	case "psql":
		if len(cmd.Args) < 1 {
			m.message = "Usage: /psql <id>"
			m.isError = true
			return m, nil
		}
		m.psqlTo = cmd.Args[0]
		return m, tea.Quit

	case "cleanup":
		m.message = "Cleaning up stale instances..."
		m.isError = false
		return m, m.cleanupCmd()

	case "quit":
		m.quitting = true
		return m, tea.Quit

	default:
		m.message = fmt.Sprintf("Unknown command: %s", cmd.Name)
		m.isError = true
		return m, nil
	}
}

// upCmd allocates a fresh instance and brings its service up in the
// background.
func (m model) upCmd() tea.Cmd {
	mgr, cfg, dir := m.manager, m.cfg, m.projectDir
	return func() tea.Msg {
		in, err := instance.New(cfg, dir)
		if err != nil {
			return instanceUpMsg{err: err}
		}
		if err := mgr.Controller.Init(in.Paths.Data, in.SocketDir, in.Paths.Log,
			cfg.Service.User, cfg.Service.Password); err != nil {
			return instanceUpMsg{id: in.ID, err: err}
		}
		if err := mgr.Controller.Start(in.StartConfig()); err != nil {
			return instanceUpMsg{id: in.ID, err: err}
		}
		return instanceUpMsg{id: in.ID, port: in.Port}
	}
}

func (m model) stopCmd(id string) tea.Cmd {
	mgr, cfg, dir := m.manager, m.cfg, m.projectDir
	return func() tea.Msg {
		in, err := instance.Attach(cfg, dir, id)
		if err != nil {
			return instanceDownMsg{id: id, err: err}
		}
		return instanceDownMsg{id: id, err: mgr.Controller.Stop(in.Paths.Data)}
	}
}

func (m model) cleanupCmd() tea.Cmd {
	mgr, root := m.manager, m.root
	return func() tea.Msg {
		report, err := mgr.Cleanup(root)
		return cleanupDoneMsg{report: report, err: err}
	}
}
