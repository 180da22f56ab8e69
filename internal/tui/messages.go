package tui

import (
	"time"

	"github.com/burrowtool/burrow/internal/fleet"
	tea "github.com/charmbracelet/bubbletea"
)

// instanceUpMsg is sent when a background start finishes.
type instanceUpMsg struct {
	id   string
	port int
	err  error
}

// instanceDownMsg is sent when a background stop finishes.
type instanceDownMsg struct {
	id  string
	err error
}

// cleanupDoneMsg is sent when a fleet sweep finishes.
type cleanupDoneMsg struct {
	report fleet.Report
	err    error
}

// fleetMsg carries a fresh fleet listing.
type fleetMsg struct {
	instances []fleet.Instance
	err       error
}

// statusTickMsg triggers a status refresh poll.
type statusTickMsg time.Time

// confirmStopExpiredMsg cancels a pending double-press stop confirmation.
type confirmStopExpiredMsg struct{}

// tickCmd returns a command that sends a tick every 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}
