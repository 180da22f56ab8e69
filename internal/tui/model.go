package tui

import (
	"os"

	"github.com/burrowtool/burrow/internal/config"
	"github.com/burrowtool/burrow/internal/fleet"
	"github.com/burrowtool/burrow/internal/instance"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// model is the Bubble Tea model for the burrow dashboard.
type model struct {
	manager    *fleet.Manager
	cfg        *config.Config
	projectDir string
	root       string

	instances []fleet.Instance
	ports     map[string]int // instance ID → derived port

	input      textinput.Model
	cursor     int
	message    string
	isError    bool
	commanding bool // true when in command mode (/ pressed)
	quitting   bool
	psqlTo     string // instance ID to open psql against after tea quits
	width      int
	height     int

	// Help modal
	showHelp bool

	// Double-press stop confirmation
	confirmStop   bool
	confirmStopID string
}

func newModel(mgr *fleet.Manager, cfg *config.Config, projectDir, root string) model {
	ti := textinput.New()
	ti.Placeholder = "up, stop <id>, psql <id>, cleanup | quit"
	ti.CharLimit = 256
	ti.Width = 80
	ti.Blur()

	// Get initial terminal size so the first render isn't at width=0
	w, h, _ := term.GetSize(int(os.Stdout.Fd()))
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}

	return model{
		manager:    mgr,
		cfg:        cfg,
		projectDir: projectDir,
		root:       root,
		ports:      make(map[string]int),
		input:      ti,
		width:      w,
		height:     h,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

// refreshCmd lists the fleet off the UI goroutine (each entry costs a
// status probe subprocess).
func (m model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		instances, err := m.manager.List(m.root)
		return fleetMsg{instances: instances, err: err}
	}
}

// port returns the derived port for an instance, memoized — derivation is
// pure, so one computation per ID is enough.
func (m model) port(id string) int {
	if p, ok := m.ports[id]; ok {
		return p
	}
	in, err := instance.Attach(m.cfg, m.projectDir, id)
	if err != nil {
		return 0
	}
	m.ports[id] = in.Port
	return in.Port
}

func (m model) selected() (fleet.Instance, bool) {
	if m.cursor < len(m.instances) {
		return m.instances[m.cursor], true
	}
	return fleet.Instance{}, false
}
