package tui

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/burrowtool/burrow/internal/config"
	"github.com/burrowtool/burrow/internal/fleet"
	"github.com/burrowtool/burrow/internal/instance"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the dashboard loop. It cycles between the Bubble Tea view and
// psql subprocess attachments until the user quits.
func Run(mgr *fleet.Manager, cfg *config.Config, projectDir, root string) error {
	for {
		m := newModel(mgr, cfg, projectDir, root)
		p := tea.NewProgram(m, tea.WithAltScreen())
		result, err := p.Run()
		if err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}

		final := result.(model)

		if final.quitting {
			return nil
		}

		if final.psqlTo != "" {
			in, err := instance.Attach(cfg, projectDir, final.psqlTo)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("Connecting to %s... (\\q to return)\n", in.ID)

			cmd := psqlCmd(cfg, in)
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Run()

			// Reset terminal after psql exits so Bubble Tea starts clean
			fmt.Print("\033c") // full terminal reset (RIS)
		}
	}
}

func psqlCmd(cfg *config.Config, in *instance.Instance) *exec.Cmd {
	tool := "psql"
	if cfg.Service.BinDir != "" {
		tool = filepath.Join(cfg.Service.BinDir, "psql")
	}
	cmd := exec.Command(tool,
		"-h", in.SocketDir,
		"-p", strconv.Itoa(in.Port),
		"-U", cfg.Service.User,
		cfg.Service.Database,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.Service.Password)
	return cmd
}
