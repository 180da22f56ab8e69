// Package fleet operates on every instance under a project's sandboxes
// root. It never keeps a registry: the directory tree is the fleet, and
// each instance's running state is re-probed from its service on demand.
package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/burrowtool/burrow/internal/identity"
	"github.com/burrowtool/burrow/internal/postgres"
	"github.com/charmbracelet/log"
)

// Manager enumerates and sweeps instances. Safe to run while another
// process is actively using one of the instances: a live instance is an
// expected condition, never touched except for an explicit stop.
type Manager struct {
	Controller *postgres.Controller
	Service    string
	Logger     *log.Logger
}

// Instance is one entry under the sandboxes root.
type Instance struct {
	ID      string
	Dir     string
	Running bool
}

// Report summarizes one cleanup sweep.
type Report struct {
	Removed int
	Skipped int
}

func (m *Manager) logger() *log.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return log.Default()
}

func (m *Manager) dataDir(instanceDir string) string {
	return filepath.Join(instanceDir, m.Service, "data")
}

// List returns every instance under root with its current running state.
// A missing root is an empty fleet, not an error. Entries whose names are
// not well-formed instance IDs are ignored — the root is shared, and this
// code only owns directories it can prove it created.
func (m *Manager) List(root string) ([]Instance, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sandboxes root %s: %w", root, err)
	}

	var out []Instance
	for _, e := range entries {
		if !e.IsDir() || !identity.Validate(e.Name()) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		running := false
		st, err := m.Controller.Probe(m.dataDir(dir))
		if err != nil {
			m.logger().Warn("status probe failed", "instance", e.Name(), "err", err)
		} else {
			running = st.Running
		}
		out = append(out, Instance{ID: e.Name(), Dir: dir, Running: running})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Cleanup removes stale instances under root. A running service is stopped
// first (best effort); the instance is then re-probed immediately before
// deletion and skipped with a warning if it still reports running — a
// directory is never deleted out from under a live server. Per-instance
// failures are logged and counted, and the sweep continues.
func (m *Manager) Cleanup(root string) (Report, error) {
	instances, err := m.List(root)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, in := range instances {
		if in.Running {
			if err := m.Controller.Stop(m.dataDir(in.Dir)); err != nil {
				m.logger().Warn("could not stop instance, skipping",
					"instance", in.ID, "err", err)
				report.Skipped++
				continue
			}
		}

		// Last-moment re-probe: the stop above may have failed
		// silently, or another process may have started the service
		// since List ran.
		st, err := m.Controller.Probe(m.dataDir(in.Dir))
		if err != nil {
			m.logger().Warn("re-probe failed, skipping", "instance", in.ID, "err", err)
			report.Skipped++
			continue
		}
		if st.Running {
			m.logger().Warn("instance still running, skipping", "instance", in.ID)
			report.Skipped++
			continue
		}

		if err := os.RemoveAll(in.Dir); err != nil {
			m.logger().Warn("could not remove instance dir", "instance", in.ID, "err", err)
			report.Skipped++
			continue
		}
		m.logger().Info("removed stale instance", "instance", in.ID)
		report.Removed++
	}
	return report, nil
}
