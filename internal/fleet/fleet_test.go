package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/burrowtool/burrow/internal/postgres"
)

// fakeController returns a controller whose pg_ctl reads per-instance state
// from marker files: `running` means the server answers status 0, `stubborn`
// makes stop fail, `zombie` makes stop report success while the server keeps
// running. Stop otherwise removes the running marker.
func fakeController(t *testing.T) *postgres.Controller {
	t.Helper()
	bin := t.TempDir()
	script := `#!/bin/sh
CMD=$1
DATA=$3
case "$CMD" in
  status)
    if [ -f "$DATA/running" ]; then exit 0; fi
    exit 3
    ;;
  stop)
    if [ -f "$DATA/stubborn" ]; then exit 1; fi
    if [ -f "$DATA/zombie" ]; then exit 0; fi
    rm -f "$DATA/running"
    exit 0
    ;;
esac
exit 0
`
	if err := os.WriteFile(filepath.Join(bin, "pg_ctl"), []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake pg_ctl: %v", err)
	}
	return &postgres.Controller{BinDir: bin}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return &Manager{Controller: fakeController(t), Service: "postgres"}
}

// addInstance creates an instance directory with an initialized-looking
// data dir. IDs must be valid 20-char hex.
func addInstance(t *testing.T, root, id string, markers ...string) string {
	t.Helper()
	dataDir := filepath.Join(root, id, "postgres", "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "PG_VERSION"), []byte("16\n"), 0o644); err != nil {
		t.Fatalf("marker: %v", err)
	}
	for _, m := range markers {
		if err := os.WriteFile(filepath.Join(dataDir, m), nil, 0o644); err != nil {
			t.Fatalf("marker %s: %v", m, err)
		}
	}
	return filepath.Join(root, id)
}

func testID(n int) string {
	return fmt.Sprintf("%020x", n)
}

func TestListMissingRoot(t *testing.T) {
	m := newTestManager(t)
	instances, err := m.List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("List on missing root: %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("expected empty fleet, got %d", len(instances))
	}
}

func TestList(t *testing.T) {
	m := newTestManager(t)
	root := t.TempDir()

	addInstance(t, root, testID(1))
	addInstance(t, root, testID(2), "running")

	// Not instances: a loose file and a misnamed directory.
	os.WriteFile(filepath.Join(root, "config.yaml"), []byte("x"), 0o644)
	os.MkdirAll(filepath.Join(root, "not-an-id"), 0o755)

	instances, err := m.List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("got %d instances, want 2", len(instances))
	}
	if instances[0].ID != testID(1) || instances[0].Running {
		t.Errorf("instance[0] = %+v, want stopped %s", instances[0], testID(1))
	}
	if instances[1].ID != testID(2) || !instances[1].Running {
		t.Errorf("instance[1] = %+v, want running %s", instances[1], testID(2))
	}
}

func TestCleanupMissingRoot(t *testing.T) {
	m := newTestManager(t)
	report, err := m.Cleanup(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Cleanup on missing root: %v", err)
	}
	if report.Removed != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v, want zero", report)
	}
}

func TestCleanupRemovesStale(t *testing.T) {
	m := newTestManager(t)
	root := t.TempDir()

	stale := addInstance(t, root, testID(1))
	running := addInstance(t, root, testID(2), "running")

	report, err := m.Cleanup(root)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	// The running instance stops cleanly, so both go.
	if report.Removed != 2 || report.Skipped != 0 {
		t.Errorf("report = %+v, want {Removed:2}", report)
	}
	for _, dir := range []string{stale, running} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("%s still exists after cleanup", dir)
		}
	}

	// No initialization markers left anywhere under the root.
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.Name() == "PG_VERSION" {
			t.Errorf("marker survived cleanup: %s", path)
		}
		return nil
	})
}

func TestCleanupSkipsUnstoppable(t *testing.T) {
	m := newTestManager(t)
	root := t.TempDir()

	stubborn := addInstance(t, root, testID(3), "running", "stubborn")

	report, err := m.Cleanup(root)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if report.Removed != 0 || report.Skipped != 1 {
		t.Errorf("report = %+v, want {Skipped:1}", report)
	}
	if _, err := os.Stat(stubborn); err != nil {
		t.Errorf("running instance was deleted: %v", err)
	}
}

func TestCleanupReprobeSkipsStillRunning(t *testing.T) {
	m := newTestManager(t)
	root := t.TempDir()

	// Stop reports success but the server stays up: only the re-probe
	// right before deletion catches this.
	zombie := addInstance(t, root, testID(4), "running", "zombie")

	report, err := m.Cleanup(root)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if report.Removed != 0 || report.Skipped != 1 {
		t.Errorf("report = %+v, want {Skipped:1}", report)
	}
	if _, err := os.Stat(zombie); err != nil {
		t.Errorf("instance that re-probed as running was deleted: %v", err)
	}
}

func TestCleanupIgnoresForeignDirs(t *testing.T) {
	m := newTestManager(t)
	root := t.TempDir()

	foreign := filepath.Join(root, "keep-me")
	os.MkdirAll(foreign, 0o755)

	if _, err := m.Cleanup(root); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("cleanup touched a non-instance directory: %v", err)
	}
}
