package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/burrowtool/burrow/internal/config"
	"github.com/burrowtool/burrow/internal/instance"
	"github.com/burrowtool/burrow/internal/postgres"
)

// lifecycleController fakes the full toolset: initdb leaves a marker,
// pg_ctl start/stop flips a running flag, pg_isready answers immediately.
func lifecycleController(t *testing.T) *postgres.Controller {
	t.Helper()
	bin := t.TempDir()

	pgctl := `#!/bin/sh
CMD=$1
DATA=$3
case "$CMD" in
  status)
    if [ -f "$DATA/running" ]; then exit 0; fi
    exit 3
    ;;
  start)
    touch "$DATA/running"
    exit 0
    ;;
  stop)
    rm -f "$DATA/running"
    exit 0
    ;;
esac
exit 0
`
	initdb := `#!/bin/sh
mkdir -p "$2"
echo 16 > "$2/PG_VERSION"
exit 0
`
	for name, script := range map[string]string{
		"pg_ctl":     pgctl,
		"initdb":     initdb,
		"pg_isready": "#!/bin/sh\nexit 0\n",
	} {
		if err := os.WriteFile(filepath.Join(bin, name), []byte(script), 0o755); err != nil {
			t.Fatalf("writing fake %s: %v", name, err)
		}
	}
	return &postgres.Controller{BinDir: bin}
}

func TestInstanceLifecycleEndToEnd(t *testing.T) {
	proj := t.TempDir()
	cfg := config.Default(proj)
	ctrl := lifecycleController(t)
	cfg.Service.BinDir = ctrl.BinDir

	in, err := instance.New(cfg, proj)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if in.Port < cfg.Ports.Start || in.Port >= cfg.Ports.Start+cfg.Ports.Width {
		t.Errorf("port %d outside configured range", in.Port)
	}

	if err := ctrl.Init(in.Paths.Data, in.SocketDir, in.Paths.Log,
		cfg.Service.User, cfg.Service.Password); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := ctrl.Start(in.StartConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	st, err := ctrl.Probe(in.Paths.Data)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !st.Running {
		t.Fatal("service should be running after Start")
	}

	// Start is idempotent while running.
	if err := ctrl.Start(in.StartConfig()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if err := ctrl.Stop(in.Paths.Data); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st, err = ctrl.Probe(in.Paths.Data)
	if err != nil {
		t.Fatalf("Probe after Stop: %v", err)
	}
	if st.Running {
		t.Fatal("service should be stopped after Stop")
	}

	root, err := cfg.Root(proj)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	m := &Manager{Controller: ctrl, Service: cfg.Service.Name}
	report, err := m.Cleanup(root)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if report.Removed != 1 {
		t.Errorf("report = %+v, want {Removed:1}", report)
	}
	if _, err := os.Stat(in.SandboxDir); !os.IsNotExist(err) {
		t.Errorf("instance dir %s survived cleanup", in.SandboxDir)
	}
}
