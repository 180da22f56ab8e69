// Package postgres drives one postgres server per instance through its
// lifecycle: init, start, stop, status. The filesystem and the server's own
// control tooling are the only sources of truth — nothing here caches
// whether a server is running, it always re-probes.
package postgres

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrReadinessTimeout marks a server that launched but never started
// accepting connections within the readiness window. Distinct from a launch
// failure so callers can tell the two apart.
var ErrReadinessTimeout = errors.New("service did not become ready")

// markerFile is the file initdb leaves in a fresh data directory. Its
// presence is the initialization marker: no marker, not initialized.
const markerFile = "PG_VERSION"

// Status is the result of probing a data directory's server.
type Status struct {
	Running bool
	Details string
}

// StartConfig carries the derived paths and port one server run needs.
type StartConfig struct {
	DataDir   string
	SocketDir string
	LogDir    string
	ConfigDir string
	Port      int
}

// Controller wraps the postgres control binaries (initdb, pg_ctl,
// pg_isready) for one service. Zero value works when the tools are on PATH.
type Controller struct {
	// BinDir is where the server binaries live; empty means PATH.
	BinDir string

	// Readiness poll policy. This is the only retry loop in the system,
	// and it retries the readiness probe, not the launch.
	ReadyAttempts int
	ReadyInterval time.Duration

	Logger *log.Logger
}

func (c *Controller) tool(name string) string {
	if c.BinDir == "" {
		return name
	}
	return filepath.Join(c.BinDir, name)
}

func (c *Controller) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Initialized reports whether dataDir holds an initialized cluster.
func (c *Controller) Initialized(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, markerFile))
	return err == nil
}

// Init creates the cluster under dataDir with password auth for user.
// Idempotent: an already-initialized data directory is a success with no
// side effects. An initdb failure is propagated with the tool's output and
// never retried.
func (c *Controller) Init(dataDir, socketDir, logDir, user, password string) error {
	if c.Initialized(dataDir) {
		c.logger().Debug("data directory already initialized", "data", dataDir)
		return nil
	}

	for _, dir := range []string{dataDir, socketDir, logDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	pwfile, err := writePasswordFile(password)
	if err != nil {
		return err
	}
	defer os.Remove(pwfile)

	cmd := exec.Command(c.tool("initdb"),
		"-D", dataDir,
		"-U", user,
		"-A", "scram-sha-256",
		"--pwfile", pwfile,
		"-E", "UTF8",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("initdb in %s: %s: %w", dataDir, strings.TrimSpace(string(out)), err)
	}
	c.logger().Info("initialized data directory", "data", dataDir)
	return nil
}

// Start launches the server described by sc and waits for it to accept
// connections. Already running is a success (no double start). The server
// config is regenerated on every start so port or path changes take effect.
func (c *Controller) Start(sc StartConfig) error {
	if st, err := c.Probe(sc.DataDir); err != nil {
		return err
	} else if st.Running {
		c.logger().Info("service already running", "data", sc.DataDir, "port", sc.Port)
		return nil
	}

	for _, dir := range []string{sc.SocketDir, sc.LogDir, sc.ConfigDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	confPath, err := writeServerConfig(sc)
	if err != nil {
		return err
	}

	logFile := filepath.Join(sc.LogDir, "startup.log")
	cmd := exec.Command(c.tool("pg_ctl"),
		"start",
		"-D", sc.DataDir,
		"-l", logFile,
		"-o", "-c config_file="+confPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_ctl start in %s (port %d): %s: %w",
			sc.DataDir, sc.Port, strings.TrimSpace(string(out)), err)
	}

	if err := c.waitReady(sc.SocketDir, sc.Port); err != nil {
		return err
	}
	c.logger().Info("service ready", "data", sc.DataDir, "port", sc.Port)
	return nil
}

// waitReady polls pg_isready against the socket directory until the server
// answers or the attempt budget runs out.
func (c *Controller) waitReady(socketDir string, port int) error {
	attempts := c.ReadyAttempts
	if attempts <= 0 {
		attempts = 30
	}
	interval := c.ReadyInterval
	if interval <= 0 {
		interval = time.Second
	}

	for i := 0; i < attempts; i++ {
		cmd := exec.Command(c.tool("pg_isready"),
			"-q",
			"-h", socketDir,
			"-p", strconv.Itoa(port),
		)
		if cmd.Run() == nil {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("port %d, socket %s, after %d attempts: %w",
		port, socketDir, attempts, ErrReadinessTimeout)
}

// Stop requests a fast shutdown of the server bound to dataDir. A server
// that is already stopped is a success.
func (c *Controller) Stop(dataDir string) error {
	st, err := c.Probe(dataDir)
	if err != nil {
		return err
	}
	if !st.Running {
		c.logger().Debug("service already stopped", "data", dataDir)
		return nil
	}

	cmd := exec.Command(c.tool("pg_ctl"), "stop", "-D", dataDir, "-m", "fast")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_ctl stop in %s: %s: %w", dataDir, strings.TrimSpace(string(out)), err)
	}
	c.logger().Info("service stopped", "data", dataDir)
	return nil
}

// Probe asks pg_ctl whether a server is running in dataDir. pg_ctl's exit
// code is the single source of truth: 0 running, 3 stopped, 4 inaccessible
// or uninitialized data directory (reported as not running).
func (c *Controller) Probe(dataDir string) (Status, error) {
	cmd := exec.Command(c.tool("pg_ctl"), "status", "-D", dataDir)
	out, err := cmd.CombinedOutput()
	details := strings.TrimSpace(string(out))

	if err == nil {
		return Status{Running: true, Details: details}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case 3, 4:
			return Status{Running: false, Details: details}, nil
		}
	}
	return Status{}, fmt.Errorf("pg_ctl status in %s: %s: %w", dataDir, details, err)
}

func writePasswordFile(password string) (string, error) {
	f, err := os.CreateTemp("", "pgpw-*")
	if err != nil {
		return "", fmt.Errorf("creating password file: %w", err)
	}
	defer f.Close()

	if err := f.Chmod(0o600); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("restricting password file: %w", err)
	}
	if _, err := f.WriteString(password + "\n"); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing password file: %w", err)
	}
	return f.Name(), nil
}
