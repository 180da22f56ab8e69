// Package instance assembles the per-activation context: one generated ID,
// one derived port, one directory tree. The context is built once and passed
// explicitly to every lifecycle call — nothing downstream reads the process
// environment to find out which instance it is in.
package instance

import (
	"fmt"
	"path/filepath"

	"github.com/burrowtool/burrow/internal/config"
	"github.com/burrowtool/burrow/internal/identity"
	"github.com/burrowtool/burrow/internal/layout"
	"github.com/burrowtool/burrow/internal/ports"
	"github.com/burrowtool/burrow/internal/postgres"
)

// Instance is one isolated activation of the environment.
type Instance struct {
	ID          string
	ProjectRoot string
	SandboxDir  string
	Port        int
	Paths       layout.ServicePaths

	// SocketDir is Paths.Socket unless the socket-path length limit
	// forced the temp-dir fallback.
	SocketDir string
}

// New allocates a fresh instance for projectRoot: generates an ID and
// derives its port and directory tree. Nothing is created on disk.
func New(cfg *config.Config, projectRoot string) (*Instance, error) {
	id, err := identity.Generate(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("generating instance ID: %w", err)
	}
	return Attach(cfg, projectRoot, id)
}

// Attach re-derives the context for an existing instance ID, validating it
// first — IDs arrive here from env vars, CLI args, and directory names.
func Attach(cfg *config.Config, projectRoot string, id string) (*Instance, error) {
	if !identity.Validate(id) {
		return nil, fmt.Errorf("malformed instance ID %q", id)
	}

	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	numeric, err := identity.Numeric(id)
	if err != nil {
		return nil, err
	}
	port, err := ports.Instance(cfg.Ports, abs, numeric)
	if err != nil {
		return nil, fmt.Errorf("deriving port for %s: %w", id, err)
	}

	root, err := cfg.Root(abs)
	if err != nil {
		return nil, err
	}
	dir := layout.SandboxDir(root, id)
	paths := layout.Service(dir, cfg.Service.Name)

	return &Instance{
		ID:          id,
		ProjectRoot: abs,
		SandboxDir:  dir,
		Port:        port,
		Paths:       paths,
		SocketDir:   layout.SocketDir(paths, id, port),
	}, nil
}

// StartConfig is the lifecycle controller's view of this instance.
func (in *Instance) StartConfig() postgres.StartConfig {
	return postgres.StartConfig{
		DataDir:   in.Paths.Data,
		SocketDir: in.SocketDir,
		LogDir:    in.Paths.Log,
		ConfigDir: in.Paths.Config,
		Port:      in.Port,
	}
}
