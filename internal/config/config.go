package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/burrowtool/burrow/internal/layout"
	"github.com/burrowtool/burrow/internal/ports"
	"gopkg.in/yaml.v3"
)

const ConfigFile = "config.yaml"

type Config struct {
	Version string      `yaml:"version"`
	Project string      `yaml:"project"`
	Service Service     `yaml:"service"`
	Ports   ports.Range `yaml:"ports"`
	Layout  Layout      `yaml:"layout"`
}

// Service holds the backing-service settings. Only postgres is modeled in
// depth; other service types reuse the same directory and port conventions.
type Service struct {
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
	Password string `yaml:"password"`
	BinDir   string `yaml:"bindir,omitempty"`
}

// Layout selects where instance state lives: under the project root
// (default) or under the user cache dir for projects on read-only or
// path-length-hostile filesystems.
type Layout struct {
	UseCache  bool   `yaml:"use_cache,omitempty"`
	Namespace string `yaml:"namespace"`
}

// Default returns the config written by `burrow init`.
func Default(projectDir string) *Config {
	return &Config{
		Version: "1",
		Project: filepath.Base(projectDir),
		Service: Service{
			Name:     "postgres",
			User:     "postgres",
			Database: "postgres",
			Password: "postgres",
			BinDir:   DetectBinDir(),
		},
		Ports:  ports.DefaultRange,
		Layout: Layout{Namespace: "burrow"},
	}
}

func configPath(projectDir string) string {
	return filepath.Join(projectDir, layout.Dir, ConfigFile)
}

// Load reads config from .sandboxes/config.yaml relative to projectDir.
func Load(projectDir string) (*Config, error) {
	data, err := os.ReadFile(configPath(projectDir))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Ports.Width == 0 {
		cfg.Ports = ports.DefaultRange
	}
	return &cfg, nil
}

// LoadOrDefault returns the project's config, falling back to defaults when
// none has been written yet. Lifecycle commands work without an explicit
// `burrow init`.
func LoadOrDefault(projectDir string) *Config {
	cfg, err := Load(projectDir)
	if err != nil {
		return Default(projectDir)
	}
	return cfg
}

// Save writes config to .sandboxes/config.yaml relative to projectDir.
func Save(projectDir string, cfg *Config) error {
	dir := filepath.Join(projectDir, layout.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(configPath(projectDir), data, 0o644)
}

// Exists returns true if .sandboxes/config.yaml exists.
func Exists(projectDir string) bool {
	_, err := os.Stat(configPath(projectDir))
	return err == nil
}

// Root resolves the sandboxes root this project uses, honoring the
// cache-layout flag.
func (c *Config) Root(projectDir string) (string, error) {
	if c.Layout.UseCache {
		return layout.CacheRoot(c.Layout.Namespace, projectDir)
	}
	return layout.SandboxesRoot(projectDir), nil
}
