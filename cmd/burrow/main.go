package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/burrowtool/burrow/internal/config"
	"github.com/burrowtool/burrow/internal/fleet"
	"github.com/burrowtool/burrow/internal/instance"
	"github.com/burrowtool/burrow/internal/layout"
	"github.com/burrowtool/burrow/internal/postgres"
	"github.com/burrowtool/burrow/internal/session"
	"github.com/burrowtool/burrow/internal/tui"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

// errNotInstance is the "which instance?" precondition failure: no
// --instance flag and no INSTANCE_ID in the environment.
var errNotInstance = errors.New("not in an instance: pass --instance or set INSTANCE_ID")

func main() {
	root := &cobra.Command{
		Use:           "burrow",
		Short:         "Burrow — isolated per-instance dev environments with their own postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDashboard,
	}

	root.AddCommand(initCmd(), upCmd(), downCmd(), statusCmd(),
		listCmd(), cleanupCmd(), envCmd(), shellCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func projectDir() (string, error) {
	return os.Getwd()
}

func controller(cfg *config.Config) *postgres.Controller {
	return &postgres.Controller{BinDir: cfg.Service.BinDir, Logger: logger}
}

func fleetManager(cfg *config.Config) *fleet.Manager {
	return &fleet.Manager{
		Controller: controller(cfg),
		Service:    cfg.Service.Name,
		Logger:     logger,
	}
}

// resolveInstance builds the context for the instance named by the flag or,
// failing that, the INSTANCE_ID env var. Both cross a trust boundary, so the
// ID is validated before any path is derived from it.
func resolveInstance(cfg *config.Config, dir, flagID string) (*instance.Instance, error) {
	id := flagID
	if id == "" {
		id = os.Getenv("INSTANCE_ID")
	}
	if id == "" {
		return nil, errNotInstance
	}
	return instance.Attach(cfg, dir, id)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize burrow in the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}

			if config.Exists(dir) {
				fmt.Println("Burrow already initialized in this project.")
				return nil
			}

			cfg := config.Default(dir)
			if err := config.Save(dir, cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			if err := updateGitignore(dir); err != nil {
				return fmt.Errorf("updating .gitignore: %w", err)
			}

			fmt.Printf("Initialized burrow for %s\n", cfg.Project)
			fmt.Printf("  Config: %s/%s\n", layout.Dir, config.ConfigFile)
			if cfg.Service.BinDir == "" {
				fmt.Println("  Warning: postgres binaries not found; set service.bindir in the config")
			} else {
				fmt.Printf("  Postgres: %s\n", cfg.Service.BinDir)
			}
			fmt.Println("\nRun `burrow shell` to enter an instance, or `burrow` for the dashboard.")
			return nil
		},
	}
}

func upCmd() *cobra.Command {
	var instanceID string
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Allocate an instance (or reuse one) and start its service",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)

			var in *instance.Instance
			if instanceID == "" && os.Getenv("INSTANCE_ID") == "" {
				if in, err = instance.New(cfg, dir); err != nil {
					return err
				}
			} else if in, err = resolveInstance(cfg, dir, instanceID); err != nil {
				return err
			}

			ctrl := controller(cfg)
			if err := ctrl.Init(in.Paths.Data, in.SocketDir, in.Paths.Log,
				cfg.Service.User, cfg.Service.Password); err != nil {
				return err
			}
			if err := ctrl.Start(in.StartConfig()); err != nil {
				return err
			}

			fmt.Printf("%s port %d\n", in.ID, in.Port)
			fmt.Printf("Run `eval \"$(burrow env --instance %s)\"` to use it.\n", in.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&instanceID, "instance", "", "instance ID (defaults to $INSTANCE_ID)")
	return cmd
}

func downCmd() *cobra.Command {
	var instanceID string
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the instance's service",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)
			in, err := resolveInstance(cfg, dir, instanceID)
			if err != nil {
				return err
			}
			return controller(cfg).Stop(in.Paths.Data)
		},
	}
	cmd.Flags().StringVar(&instanceID, "instance", "", "instance ID (defaults to $INSTANCE_ID)")
	return cmd
}

func statusCmd() *cobra.Command {
	var instanceID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the instance's service is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)
			in, err := resolveInstance(cfg, dir, instanceID)
			if err != nil {
				return err
			}

			st, err := controller(cfg).Probe(in.Paths.Data)
			if err != nil {
				return err
			}
			if st.Running {
				fmt.Printf("%s running port %d\n", in.ID, in.Port)
			} else {
				fmt.Printf("%s stopped\n", in.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&instanceID, "instance", "", "instance ID (defaults to $INSTANCE_ID)")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all instances of this project",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)
			root, err := cfg.Root(dir)
			if err != nil {
				return err
			}

			instances, err := fleetManager(cfg).List(root)
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				fmt.Println("No instances.")
				return nil
			}

			for _, fi := range instances {
				state := "stopped"
				port := "-"
				if fi.Running {
					state = "running"
				}
				if in, err := instance.Attach(cfg, dir, fi.ID); err == nil {
					port = fmt.Sprintf("%d", in.Port)
				}
				fmt.Printf("%s  %-7s  %s\n", fi.ID, state, port)
			}
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale instances (stopping orphaned services first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)
			root, err := cfg.Root(dir)
			if err != nil {
				return err
			}

			report, err := fleetManager(cfg).Cleanup(root)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d instance(s)", report.Removed)
			if report.Skipped > 0 {
				fmt.Printf(", skipped %d still running or busy", report.Skipped)
			}
			fmt.Println()
			return nil
		},
	}
}

func envCmd() *cobra.Command {
	var instanceID string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the instance's environment as export lines",
		Long:  "Print the instance's environment for shell eval:\n\n  eval \"$(burrow env --instance <id>)\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)
			in, err := resolveInstance(cfg, dir, instanceID)
			if err != nil {
				return err
			}
			fmt.Print(in.ExportScript(cfg))
			return nil
		},
	}
	cmd.Flags().StringVar(&instanceID, "instance", "", "instance ID (defaults to $INSTANCE_ID)")
	return cmd
}

func shellCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start a fresh instance and open an interactive session inside it",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir()
			if err != nil {
				return err
			}
			cfg := config.LoadOrDefault(dir)

			in, err := instance.New(cfg, dir)
			if err != nil {
				return err
			}

			ctrl := controller(cfg)
			if err := ctrl.Init(in.Paths.Data, in.SocketDir, in.Paths.Log,
				cfg.Service.User, cfg.Service.Password); err != nil {
				return err
			}
			if err := ctrl.Start(in.StartConfig()); err != nil {
				return err
			}

			logger.Info("instance ready", "id", in.ID, "port", in.Port)
			sessErr := session.Run(in, cfg)

			if err := ctrl.Stop(in.Paths.Data); err != nil {
				logger.Warn("could not stop service", "err", err)
			}
			if !keep {
				if err := os.RemoveAll(in.SandboxDir); err != nil {
					logger.Warn("could not remove instance dir", "err", err)
				}
			}
			return sessErr
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the instance directory after the session ends")
	return cmd
}

func runDashboard(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	cfg := config.LoadOrDefault(dir)
	root, err := cfg.Root(dir)
	if err != nil {
		return err
	}
	return tui.Run(fleetManager(cfg), cfg, dir, root)
}

func updateGitignore(projectDir string) error {
	gitignorePath := filepath.Join(projectDir, ".gitignore")

	entries := []string{
		layout.Dir + "/",
	}

	existing, _ := os.ReadFile(gitignorePath)
	content := string(existing)

	var toAdd []string
	for _, entry := range entries {
		if !strings.Contains(content, entry) {
			toAdd = append(toAdd, entry)
		}
	}

	if len(toAdd) == 0 {
		return nil
	}

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	content += "\n# burrow\n"
	for _, entry := range toAdd {
		content += entry + "\n"
	}

	return os.WriteFile(gitignorePath, []byte(content), 0o644)
}
