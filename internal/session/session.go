// Package session spawns the interactive shell for an instance. Thin
// process orchestration over the instance context — the interesting state
// lives in the instance's environment, injected here.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/burrowtool/burrow/internal/config"
	"github.com/burrowtool/burrow/internal/instance"
)

// Run opens an interactive session with the instance env injected: a tmux
// session named after the instance when tmux is available, a plain $SHELL
// otherwise. Blocks until the user leaves the session.
func Run(in *instance.Instance, cfg *config.Config) error {
	env := in.Env(cfg)

	if tmux, err := exec.LookPath("tmux"); err == nil {
		return runTmux(tmux, in, env)
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell)
	cmd.Env = mergedEnv(env)
	return wire(cmd).Run()
}

// sessionName derives the tmux session name from the tail of the instance
// ID. The head is the project fingerprint, shared by every instance of the
// project, so naming from it would collide across concurrent activations.
func sessionName(id string) string {
	return "burrow-" + id[len(id)-8:]
}

func runTmux(tmux string, in *instance.Instance, env map[string]string) error {
	args := []string{"new-session", "-s", sessionName(in.ID)}

	// -e sets the variable in the session even when an existing tmux
	// server (with its own environment) picks up the session.
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, env[k]))
	}

	cmd := exec.Command(tmux, args...)
	cmd.Env = mergedEnv(env)
	if err := wire(cmd).Run(); err != nil {
		return fmt.Errorf("tmux session: %w", err)
	}
	return nil
}

func mergedEnv(env map[string]string) []string {
	out := os.Environ()
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func wire(cmd *exec.Cmd) *exec.Cmd {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}
