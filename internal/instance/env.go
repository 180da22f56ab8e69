package instance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/burrowtool/burrow/internal/config"
)

// Env returns the environment consumers of an instance expect. The names
// are a compatibility surface — tooling built on top matches them exactly.
func (in *Instance) Env(cfg *config.Config) map[string]string {
	return map[string]string{
		"INSTANCE_ID":    in.ID,
		"STATE_DIR":      in.SandboxDir,
		"ALLOCATED_PORT": strconv.Itoa(in.Port),
		"PGPORT":         strconv.Itoa(in.Port),
		"PGHOST":         in.SocketDir,
		"PGUSER":         cfg.Service.User,
		"PGPASSWORD":     cfg.Service.Password,
		"PGDATA":         in.Paths.Data,
		"PGDATABASE":     cfg.Service.Database,
	}
}

// ExportScript renders the env as POSIX export lines, for
// `eval "$(burrow env)"` style consumption. Keys are sorted for stable
// output; values are single-quoted with embedded quotes escaped.
func (in *Instance) ExportScript(cfg *config.Config) string {
	env := in.Env(cfg)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s='%s'\n", k, strings.ReplaceAll(env[k], "'", `'\''`))
	}
	return b.String()
}
