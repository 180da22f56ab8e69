package config

import (
	"os/exec"
	"path/filepath"
	"sort"
)

// Well-known postgres installation roots for systems that keep the server
// binaries off PATH (Debian/Ubuntu packaging, RHEL, Homebrew kegs).
var binDirGlobs = []string{
	"/usr/lib/postgresql/*/bin",
	"/usr/pgsql-*/bin",
	"/opt/homebrew/opt/postgresql@*/bin",
	"/usr/local/opt/postgresql@*/bin",
}

// DetectBinDir locates the postgres server binaries. PATH wins; otherwise
// the lexically-last versioned install found under the well-known roots.
// Empty string means "not found" — the controller reports a usable error
// when it actually needs the tools.
func DetectBinDir() string {
	if path, err := exec.LookPath("pg_ctl"); err == nil {
		return filepath.Dir(path)
	}

	for _, glob := range binDirGlobs {
		matches, err := filepath.Glob(glob)
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[len(matches)-1]
	}
	return ""
}
