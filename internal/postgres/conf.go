package postgres

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RenderConf produces the postgresql.conf for one instance run. Pure — no
// filesystem access — so config generation is testable without a server.
func RenderConf(sc StartConfig, hbaPath string) string {
	var b strings.Builder
	b.WriteString("# Generated; rewritten on every service start.\n")
	fmt.Fprintf(&b, "data_directory = '%s'\n", sc.DataDir)
	fmt.Fprintf(&b, "hba_file = '%s'\n", hbaPath)
	fmt.Fprintf(&b, "port = %d\n", sc.Port)
	b.WriteString("listen_addresses = 'localhost'\n")
	fmt.Fprintf(&b, "unix_socket_directories = '%s'\n", sc.SocketDir)
	b.WriteString("logging_collector = on\n")
	fmt.Fprintf(&b, "log_directory = '%s'\n", sc.LogDir)
	b.WriteString("log_filename = 'postgres.log'\n")
	return b.String()
}

// RenderHBA produces the pg_hba.conf: password auth for local socket and
// loopback TCP connections, nothing else.
func RenderHBA() string {
	return strings.Join([]string{
		"# Generated; rewritten on every service start.",
		"local   all   all                  scram-sha-256",
		"host    all   all   127.0.0.1/32   scram-sha-256",
		"host    all   all   ::1/128        scram-sha-256",
		"",
	}, "\n")
}

// writeServerConfig materializes both config files into sc.ConfigDir and
// returns the postgresql.conf path for pg_ctl.
func writeServerConfig(sc StartConfig) (string, error) {
	confPath := filepath.Join(sc.ConfigDir, "postgresql.conf")
	hbaPath := filepath.Join(sc.ConfigDir, "pg_hba.conf")

	if err := os.WriteFile(hbaPath, []byte(RenderHBA()), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", hbaPath, err)
	}
	if err := os.WriteFile(confPath, []byte(RenderConf(sc, hbaPath)), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", confPath, err)
	}
	return confPath, nil
}
