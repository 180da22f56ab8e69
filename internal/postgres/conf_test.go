package postgres

import (
	"strings"
	"testing"
)

func TestRenderConf(t *testing.T) {
	sc := StartConfig{
		DataDir:   "/tmp/box/postgres/data",
		SocketDir: "/tmp/box/postgres/socket",
		LogDir:    "/tmp/box/postgres/log",
		ConfigDir: "/tmp/box/postgres/config",
		Port:      10432,
	}
	conf := RenderConf(sc, "/tmp/box/postgres/config/pg_hba.conf")

	for _, want := range []string{
		"port = 10432",
		"data_directory = '/tmp/box/postgres/data'",
		"unix_socket_directories = '/tmp/box/postgres/socket'",
		"log_directory = '/tmp/box/postgres/log'",
		"hba_file = '/tmp/box/postgres/config/pg_hba.conf'",
		"listen_addresses = 'localhost'",
	} {
		if !strings.Contains(conf, want) {
			t.Errorf("conf missing %q:\n%s", want, conf)
		}
	}
}

func TestRenderHBA(t *testing.T) {
	hba := RenderHBA()
	if strings.Contains(hba, "trust") {
		t.Error("hba must not allow trust auth")
	}
	for _, want := range []string{"local", "127.0.0.1/32", "::1/128", "scram-sha-256"} {
		if !strings.Contains(hba, want) {
			t.Errorf("hba missing %q:\n%s", want, hba)
		}
	}
}
