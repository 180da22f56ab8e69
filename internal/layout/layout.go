// Package layout derives the on-disk shape of an instance. Everything here
// is pure string manipulation — no filesystem access — so path arithmetic
// can be tested without I/O and callers decide when directories come into
// existence.
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/burrowtool/burrow/internal/identity"
)

// Dir is the sandboxes root under a project, shared by every instance of
// that project. Each instance only ever touches its own subdirectory.
const Dir = ".sandboxes"

// maxSocketPath is a conservative bound on sun_path: Linux allows 108 bytes
// and macOS 104, both including the trailing NUL. Staying under 100 keeps a
// margin for the socket file name postgres appends.
const maxSocketPath = 100

// ServicePaths are the conventional subpaths of one service inside an
// instance directory.
type ServicePaths struct {
	Data   string
	Socket string
	Log    string
	Config string
}

// SandboxesRoot returns the project-rooted sandboxes directory.
func SandboxesRoot(projectRoot string) string {
	return filepath.Join(projectRoot, Dir)
}

// CacheRoot returns the cache-rooted alternative for projects whose root
// cannot be assumed writable: {user cache}/{namespace}/{fingerprint}.
func CacheRoot(namespace, projectRoot string) (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(cache, namespace, identity.ProjectFingerprint(projectRoot)), nil
}

// SandboxDir returns the private state directory of one instance.
func SandboxDir(sandboxesRoot, instanceID string) string {
	return filepath.Join(sandboxesRoot, instanceID)
}

// Service returns the per-service subpaths under an instance directory.
func Service(sandboxDir, serviceName string) ServicePaths {
	base := filepath.Join(sandboxDir, serviceName)
	return ServicePaths{
		Data:   filepath.Join(base, "data"),
		Socket: filepath.Join(base, "socket"),
		Log:    filepath.Join(base, "log"),
		Config: filepath.Join(base, "config"),
	}
}

// SocketDir returns the directory the service's Unix socket should live in.
// Normally that is the instance's own socket subdirectory, but deep project
// paths can push the socket file past the sun_path limit, so this falls back
// to a short temp-rooted path keyed by the full instance ID — uniqueness is
// preserved, length is not a function of where the project lives.
func SocketDir(paths ServicePaths, instanceID string, port int) string {
	socketFile := filepath.Join(paths.Socket, fmt.Sprintf(".s.PGSQL.%d", port))
	if len(socketFile) <= maxSocketPath {
		return paths.Socket
	}
	return filepath.Join(os.TempDir(), "svc-"+instanceID)
}
