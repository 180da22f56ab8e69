package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// Instance IDs are 20 lowercase hex characters:
// 8 chars of project fingerprint, 8 digits of Unix time, 4 random chars.
const (
	IDLength          = 20
	fingerprintLength = 8
	timeLength        = 8
	randomLength      = 4
)

// Generate produces a fresh instance ID for the given project root.
// IDs from the same project share a fingerprint prefix but never collide
// in practice: the time component separates activations across seconds and
// the random suffix separates activations within the same second.
func Generate(projectRoot string) (string, error) {
	suffix := make([]byte, randomLength/2)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	if len(ts) > timeLength {
		ts = ts[len(ts)-timeLength:]
	}
	for len(ts) < timeLength {
		ts = "0" + ts
	}

	return ProjectFingerprint(projectRoot) + ts + hex.EncodeToString(suffix), nil
}

// Validate reports whether id is a well-formed instance ID: exactly 20
// characters, lowercase hex alphabet only. Anything crossing a trust
// boundary (env var, CLI argument, directory name) goes through here.
func Validate(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ProjectFingerprint returns the 8-hex-char fingerprint of a project root.
// Pure: the same absolute path always yields the same fingerprint. The port
// allocator uses its own independent derivation (ports.projectPortSeed), so
// this function can change without shifting anyone's ports.
func ProjectFingerprint(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// Numeric derives the per-instance numeric offset used by port allocation:
// the last 8 hex chars of the ID (the tail of the time component plus the
// random component) parsed base-16. This is a deliberate, fixed choice of
// slice; it is not the same thing as the ID's random component.
func Numeric(id string) (uint64, error) {
	if !Validate(id) {
		return 0, fmt.Errorf("malformed instance ID %q", id)
	}
	n, err := strconv.ParseUint(id[IDLength-8:], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing instance numeric from %q: %w", id, err)
	}
	return n, nil
}
