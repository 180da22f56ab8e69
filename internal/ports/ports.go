package ports

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"path/filepath"
)

// Range is the window ports are allocated from. Both ends are configuration
// inputs, not constants, so other service types can carve out their own
// windows.
type Range struct {
	Start int `yaml:"start"`
	Width int `yaml:"width"`
}

// DefaultRange is the window used when no config overrides it.
var DefaultRange = Range{Start: 10000, Width: 5000}

func (r Range) validate() error {
	if r.Start <= 0 || r.Width <= 0 {
		return fmt.Errorf("invalid port range [%d, %d)", r.Start, r.Start+r.Width)
	}
	if r.Start+r.Width > 65536 {
		return fmt.Errorf("port range [%d, %d) exceeds 65535", r.Start, r.Start+r.Width)
	}
	return nil
}

// projectPortSeed hashes the canonicalized project path into a wide-
// distribution integer. Kept separate from identity.ProjectFingerprint on
// purpose: changing the identity derivation must never move anyone's ports.
func projectPortSeed(projectRoot string) uint32 {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	sum := sha256.Sum256([]byte(abs))
	return binary.BigEndian.Uint32(sum[:4])
}

// Base returns the deterministic base port for a project: same path, same
// port, every time. Distinct projects get distinct bases with high
// probability only — this is a hash, not an allocation table.
func Base(r Range, projectRoot string) (int, error) {
	if err := r.validate(); err != nil {
		return 0, err
	}
	return r.Start + int(projectPortSeed(projectRoot)%uint32(r.Width)), nil
}

// Instance returns the port for one instance of a project: the base port
// offset by twice the instance numeric, wrapped within the range. The factor
// of two reserves the adjacent odd port for a secondary listener. Collision
// avoidance between concurrent instances is probabilistic; a port-already-
// bound error at service start is surfaced to the caller, never papered over
// by picking another port here.
func Instance(r Range, projectRoot string, numeric uint64) (int, error) {
	base, err := Base(r, projectRoot)
	if err != nil {
		return 0, err
	}
	offset := (uint64(base-r.Start) + (numeric*2)%uint64(r.Width)) % uint64(r.Width)
	port := r.Start + int(offset)
	if port < r.Start || port >= r.Start+r.Width {
		// Unreachable by construction; kept as a loud invariant check.
		return 0, fmt.Errorf("derived port %d outside range [%d, %d)", port, r.Start, r.Start+r.Width)
	}
	return port, nil
}
