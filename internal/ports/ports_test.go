package ports

import (
	"fmt"
	"testing"
)

func TestBaseInRangeAndDeterministic(t *testing.T) {
	paths := []string{
		"/tmp/proj", "/home/dev/app", "/var/code/api", "/srv/site",
		"/Users/a/work/one", "/Users/a/work/two", "/opt/tools/x",
		"/data/p1", "/data/p2", "/data/p3", "/data/p4", "/data/p5",
		"/code/alpha", "/code/beta", "/code/gamma", "/code/delta",
		"/projects/web", "/projects/cli", "/projects/db", "/projects/infra",
	}
	r := DefaultRange
	for _, p := range paths {
		got, err := Base(r, p)
		if err != nil {
			t.Fatalf("Base(%q): %v", p, err)
		}
		if got < r.Start || got >= r.Start+r.Width {
			t.Errorf("Base(%q) = %d, outside [%d, %d)", p, got, r.Start, r.Start+r.Width)
		}
		again, _ := Base(r, p)
		if again != got {
			t.Errorf("Base(%q) not deterministic: %d then %d", p, got, again)
		}
	}
}

func TestBaseSpread(t *testing.T) {
	// Statistical, not absolute: across 20 distinct paths a handful of
	// collisions is tolerable, a pileup is a broken hash.
	r := DefaultRange
	seen := make(map[int]int)
	for i := 0; i < 20; i++ {
		p := fmt.Sprintf("/tmp/spread/project-%d", i)
		port, err := Base(r, p)
		if err != nil {
			t.Fatalf("Base: %v", err)
		}
		seen[port]++
	}
	collisions := 20 - len(seen)
	if collisions > 2 {
		t.Errorf("%d base-port collisions across 20 paths, want <= 2", collisions)
	}
}

func TestInstanceAdjacentNumericsDiffer(t *testing.T) {
	r := DefaultRange
	p0, err := Instance(r, "/tmp/proj", 0)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	p1, err := Instance(r, "/tmp/proj", 1)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if p0 == p1 {
		t.Errorf("numerics 0 and 1 produced the same port %d", p0)
	}
}

func TestInstanceInRange(t *testing.T) {
	r := Range{Start: 10000, Width: 500}
	numerics := []uint64{0, 1, 2, 249, 250, 499, 500, 1 << 40, ^uint64(0)}
	for _, n := range numerics {
		port, err := Instance(r, "/tmp/proj", n)
		if err != nil {
			t.Fatalf("Instance(numeric=%d): %v", n, err)
		}
		if port < r.Start || port >= r.Start+r.Width {
			t.Errorf("Instance(numeric=%d) = %d, outside [%d, %d)", n, port, r.Start, r.Start+r.Width)
		}
	}
}

func TestInvalidRange(t *testing.T) {
	bad := []Range{
		{Start: 0, Width: 100},
		{Start: 10000, Width: 0},
		{Start: 65000, Width: 1000},
		{Start: -1, Width: 10},
	}
	for _, r := range bad {
		if _, err := Base(r, "/tmp/proj"); err == nil {
			t.Errorf("Base accepted invalid range %+v", r)
		}
		if _, err := Instance(r, "/tmp/proj", 1); err == nil {
			t.Errorf("Instance accepted invalid range %+v", r)
		}
	}
}
