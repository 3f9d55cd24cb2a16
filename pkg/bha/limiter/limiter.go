// Package limiter implements the optional resource-limiter collaborator:
// wall time, process RSS, graph node+edge counts, and unit counts, each
// checked against a ceiling. It is constructor-injected into the
// pipeline rather than a global registry.
package limiter

import (
	"fmt"
	"runtime"
	"time"

	"github.com/buildtrace/bha/pkg/bha/bhaerr"
)

// Default resource ceilings.
const (
	DefaultMemoryBytes = 8 << 30 // 8 GiB
	DefaultWallTime    = 300 * time.Second
	DefaultMaxNodes    = 100_000
	DefaultMaxEdges    = 1_000_000
	DefaultMaxUnits    = 50_000
)

// Limits holds the configurable ceilings.
type Limits struct {
	MaxMemoryBytes uint64
	MaxWallTime    time.Duration
	MaxNodes       int
	MaxEdges       int
	MaxUnits       int
}

// Default returns the default resource ceilings.
func Default() Limits {
	return Limits{
		MaxMemoryBytes: DefaultMemoryBytes,
		MaxWallTime:    DefaultWallTime,
		MaxNodes:       DefaultMaxNodes,
		MaxEdges:       DefaultMaxEdges,
		MaxUnits:       DefaultMaxUnits,
	}
}

// Limiter enforces Limits over the lifetime of one analysis run.
type Limiter struct {
	limits Limits
	start  time.Time
}

// New creates a Limiter that starts its wall-clock budget now.
func New(limits Limits) *Limiter {
	return &Limiter{limits: limits, start: time.Now()}
}

// CheckUnitCount enforces the unit-count ceiling.
func (l *Limiter) CheckUnitCount(n int) error {
	if l.limits.MaxUnits > 0 && n > l.limits.MaxUnits {
		return bhaerr.New(bhaerr.KindResourceExhausted,
			fmt.Sprintf("unit count %d exceeds limit %d", n, l.limits.MaxUnits))
	}

	return nil
}

// CheckGraphSize enforces the node and edge count ceilings.
func (l *Limiter) CheckGraphSize(nodes, edges int) error {
	if l.limits.MaxNodes > 0 && nodes > l.limits.MaxNodes {
		return bhaerr.New(bhaerr.KindResourceExhausted,
			fmt.Sprintf("node count %d exceeds limit %d", nodes, l.limits.MaxNodes))
	}

	if l.limits.MaxEdges > 0 && edges > l.limits.MaxEdges {
		return bhaerr.New(bhaerr.KindResourceExhausted,
			fmt.Sprintf("edge count %d exceeds limit %d", edges, l.limits.MaxEdges))
	}

	return nil
}

// CheckWallTime enforces the wall-clock ceiling relative to New's call time.
func (l *Limiter) CheckWallTime() error {
	if l.limits.MaxWallTime > 0 {
		if elapsed := time.Since(l.start); elapsed > l.limits.MaxWallTime {
			return bhaerr.New(bhaerr.KindResourceExhausted,
				fmt.Sprintf("wall time %s exceeds limit %s", elapsed, l.limits.MaxWallTime))
		}
	}

	return nil
}

// CheckMemory enforces the RSS ceiling using the current process's Go
// heap-in-use figure as a conservative proxy (the core allocates only
// what it owns; no native/CGO memory to separately account for).
func (l *Limiter) CheckMemory() error {
	if l.limits.MaxMemoryBytes == 0 {
		return nil
	}

	var ms runtime.MemStats

	runtime.ReadMemStats(&ms)

	if ms.HeapInuse > l.limits.MaxMemoryBytes {
		return bhaerr.New(bhaerr.KindResourceExhausted,
			fmt.Sprintf("heap in use %d bytes exceeds limit %d bytes", ms.HeapInuse, l.limits.MaxMemoryBytes))
	}

	return nil
}
