package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Depth bounds the number of edges in a traversal path. Unbounded is an
// explicit sentinel; Depth(0) is a real zero-depth traversal.
type Depth int

// Unbounded lets a traversal run until the frontier is exhausted.
const Unbounded Depth = -1

// IsUnbounded reports whether d places no limit on path length.
func (d Depth) IsUnbounded() bool {
	return d < 0
}

// Allows reports whether a path with the given number of edges is within d.
func (d Depth) Allows(edges int) bool {
	return d.IsUnbounded() || edges <= int(d)
}

func (d Depth) String() string {
	if d.IsUnbounded() {
		return "unbounded"
	}
	return strconv.Itoa(int(d))
}

// ParseDepth accepts "unbounded" (or an empty string) and positive
// integers. "0" is rejected: older clients sent 0 to mean no limit, so it
// is ambiguous as text. Callers wanting a zero-depth traversal use Depth(0).
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unbounded":
		return Unbounded, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	switch {
	case err == nil && n == 0:
		return 0, fmt.Errorf("depth 0 is ambiguous; use \"unbounded\" for no limit: %w", ErrInvalidArgument)
	case err != nil || n < 0:
		return 0, fmt.Errorf("depth %q must be a positive integer or \"unbounded\": %w", s, ErrInvalidArgument)
	}
	return Depth(n), nil
}

// ReachQuery parameterises FindReachable.
type ReachQuery struct {
	// TargetClass restricts results to objects of this class. Traversal
	// still passes through objects of other classes.
	TargetClass string `json:"target_class,omitempty" validate:"max=255"`
	MaxDepth    Depth  `json:"max_depth"`
}

// Reachable is one traversal result: a shortest path from the source,
// inclusive of both ends, and the object it ends at.
type Reachable struct {
	Path     []ObjectRef `json:"path"`
	Terminal ObjectRef   `json:"terminal"`
}

// Depth returns the number of edges in the path.
func (r Reachable) Depth() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}
