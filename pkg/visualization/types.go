// Package visualization turns a completed topology plus importance weights
// into stable 2D positions. The simulation runs over address-cluster
// representatives, not individual nodes; same-address nodes fan out around
// their cluster's resolved position afterwards.
package visualization

// Position is a 2D coordinate in the normalized logical extent.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the bounding box of all final node positions.
type Bounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// Strategy records which placement path produced the cluster positions.
type Strategy string

const (
	// StrategyForce means the force simulation ran over cluster nodes.
	StrategyForce Strategy = "force"
	// StrategySeeded means the cluster count exceeded the node cap and the
	// seeded initial positions were used as-is.
	StrategySeeded Strategy = "seeded"
)

// Config tunes the synthesizer. Zero values fall back to defaults in New.
type Config struct {
	// Extent is the logical half-extent: the larger dimension of the final
	// layout maps onto [-Extent, Extent].
	Extent float64
	// FanoutRadius is the circle radius multi-node clusters fan out on.
	FanoutRadius float64
	// SeedBaseRadius is the base distance from origin for seeded cluster
	// placement before the importance-weight multiplier.
	SeedBaseRadius float64
	// NodeCap is the maximum cluster count the force simulation will accept;
	// beyond it the seeded positions become final (performance escape valve).
	NodeCap int
	// MaxIterations caps the size-dependent iteration count.
	MaxIterations int
	// Seed is concatenated with the build's start timestamp to seed the
	// placement RNG, making layouts reproducible per (seed, timestamp) pair.
	Seed string
}

// Result is the synthesizer output for one build.
type Result struct {
	Positions  map[string]Position
	Bounds     Bounds
	Strategy   Strategy
	Iterations int
}
