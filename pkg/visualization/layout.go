package visualization

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/nodeatlas/nodeatlas/pkg/graph"
)

// Synthesizer computes node positions for one build.
type Synthesizer struct {
	cfg Config
}

// New returns a synthesizer, filling config defaults.
func New(cfg Config) *Synthesizer {
	if cfg.Extent == 0 {
		cfg.Extent = 500
	}
	if cfg.FanoutRadius == 0 {
		cfg.FanoutRadius = 18
	}
	if cfg.SeedBaseRadius == 0 {
		cfg.SeedBaseRadius = 120
	}
	if cfg.NodeCap == 0 {
		cfg.NodeCap = 4000
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 250
	}
	return &Synthesizer{cfg: cfg}
}

// Compute runs the layout pipeline: cluster formation, seeded placement,
// force simulation (or the seeded fallback when the cluster count exceeds
// the cap), member fanout, and normalization into the fixed extent.
// Positions are assigned once per build; a rebuild recomputes everything.
func (s *Synthesizer) Compute(state *graph.State, weights map[string]float64, startedAt time.Time) *Result {
	clusters := state.AddressClusters()
	if len(clusters) == 0 {
		return &Result{Positions: map[string]Position{}, Strategy: StrategySeeded}
	}

	rng := rand.New(rand.NewSource(layoutSeed(s.cfg.Seed, startedAt)))
	centers := s.seedClusters(clusters, weights, rng)

	strategy := StrategySeeded
	iterations := 0
	if len(clusters) <= s.cfg.NodeCap {
		iterations = s.iterationBudget(len(clusters))
		s.simulate(state, clusters, centers, iterations)
		strategy = StrategyForce
	}

	positions := s.fanout(clusters, centers)
	bounds := normalize(positions, s.cfg.Extent)

	return &Result{
		Positions:  positions,
		Bounds:     bounds,
		Strategy:   strategy,
		Iterations: iterations,
	}
}

// layoutSeed derives the RNG seed from the configured seed string and the
// build's start timestamp. Same pair, same layout; new timestamp, new
// layout. Only intra-build determinism is guaranteed.
func layoutSeed(seed string, startedAt time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(seed))
	h.Write([]byte(startedAt.UTC().Format(time.RFC3339Nano)))
	return int64(h.Sum64())
}

// seedClusters places each cluster at a random angle with radius
// base * (1 + 2 * avgWeight): heavier clusters start farther out. Only the
// angle is random; the radius is a pure function of the weights.
func (s *Synthesizer) seedClusters(clusters []*graph.Cluster, weights map[string]float64, rng *rand.Rand) []Position {
	centers := make([]Position, len(clusters))
	for i, cluster := range clusters {
		avg := 0.0
		for _, id := range cluster.Members {
			avg += weights[id]
		}
		avg /= float64(len(cluster.Members))

		angle := rng.Float64() * 2 * math.Pi
		radius := s.cfg.SeedBaseRadius * (1 + 2*avg)
		centers[i] = Position{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		}
	}
	return centers
}

// iterationBudget grows with cluster count and is capped.
func (s *Synthesizer) iterationBudget(clusters int) int {
	iters := 60 + clusters/20
	if iters > s.cfg.MaxIterations {
		iters = s.cfg.MaxIterations
	}
	return iters
}

// fanout places each cluster's members around its resolved center: singleton
// clusters sit exactly at the center, larger clusters spread evenly on a
// fixed-radius circle.
func (s *Synthesizer) fanout(clusters []*graph.Cluster, centers []Position) map[string]Position {
	positions := make(map[string]Position)
	for i, cluster := range clusters {
		center := centers[i]
		if len(cluster.Members) == 1 {
			positions[cluster.Members[0]] = center
			continue
		}
		step := 2 * math.Pi / float64(len(cluster.Members))
		for j, id := range cluster.Members {
			angle := float64(j) * step
			positions[id] = Position{
				X: center.X + s.cfg.FanoutRadius*math.Cos(angle),
				Y: center.Y + s.cfg.FanoutRadius*math.Sin(angle),
			}
		}
	}
	return positions
}
