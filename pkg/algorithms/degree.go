// Package algorithms computes the per-node scalar metrics of a completed
// topology: degrees, degree centrality, the hub cutoff, and the composite
// importance weight that biases layout spread.
package algorithms

import (
	"github.com/nodeatlas/nodeatlas/pkg/graph"
)

// RawDegrees returns each node's count of primary-primary incident edges.
// Stub-touching edges stay in the graph for layout but are excluded from the
// reported degree.
func RawDegrees(state *graph.State) map[string]float64 {
	degrees := make(map[string]float64, state.NodeCount())
	for _, id := range state.NodeIDs() {
		degrees[id] = float64(state.PrimaryDegree(id))
	}
	return degrees
}

// ClusterNormalizedDegrees averages raw degree across each address cluster of
// size >1 and assigns the average to every member, so N nodes behind one
// address translator don't each inherit the full aggregate degree. Singleton
// clusters keep their raw degree.
func ClusterNormalizedDegrees(state *graph.State, raw map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(raw))
	for id, d := range raw {
		normalized[id] = d
	}
	for _, cluster := range state.AddressClusters() {
		if len(cluster.Members) <= 1 {
			continue
		}
		sum := 0.0
		for _, id := range cluster.Members {
			sum += raw[id]
		}
		avg := sum / float64(len(cluster.Members))
		for _, id := range cluster.Members {
			normalized[id] = avg
		}
	}
	return normalized
}

// DegreeCentrality divides each normalized degree by (total node count - 1),
// yielding a value in [0,1].
func DegreeCentrality(state *graph.State, normalized map[string]float64) map[string]float64 {
	n := state.NodeCount()
	centrality := make(map[string]float64, len(normalized))
	if n <= 1 {
		for id := range normalized {
			centrality[id] = 0
		}
		return centrality
	}
	denom := float64(n - 1)
	for id, d := range normalized {
		centrality[id] = d / denom
	}
	return centrality
}
