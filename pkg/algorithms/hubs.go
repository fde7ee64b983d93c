package algorithms

import (
	"math"
	"sort"

	"github.com/nodeatlas/nodeatlas/pkg/graph"
)

// HubThreshold returns the degree-centrality value at the 90th percentile
// among primary nodes (sorted ascending, index = floor(0.9 * count)). With no
// primary nodes the threshold is 0.
func HubThreshold(state *graph.State, centrality map[string]float64) float64 {
	values := make([]float64, 0, state.NodeCount())
	for _, id := range state.NodeIDs() {
		if node := state.GetNode(id); node != nil && !node.IsStub() {
			values = append(values, centrality[id])
		}
	}
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	idx := int(math.Floor(0.9 * float64(len(values))))
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}

// Hubs flags every primary node whose centrality sits at or above the
// threshold.
func Hubs(state *graph.State, centrality map[string]float64, threshold float64) map[string]bool {
	hubs := make(map[string]bool)
	for _, id := range state.NodeIDs() {
		node := state.GetNode(id)
		if node == nil || node.IsStub() {
			continue
		}
		if centrality[id] >= threshold {
			hubs[id] = true
		}
	}
	return hubs
}
