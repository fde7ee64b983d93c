package algorithms

import (
	"github.com/nodeatlas/nodeatlas/pkg/graph"
)

// weightEpsilon floors each observed maximum so min-max normalization never
// divides by zero.
const weightEpsilon = 1e-9

// ImportanceWeights blends three independently max-normalized quantities
// (raw degree, degree centrality, total bandwidth) into one [0,1] score per
// node. The score only biases layout spread: heavier nodes seed farther from
// the visual center.
func ImportanceWeights(state *graph.State, raw, centrality map[string]float64) map[string]float64 {
	maxDegree, maxCentrality, maxBandwidth := weightEpsilon, weightEpsilon, weightEpsilon

	bandwidth := make(map[string]float64, state.NodeCount())
	for _, id := range state.NodeIDs() {
		node := state.GetNode(id)
		bw := node.Bandwidth.Total()
		bandwidth[id] = bw

		if raw[id] > maxDegree {
			maxDegree = raw[id]
		}
		if centrality[id] > maxCentrality {
			maxCentrality = centrality[id]
		}
		if bw > maxBandwidth {
			maxBandwidth = bw
		}
	}

	weights := make(map[string]float64, state.NodeCount())
	for _, id := range state.NodeIDs() {
		weights[id] = (raw[id]/maxDegree + centrality[id]/maxCentrality + bandwidth[id]/maxBandwidth) / 3
	}
	return weights
}
