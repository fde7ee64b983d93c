package visualization

import (
	"math"
	"sort"

	"github.com/nodeatlas/nodeatlas/pkg/graph"
)

// clusterEdge is one aggregated link between two clusters: the summed weight
// of every underlying inter-node edge. Same-cluster edges are excluded.
type clusterEdge struct {
	a, b   int
	weight float64
}

// simulate runs a Fruchterman-Reingold style force simulation over the
// cluster centers in place: repulsive charge between every pair, attractive
// spring force along aggregated edges scaled by weight. There is no
// centering force; the settling point of the system, not an artificial
// center pull, determines the overall shape.
func (s *Synthesizer) simulate(state *graph.State, clusters []*graph.Cluster, centers []Position, iterations int) {
	n := len(clusters)
	if n < 2 || iterations <= 0 {
		return
	}

	edges := aggregateEdges(state, clusters)

	area := (2 * s.cfg.Extent) * (2 * s.cfg.Extent)
	k := math.Sqrt(area / float64(n))
	temperature := s.cfg.Extent / 5

	fx := make([]float64, n)
	fy := make([]float64, n)

	for iter := 0; iter < iterations; iter++ {
		for i := range fx {
			fx[i], fy[i] = 0, 0
		}

		// Repulsion between all cluster pairs.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := centers[i].X - centers[j].X
				dy := centers[i].Y - centers[j].Y
				dist := math.Sqrt(dx*dx + dy*dy)
				if dist < 0.01 {
					dist = 0.01
				}
				force := (k * k) / dist
				fx[i] += (dx / dist) * force
				fy[i] += (dy / dist) * force
				fx[j] -= (dx / dist) * force
				fy[j] -= (dy / dist) * force
			}
		}

		// Attraction along aggregated edges, stronger for heavier links.
		for _, e := range edges {
			dx := centers[e.a].X - centers[e.b].X
			dy := centers[e.a].Y - centers[e.b].Y
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist < 0.01 {
				continue
			}
			force := (dist * dist / k) * math.Sqrt(e.weight)
			fx[e.a] -= (dx / dist) * force
			fy[e.a] -= (dy / dist) * force
			fx[e.b] += (dx / dist) * force
			fy[e.b] += (dy / dist) * force
		}

		// Displace with cooling.
		cool := 1.0 - float64(iter)/float64(iterations)
		for i := 0; i < n; i++ {
			force := math.Sqrt(fx[i]*fx[i] + fy[i]*fy[i])
			if force == 0 {
				continue
			}
			limited := math.Min(force, temperature) * cool
			centers[i].X += (fx[i] / force) * limited
			centers[i].Y += (fy[i] / force) * limited
		}
		temperature *= 0.95
	}
}

// aggregateEdges folds the node-level edge set down to one edge per distinct
// cross-cluster pair, summing the underlying weights.
func aggregateEdges(state *graph.State, clusters []*graph.Cluster) []clusterEdge {
	clusterOf := make(map[string]int)
	for i, c := range clusters {
		for _, id := range c.Members {
			clusterOf[id] = i
		}
	}

	sums := make(map[[2]int]float64)
	for _, key := range state.EdgeKeys() {
		edge := state.GetEdge(key)
		ca, okA := clusterOf[edge.Source]
		cb, okB := clusterOf[edge.Target]
		if !okA || !okB || ca == cb {
			continue
		}
		if ca > cb {
			ca, cb = cb, ca
		}
		sums[[2]int{ca, cb}] += edge.Weight
	}

	edges := make([]clusterEdge, 0, len(sums))
	for pair, w := range sums {
		edges = append(edges, clusterEdge{a: pair[0], b: pair[1], weight: w})
	}
	// Map iteration order would leak into the force accumulation; float
	// addition is not associative, so the edge order must be fixed.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})
	return edges
}
