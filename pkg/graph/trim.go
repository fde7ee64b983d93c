package graph

import (
	"sort"

	"github.com/nodeatlas/nodeatlas/pkg/diagnostics"
)

// Caps configures the trimming policies applied after assembly. For
// MaxDegree and MaxEdges a zero value means unlimited; for MaxStubs zero
// means "no stubs at all".
type Caps struct {
	MaxStubs  int
	MaxDegree int
	MaxEdges  int
}

// EnforceCaps applies the trimming policies in their fixed order: stub cap,
// per-node degree cap, global edge cap, then isolated-stub pruning. The
// order is part of the contract; changing it changes the result.
func (s *State) EnforceCaps(caps Caps, diag *diagnostics.Build) {
	s.enforceStubCap(caps.MaxStubs, diag)
	s.enforceDegreeCap(caps.MaxDegree, diag)
	s.enforceEdgeCap(caps.MaxEdges, diag)
	s.pruneIsolatedStubs(diag)
}

// enforceStubCap removes all stubs when max is zero, otherwise keeps the max
// highest-degree stubs and removes the rest (edges cascade).
func (s *State) enforceStubCap(max int, diag *diagnostics.Build) {
	stubs := make([]string, 0)
	for id, node := range s.nodes {
		if node.IsStub() {
			stubs = append(stubs, id)
		}
	}
	if len(stubs) == 0 {
		return
	}

	if max <= 0 {
		sort.Strings(stubs)
		for _, id := range stubs {
			s.RemoveNode(id)
			diag.StubsCapRemoved++
		}
		return
	}
	if len(stubs) <= max {
		return
	}

	// Highest-degree stubs survive; ties break on id for determinism.
	sort.Slice(stubs, func(i, j int) bool {
		di, dj := s.Degree(stubs[i]), s.Degree(stubs[j])
		if di != dj {
			return di > dj
		}
		return stubs[i] < stubs[j]
	})
	for _, id := range stubs[max:] {
		s.RemoveNode(id)
		diag.StubsCapRemoved++
	}
}

// enforceDegreeCap trims each over-connected node down to the cap by
// repeatedly removing its lowest-priority incident edge.
func (s *State) enforceDegreeCap(max int, diag *diagnostics.Build) {
	if max <= 0 {
		return
	}
	for _, id := range s.NodeIDs() {
		for s.Degree(id) > max {
			key := s.lowestPriorityIncident(id)
			if key == "" {
				break
			}
			s.RemoveEdge(key)
			diag.EdgesTrimmedByDegree++
		}
	}
}

// enforceEdgeCap trims the whole graph down to the global edge budget using
// the same stub-then-weight removal ordering.
func (s *State) enforceEdgeCap(max int, diag *diagnostics.Build) {
	if max <= 0 || s.EdgeCount() <= max {
		return
	}

	keys := s.EdgeKeys()
	sort.Slice(keys, func(i, j int) bool {
		return s.removalLess(s.edges[keys[i]], s.edges[keys[j]])
	})
	for _, key := range keys {
		if s.EdgeCount() <= max {
			break
		}
		s.RemoveEdge(key)
		diag.EdgesTrimmedByCap++
	}
}

// pruneIsolatedStubs drops stub nodes the earlier policies left with no
// incident edges.
func (s *State) pruneIsolatedStubs(diag *diagnostics.Build) {
	for _, id := range s.NodeIDs() {
		node := s.nodes[id]
		if node != nil && node.IsStub() && s.Degree(id) == 0 {
			s.RemoveNode(id)
			diag.IsolatedStubsPruned++
		}
	}
}

// lowestPriorityIncident picks the incident edge to sacrifice first: edges
// to stubs before primary-primary links, lower weight before higher.
func (s *State) lowestPriorityIncident(id string) string {
	var worst *Edge
	for _, key := range s.EdgeKeysOf(id) {
		edge := s.edges[key]
		if worst == nil || s.removalLess(edge, worst) {
			worst = edge
		}
	}
	if worst == nil {
		return ""
	}
	return worst.Key
}

// removalLess orders edges by removal priority: stub edges first, then lower
// weight, then key for determinism.
func (s *State) removalLess(a, b *Edge) bool {
	if a.Stub != b.Stub {
		return a.Stub
	}
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	return a.Key < b.Key
}
