// Package graph owns the in-memory topology state: node and edge maps plus
// the adjacency index. All mutation goes through State methods so the index
// can never diverge from the edge map.
package graph

import (
	"fmt"
	"sort"
)

// adjacency tracks the edge keys incident to one node, with stub-touching
// edges indexed separately for the trimming policies.
type adjacency struct {
	edges     map[string]struct{}
	stubEdges map[string]struct{}
}

func newAdjacency() *adjacency {
	return &adjacency{
		edges:     make(map[string]struct{}),
		stubEdges: make(map[string]struct{}),
	}
}

// State is the mutable graph under construction. It is built by the
// assembler, trimmed by the constraint enforcer, and then read by the
// metrics engine and layout synthesizer. Not safe for concurrent use; the
// pipeline is a single sequential pass.
type State struct {
	nodes map[string]*Node
	edges map[string]*Edge
	adj   map[string]*adjacency

	outgoingCounts map[string]int
	incomingCounts map[string]int
}

// NewState returns an empty graph state.
func NewState() *State {
	return &State{
		nodes:          make(map[string]*Node),
		edges:          make(map[string]*Edge),
		adj:            make(map[string]*adjacency),
		outgoingCounts: make(map[string]int),
		incomingCounts: make(map[string]int),
	}
}

// AddNode inserts a node. When the id is already taken (two directory
// records collapsing onto one host id) the existing node wins and false is
// returned.
func (s *State) AddNode(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}
	if _, exists := s.nodes[n.ID]; exists {
		return false
	}
	s.nodes[n.ID] = n
	s.adj[n.ID] = newAdjacency()
	return true
}

// GetNode returns the node for id, or nil.
func (s *State) GetNode(id string) *Node {
	return s.nodes[id]
}

// HasNode reports whether id is present.
func (s *State) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// AddEdge creates the undirected edge between source and target unless the
// unordered pair already has one. Both endpoints must exist. Returns the
// edge key and whether a new edge was created.
func (s *State) AddEdge(source, target string, weight float64) (string, bool, error) {
	src, ok := s.nodes[source]
	if !ok {
		return "", false, fmt.Errorf("add edge: unknown source node %q", source)
	}
	tgt, ok := s.nodes[target]
	if !ok {
		return "", false, fmt.Errorf("add edge: unknown target node %q", target)
	}

	key := EdgeKey(source, target)
	if _, exists := s.edges[key]; exists {
		return key, false, nil
	}

	edge := &Edge{
		Key:    key,
		Source: source,
		Target: target,
		Weight: weight,
		Stub:   src.IsStub() || tgt.IsStub(),
	}
	s.edges[key] = edge
	s.indexEdge(edge)
	return key, true, nil
}

// RemoveEdge deletes an edge by key, keeping the adjacency index in sync.
func (s *State) RemoveEdge(key string) {
	edge, ok := s.edges[key]
	if !ok {
		return
	}
	delete(s.edges, key)
	s.unindexEdge(edge)
}

// RemoveNode deletes a node and cascades over its incident edges.
func (s *State) RemoveNode(id string) {
	if _, ok := s.nodes[id]; !ok {
		return
	}
	for _, key := range s.EdgeKeysOf(id) {
		s.RemoveEdge(key)
	}
	delete(s.nodes, id)
	delete(s.adj, id)
	delete(s.outgoingCounts, id)
	delete(s.incomingCounts, id)
}

// GetEdge returns the edge for key, or nil.
func (s *State) GetEdge(key string) *Edge {
	return s.edges[key]
}

// EdgeKeysOf returns the incident edge keys of a node, sorted for
// deterministic iteration.
func (s *State) EdgeKeysOf(id string) []string {
	a, ok := s.adj[id]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(a.edges))
	for k := range a.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StubEdgeKeysOf returns the stub-touching incident edge keys, sorted.
func (s *State) StubEdgeKeysOf(id string) []string {
	a, ok := s.adj[id]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(a.stubEdges))
	for k := range a.stubEdges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Degree returns the incident-edge count, stubs included.
func (s *State) Degree(id string) int {
	a, ok := s.adj[id]
	if !ok {
		return 0
	}
	return len(a.edges)
}

// PrimaryDegree returns the count of incident edges connecting two primary
// nodes. Stub-touching edges stay in the graph for layout but are excluded
// from the reported degree.
func (s *State) PrimaryDegree(id string) int {
	a, ok := s.adj[id]
	if !ok {
		return 0
	}
	return len(a.edges) - len(a.stubEdges)
}

// NodeIDs returns all node ids, sorted.
func (s *State) NodeIDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EdgeKeys returns all edge keys, sorted.
func (s *State) EdgeKeys() []string {
	keys := make([]string, 0, len(s.edges))
	for k := range s.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NodeCount returns the number of nodes.
func (s *State) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *State) EdgeCount() int {
	return len(s.edges)
}

// SetOutgoingCount records the number of distinct outgoing peer addresses a
// node reported.
func (s *State) SetOutgoingCount(id string, n int) {
	s.outgoingCounts[id] = n
}

// SetIncomingCount records the number of distinct inbound peer addresses a
// node reported. Incoming lists never create edges; they only feed this
// counter.
func (s *State) SetIncomingCount(id string, n int) {
	s.incomingCounts[id] = n
}

// OutgoingCount returns the recorded outgoing peer count.
func (s *State) OutgoingCount(id string) int {
	return s.outgoingCounts[id]
}

// IncomingCount returns the recorded incoming peer count.
func (s *State) IncomingCount(id string) int {
	return s.incomingCounts[id]
}

// Validate cross-checks the adjacency index against the edge map in both
// directions. Divergence is a programmer error; this exists for tests.
func (s *State) Validate() error {
	for key, edge := range s.edges {
		for _, end := range []string{edge.Source, edge.Target} {
			a, ok := s.adj[end]
			if !ok {
				return fmt.Errorf("edge %s references missing node %s", key, end)
			}
			if _, ok := a.edges[key]; !ok {
				return fmt.Errorf("edge %s missing from adjacency of %s", key, end)
			}
			if edge.Stub {
				if _, ok := a.stubEdges[key]; !ok {
					return fmt.Errorf("stub edge %s missing from stub index of %s", key, end)
				}
			}
		}
	}
	for id, a := range s.adj {
		for key := range a.edges {
			edge, ok := s.edges[key]
			if !ok {
				return fmt.Errorf("adjacency of %s references missing edge %s", id, key)
			}
			if edge.Source != id && edge.Target != id {
				return fmt.Errorf("adjacency of %s holds foreign edge %s", id, key)
			}
		}
		for key := range a.stubEdges {
			if _, ok := a.edges[key]; !ok {
				return fmt.Errorf("stub index of %s holds unindexed edge %s", id, key)
			}
		}
	}
	return nil
}

func (s *State) indexEdge(e *Edge) {
	for _, end := range []string{e.Source, e.Target} {
		a := s.adj[end]
		a.edges[e.Key] = struct{}{}
		if e.Stub {
			a.stubEdges[e.Key] = struct{}{}
		}
	}
}

func (s *State) unindexEdge(e *Edge) {
	for _, end := range []string{e.Source, e.Target} {
		if a, ok := s.adj[end]; ok {
			delete(a.edges, e.Key)
			delete(a.stubEdges, e.Key)
		}
	}
}
