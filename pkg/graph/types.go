package graph

import (
	"github.com/nodeatlas/nodeatlas/pkg/directory"
)

// Kind classifies a node in the reconstructed topology.
type Kind string

const (
	// KindPrimary marks a node present in the directory listing.
	KindPrimary Kind = "primary"
	// KindStub marks a synthesized placeholder for a peer address reported
	// by a primary node but absent from the directory.
	KindStub Kind = "stub"
)

// Node is one participant in the reconstructed topology. Nodes are created
// during assembly and only ever removed afterwards, never field-updated.
type Node struct {
	ID        string
	Kind      Kind
	Host      string // normalized host, empty for stubs without a parseable one
	Tier      string
	Status    string
	Arcane    bool
	Record    *directory.NodeRecord
	Bandwidth *directory.Bandwidth
}

// IsStub reports whether the node is a synthesized placeholder.
func (n *Node) IsStub() bool {
	return n.Kind == KindStub
}

// Edge is one undirected connection. The key collapses both report
// directions; which side claimed the connection is not retained.
type Edge struct {
	Key    string
	Source string
	Target string
	Weight float64
	Stub   bool // true when either endpoint is a stub
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// EdgeKey derives the canonical key for an unordered endpoint pair, so at
// most one edge exists per pair regardless of which side reported it first.
func EdgeKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "--" + b
}
