// Package atlas runs the build pipeline end to end and owns the published
// artifact: assembly, trimming, metrics, layout, then one immutable Build
// snapshot that atomically replaces the previous one.
package atlas

import (
	"time"

	"github.com/nodeatlas/nodeatlas/pkg/visualization"
)

// NodeMetrics is the per-node scalar block of the build artifact. Degree is
// the address-cluster-normalized degree; ConnectionCount is the raw incident
// edge count including stub links.
type NodeMetrics struct {
	Degree           float64 `json:"degree"`
	DegreeCentrality float64 `json:"degreeCentrality"`
	ConnectionCount  int     `json:"connectionCount"`
	IncomingPeers    int     `json:"incomingPeers"`
	OutgoingPeers    int     `json:"outgoingPeers"`
}

// NodeMeta carries directory attributes that the frontend displays but the
// pipeline never interprets.
type NodeMeta struct {
	Host           string  `json:"host,omitempty"`
	PaymentAddress string  `json:"paymentAddress,omitempty"`
	ConfirmHeight  int64   `json:"confirmHeight,omitempty"`
	Importance     float64 `json:"importance"`
}

// BuildNode is one positioned node in the artifact.
type BuildNode struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Tier     string                 `json:"tier,omitempty"`
	Kind     string                 `json:"kind"`
	Status   string                 `json:"status,omitempty"`
	IsArcane bool                   `json:"isArcane"`
	IsHub    bool                   `json:"isHub"`
	Metrics  NodeMetrics            `json:"metrics"`
	Position visualization.Position `json:"position"`
	Meta     NodeMeta               `json:"meta"`
}

// BuildEdge is one undirected connection in the artifact. Kind is "peer" for
// primary-primary links and "stub" when either endpoint is synthesized.
type BuildEdge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Kind   string  `json:"kind"`
}

// Edge kinds.
const (
	EdgeKindPeer = "peer"
	EdgeKindStub = "stub"
)

// Stats summarizes one build. TotalEdgesRaw counts edges before trimming,
// TotalEdgesTrimmed after. Diagnostics carries the pipeline counters.
type Stats struct {
	TotalNodes        int            `json:"totalNodes"`
	TotalEdgesRaw     int            `json:"totalEdgesRaw"`
	TotalEdgesTrimmed int            `json:"totalEdgesTrimmed"`
	StubCount         int            `json:"stubCount"`
	HubCount          int            `json:"hubCount"`
	TierTotals        map[string]int `json:"tierTotals"`
	StatusTotals      map[string]int `json:"statusTotals"`
	BuildDurationMs   int64          `json:"buildDurationMs"`
	Diagnostics       map[string]int `json:"diagnostics"`
}

// Meta records how the build was produced.
type Meta struct {
	Axis           string  `json:"axis"`
	HubThreshold   float64 `json:"hubThreshold"`
	LayoutStrategy string  `json:"layoutStrategy"`
	Source         string  `json:"source"`
}

// Build is the immutable artifact of one pipeline run. Exactly one build is
// current at a time; consumers never observe a partially constructed one.
type Build struct {
	BuildID     string               `json:"buildId"`
	StartedAt   time.Time            `json:"startedAt"`
	CompletedAt time.Time            `json:"completedAt"`
	DurationMs  int64                `json:"durationMs"`
	Nodes       []BuildNode          `json:"nodes"`
	Edges       []BuildEdge          `json:"edges"`
	Bounds      visualization.Bounds `json:"bounds"`
	Stats       Stats                `json:"stats"`
	Meta        Meta                 `json:"meta"`
}
