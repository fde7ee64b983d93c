// Package diagnostics carries the per-build counters that every pipeline
// stage reports into. The pipeline stays a pure function of its inputs plus
// config; services decide what to log from the finished snapshot.
package diagnostics

// Build accumulates observability counters for one atlas build. The pipeline
// runs as a single sequential pass, so no locking is needed.
type Build struct {
	MalformedAddresses   int `json:"malformedAddresses"`
	AmbiguousResolutions int `json:"ambiguousResolutions"`
	DuplicateNodeIDs     int `json:"duplicateNodeIds"`
	DroppedPeers         int `json:"droppedPeers"`
	SelfEdges            int `json:"selfEdges"`
	DuplicateEdges       int `json:"duplicateEdges"`
	StubsCreated         int `json:"stubsCreated"`
	StubsCapRemoved      int `json:"stubsCapRemoved"`
	EdgesTrimmedByDegree int `json:"edgesTrimmedByDegree"`
	EdgesTrimmedByCap    int `json:"edgesTrimmedByCap"`
	IsolatedStubsPruned  int `json:"isolatedStubsPruned"`
	UnreachableNodes     int `json:"unreachableNodes"`
	SampledOutNodes      int `json:"sampledOutNodes"`
}

// Snapshot returns the counters as a map for embedding into build stats.
func (b *Build) Snapshot() map[string]int {
	return map[string]int{
		"malformedAddresses":   b.MalformedAddresses,
		"ambiguousResolutions": b.AmbiguousResolutions,
		"duplicateNodeIds":     b.DuplicateNodeIDs,
		"droppedPeers":         b.DroppedPeers,
		"selfEdges":            b.SelfEdges,
		"duplicateEdges":       b.DuplicateEdges,
		"stubsCreated":         b.StubsCreated,
		"stubsCapRemoved":      b.StubsCapRemoved,
		"edgesTrimmedByDegree": b.EdgesTrimmedByDegree,
		"edgesTrimmedByCap":    b.EdgesTrimmedByCap,
		"isolatedStubsPruned":  b.IsolatedStubsPruned,
		"unreachableNodes":     b.UnreachableNodes,
		"sampledOutNodes":      b.SampledOutNodes,
	}
}
