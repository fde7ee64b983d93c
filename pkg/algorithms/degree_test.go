package algorithms

import (
	"math"
	"testing"

	"github.com/nodeatlas/nodeatlas/pkg/directory"
	"github.com/nodeatlas/nodeatlas/pkg/graph"
)

func addPrimary(t *testing.T, s *graph.State, id, host string) {
	t.Helper()
	if !s.AddNode(&graph.Node{ID: id, Kind: graph.KindPrimary, Host: host, Tier: "full", Status: "active"}) {
		t.Fatalf("AddNode(%s) failed", id)
	}
}

func mustEdge(t *testing.T, s *graph.State, a, b string) {
	t.Helper()
	if _, _, err := s.AddEdge(a, b, 1); err != nil {
		t.Fatalf("AddEdge(%s, %s): %v", a, b, err)
	}
}

// TestClusterNormalizedDegrees_Average tests the 3-node cluster {2,4,6} -> 4.0 case
func TestClusterNormalizedDegrees_Average(t *testing.T) {
	s := graph.NewState()
	// Cluster of three behind one host.
	addPrimary(t, s, "c1", "192.0.2.5")
	addPrimary(t, s, "c2", "192.0.2.5")
	addPrimary(t, s, "c3", "192.0.2.5")
	// Enough distinct peers to give raw degrees 2, 4, 6.
	for i := 0; i < 6; i++ {
		addPrimary(t, s, string(rune('p'+i)), "")
	}
	peers := []string{"p", "q", "r", "s", "t", "u"}
	for _, p := range peers[:2] {
		mustEdge(t, s, "c1", p)
	}
	for _, p := range peers[:4] {
		mustEdge(t, s, "c2", p)
	}
	for _, p := range peers[:6] {
		mustEdge(t, s, "c3", p)
	}

	raw := RawDegrees(s)
	if raw["c1"] != 2 || raw["c2"] != 4 || raw["c3"] != 6 {
		t.Fatalf("raw degrees = %v/%v/%v, want 2/4/6", raw["c1"], raw["c2"], raw["c3"])
	}

	normalized := ClusterNormalizedDegrees(s, raw)
	for _, id := range []string{"c1", "c2", "c3"} {
		if normalized[id] != 4.0 {
			t.Errorf("normalized[%s] = %v, want 4.0", id, normalized[id])
		}
	}
	// Singleton clusters keep their raw degree.
	if normalized["p"] != raw["p"] {
		t.Errorf("singleton degree changed: %v != %v", normalized["p"], raw["p"])
	}
}

// TestRawDegrees_ExcludesStubEdges tests that stub links don't count
func TestRawDegrees_ExcludesStubEdges(t *testing.T) {
	s := graph.NewState()
	addPrimary(t, s, "a", "10.0.0.1")
	addPrimary(t, s, "b", "10.0.0.2")
	s.AddNode(&graph.Node{ID: "ext", Kind: graph.KindStub})
	mustEdge(t, s, "a", "b")
	mustEdge(t, s, "a", "ext")

	raw := RawDegrees(s)
	if raw["a"] != 1 {
		t.Errorf("raw degree of a = %v, want 1 (stub edge excluded)", raw["a"])
	}
}

// TestDegreeCentrality_Range tests normalization into [0,1]
func TestDegreeCentrality_Range(t *testing.T) {
	s := graph.NewState()
	for _, id := range []string{"a", "b", "c"} {
		addPrimary(t, s, id, "10.0.0."+id)
	}
	mustEdge(t, s, "a", "b")
	mustEdge(t, s, "b", "c")
	mustEdge(t, s, "c", "a")

	raw := RawDegrees(s)
	centrality := DegreeCentrality(s, ClusterNormalizedDegrees(s, raw))
	for id, c := range centrality {
		if c != 1.0 {
			t.Errorf("centrality[%s] = %v, want 1.0 in complete K3", id, c)
		}
	}

	single := graph.NewState()
	addPrimary(t, single, "only", "10.0.0.1")
	if got := DegreeCentrality(single, RawDegrees(single))["only"]; got != 0 {
		t.Errorf("single-node centrality = %v, want 0", got)
	}
}

// TestHubThreshold_Monotonic tests that raising a node's degree never lowers the cutoff
func TestHubThreshold_Monotonic(t *testing.T) {
	build := func(extraEdges int) float64 {
		s := graph.NewState()
		names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
		for _, id := range names {
			addPrimary(t, s, id, "10.1.0."+id)
		}
		// Chain baseline.
		for i := 0; i+1 < len(names); i++ {
			mustEdge(t, s, names[i], names[i+1])
		}
		// Extra edges fan out from "a".
		for i := 0; i < extraEdges; i++ {
			mustEdge(t, s, "a", names[2+i])
		}
		raw := RawDegrees(s)
		centrality := DegreeCentrality(s, ClusterNormalizedDegrees(s, raw))
		return HubThreshold(s, centrality)
	}

	prev := build(0)
	for extra := 1; extra <= 6; extra++ {
		cur := build(extra)
		if cur < prev {
			t.Fatalf("threshold decreased from %v to %v after adding degree", prev, cur)
		}
		prev = cur
	}
}

// TestHubThreshold_Empty tests the zero-primaries edge case
func TestHubThreshold_Empty(t *testing.T) {
	s := graph.NewState()
	if got := HubThreshold(s, nil); got != 0 {
		t.Errorf("HubThreshold on empty graph = %v, want 0", got)
	}
}

// TestHubs_FlagsAtOrAboveThreshold tests the hub flag rule
func TestHubs_FlagsAtOrAboveThreshold(t *testing.T) {
	s := graph.NewState()
	for _, id := range []string{"a", "b", "c"} {
		addPrimary(t, s, id, "10.0.0."+id)
	}
	mustEdge(t, s, "a", "b")
	mustEdge(t, s, "b", "c")
	mustEdge(t, s, "c", "a")

	centrality := DegreeCentrality(s, ClusterNormalizedDegrees(s, RawDegrees(s)))
	threshold := HubThreshold(s, centrality)
	if threshold != 1.0 {
		t.Fatalf("threshold = %v, want 1.0", threshold)
	}
	hubs := Hubs(s, centrality, threshold)
	if len(hubs) != 3 {
		t.Errorf("hubs = %v, want all three flagged", hubs)
	}
}

// TestImportanceWeights_RangeAndBlend tests the composite weight
func TestImportanceWeights_RangeAndBlend(t *testing.T) {
	s := graph.NewState()
	addPrimary(t, s, "big", "10.0.0.1")
	addPrimary(t, s, "mid", "10.0.0.2")
	addPrimary(t, s, "small", "10.0.0.3")
	mustEdge(t, s, "big", "mid")
	mustEdge(t, s, "big", "small")
	s.GetNode("big").Bandwidth = &directory.Bandwidth{DownloadSpeed: 800, UploadSpeed: 200}
	s.GetNode("mid").Bandwidth = &directory.Bandwidth{DownloadSpeed: 50, UploadSpeed: 50}

	raw := RawDegrees(s)
	centrality := DegreeCentrality(s, ClusterNormalizedDegrees(s, raw))
	weights := ImportanceWeights(s, raw, centrality)

	for id, w := range weights {
		if w < 0 || w > 1 {
			t.Errorf("weight[%s] = %v outside [0,1]", id, w)
		}
	}
	// "big" maxes every component.
	if math.Abs(weights["big"]-1.0) > 1e-12 {
		t.Errorf("weights[big] = %v, want 1.0", weights["big"])
	}
	if weights["mid"] <= weights["small"] {
		t.Errorf("expected mid (%v) > small (%v)", weights["mid"], weights["small"])
	}
}

// TestImportanceWeights_ZeroGraph tests the epsilon floor
func TestImportanceWeights_ZeroGraph(t *testing.T) {
	s := graph.NewState()
	addPrimary(t, s, "a", "10.0.0.1")

	weights := ImportanceWeights(s, RawDegrees(s), map[string]float64{"a": 0})
	if weights["a"] != 0 {
		t.Errorf("weights[a] = %v, want 0 without dividing by zero", weights["a"])
	}
}
