package graph

import (
	"fmt"
	"testing"

	"github.com/nodeatlas/nodeatlas/pkg/diagnostics"
)

// buildStubbyGraph creates 3 primaries in a triangle plus n stubs hanging off "a"
func buildStubbyGraph(t *testing.T, stubs int) *State {
	t.Helper()

	s := buildTriangle(t)
	for i := 0; i < stubs; i++ {
		id := fmt.Sprintf("stub-%02d", i)
		s.AddNode(stubNode(id))
		if _, _, err := s.AddEdge("a", id, 1); err != nil {
			t.Fatalf("AddEdge(a, %s): %v", id, err)
		}
	}
	return s
}

// TestStubCap_ZeroRemovesAll tests the "no stubs" sentinel
func TestStubCap_ZeroRemovesAll(t *testing.T) {
	s := buildStubbyGraph(t, 4)
	diag := &diagnostics.Build{}

	s.EnforceCaps(Caps{MaxStubs: 0}, diag)

	for _, id := range s.NodeIDs() {
		if s.GetNode(id).IsStub() {
			t.Errorf("stub %s survived a zero stub cap", id)
		}
	}
	if diag.StubsCapRemoved != 4 {
		t.Errorf("StubsCapRemoved = %d, want 4", diag.StubsCapRemoved)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// TestStubCap_KeepsHighestDegree tests that the excess lowest-degree stubs go
func TestStubCap_KeepsHighestDegree(t *testing.T) {
	s := buildStubbyGraph(t, 3)
	// Give stub-00 a second edge so it outranks the others.
	if _, _, err := s.AddEdge("b", "stub-00", 1); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	diag := &diagnostics.Build{}

	s.EnforceCaps(Caps{MaxStubs: 1, MaxDegree: 0, MaxEdges: 0}, diag)

	if s.GetNode("stub-00") == nil {
		t.Error("highest-degree stub should survive")
	}
	if s.GetNode("stub-01") != nil || s.GetNode("stub-02") != nil {
		t.Error("excess stubs should be removed")
	}
}

// TestDegreeCap_Invariant tests that no node exceeds the cap afterwards
func TestDegreeCap_Invariant(t *testing.T) {
	s := buildStubbyGraph(t, 5)
	diag := &diagnostics.Build{}

	s.EnforceCaps(Caps{MaxStubs: 10, MaxDegree: 3, MaxEdges: 0}, diag)

	for _, id := range s.NodeIDs() {
		if d := s.Degree(id); d > 3 {
			t.Errorf("node %s degree %d exceeds cap 3", id, d)
		}
	}
	if diag.EdgesTrimmedByDegree == 0 {
		t.Error("expected degree trimming to fire")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// TestDegreeCap_PrefersStubEdges tests the removal priority class
func TestDegreeCap_PrefersStubEdges(t *testing.T) {
	s := buildStubbyGraph(t, 2)
	diag := &diagnostics.Build{}

	// "a" has degree 4: two primary links (b, c) and two stub links.
	s.EnforceCaps(Caps{MaxStubs: 10, MaxDegree: 2, MaxEdges: 0}, diag)

	if s.GetEdge(EdgeKey("a", "b")) == nil || s.GetEdge(EdgeKey("a", "c")) == nil {
		t.Error("primary-primary links must outlive stub links under the degree cap")
	}
	if s.Degree("a") != 2 {
		t.Errorf("Degree(a) = %d, want 2", s.Degree("a"))
	}
}

// TestDegreeCap_ZeroMeansUnlimited tests the sentinel semantics
func TestDegreeCap_ZeroMeansUnlimited(t *testing.T) {
	s := buildStubbyGraph(t, 5)
	before := s.EdgeCount()
	diag := &diagnostics.Build{}

	s.EnforceCaps(Caps{MaxStubs: 10, MaxDegree: 0, MaxEdges: 0}, diag)

	if s.EdgeCount() != before {
		t.Errorf("EdgeCount changed %d -> %d under unlimited caps", before, s.EdgeCount())
	}
}

// TestEdgeCap_Invariant tests the global edge budget
func TestEdgeCap_Invariant(t *testing.T) {
	s := buildStubbyGraph(t, 6)
	diag := &diagnostics.Build{}

	s.EnforceCaps(Caps{MaxStubs: 10, MaxDegree: 0, MaxEdges: 4}, diag)

	if s.EdgeCount() > 4 {
		t.Errorf("EdgeCount = %d, want <= 4", s.EdgeCount())
	}
	if diag.EdgesTrimmedByCap == 0 {
		t.Error("expected global trimming to fire")
	}
	// Stub edges are sacrificed before the primary triangle.
	for _, pair := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}} {
		if s.GetEdge(EdgeKey(pair[0], pair[1])) == nil {
			t.Errorf("primary edge %v trimmed before stub edges", pair)
		}
	}
}

// TestIsolatedStubPruning tests that orphaned stubs are swept at the end
func TestIsolatedStubPruning(t *testing.T) {
	s := buildStubbyGraph(t, 3)
	diag := &diagnostics.Build{}

	// Degree cap 2 on "a" strips every stub edge, isolating all three stubs.
	s.EnforceCaps(Caps{MaxStubs: 10, MaxDegree: 2, MaxEdges: 0}, diag)

	for _, id := range s.NodeIDs() {
		node := s.GetNode(id)
		if node.IsStub() && s.Degree(id) == 0 {
			t.Errorf("isolated stub %s survived pruning", id)
		}
	}
	if diag.IsolatedStubsPruned != 3 {
		t.Errorf("IsolatedStubsPruned = %d, want 3", diag.IsolatedStubsPruned)
	}
}

// TestTrimOrder_StubCapBeforeDegreeCap tests that policies run in the fixed order
func TestTrimOrder_StubCapBeforeDegreeCap(t *testing.T) {
	s := buildStubbyGraph(t, 4)
	diag := &diagnostics.Build{}

	// With the stub cap first, 3 stubs vanish before degree trimming, so the
	// degree cap only needs to strip one stub edge from "a".
	s.EnforceCaps(Caps{MaxStubs: 1, MaxDegree: 2, MaxEdges: 0}, diag)

	if diag.StubsCapRemoved != 3 {
		t.Errorf("StubsCapRemoved = %d, want 3", diag.StubsCapRemoved)
	}
	if diag.EdgesTrimmedByDegree != 1 {
		t.Errorf("EdgesTrimmedByDegree = %d, want 1", diag.EdgesTrimmedByDegree)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
