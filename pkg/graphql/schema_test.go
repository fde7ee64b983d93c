package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/graphql-go/graphql"

	"github.com/nodeatlas/nodeatlas/pkg/atlas"
	"github.com/nodeatlas/nodeatlas/pkg/visualization"
)

// fakeSource serves a fixed build.
type fakeSource struct {
	build  *atlas.Build
	status atlas.Status
}

func (f *fakeSource) Current() *atlas.Build { return f.build }
func (f *fakeSource) Status() atlas.Status  { return f.status }

func testBuild() *atlas.Build {
	return &atlas.Build{
		BuildID: "b-1",
		Nodes: []atlas.BuildNode{
			{
				ID: "10.0.0.1", Label: "10.0.0.1", Tier: "full", Kind: "primary", IsHub: true,
				Metrics:  atlas.NodeMetrics{Degree: 2, DegreeCentrality: 1.0, ConnectionCount: 2},
				Position: visualization.Position{X: 10, Y: -4},
			},
			{ID: "10.0.0.2", Label: "10.0.0.2", Tier: "light", Kind: "primary"},
			{ID: "198.51.100.7:9440", Kind: "stub"},
		},
		Edges: []atlas.BuildEdge{
			{ID: "10.0.0.1--10.0.0.2", Source: "10.0.0.1", Target: "10.0.0.2", Weight: 1, Kind: atlas.EdgeKindPeer},
			{ID: "10.0.0.1--198.51.100.7:9440", Source: "10.0.0.1", Target: "198.51.100.7:9440", Weight: 1, Kind: atlas.EdgeKindStub},
		},
		Stats: atlas.Stats{TotalNodes: 3, TotalEdgesTrimmed: 2, HubCount: 1},
		Meta:  atlas.Meta{LayoutStrategy: "force", HubThreshold: 1.0, Source: "test"},
	}
}

func execQuery(t *testing.T, source BuildSource, query string) map[string]any {
	t.Helper()

	schema, err := NewSchema(source)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query})
	if result.HasErrors() {
		t.Fatalf("query errors: %v", result.Errors)
	}
	return result.Data.(map[string]any)
}

// TestNodeByID tests the single-node lookup
func TestNodeByID(t *testing.T) {
	data := execQuery(t, &fakeSource{build: testBuild()},
		`{ node(id: "10.0.0.1") { id tier isHub metrics { degree degreeCentrality } position { x y } } }`)

	node := data["node"].(map[string]any)
	if node["id"] != "10.0.0.1" || node["tier"] != "full" || node["isHub"] != true {
		t.Errorf("node = %v", node)
	}
	m := node["metrics"].(map[string]any)
	if m["degree"].(float64) != 2 || m["degreeCentrality"].(float64) != 1.0 {
		t.Errorf("metrics = %v", m)
	}
	pos := node["position"].(map[string]any)
	if pos["x"].(float64) != 10 || pos["y"].(float64) != -4 {
		t.Errorf("position = %v", pos)
	}
}

// TestNodeFilters tests hub and tier filtering with a limit
func TestNodeFilters(t *testing.T) {
	src := &fakeSource{build: testBuild()}

	data := execQuery(t, src, `{ nodes(hubsOnly: true) { id } }`)
	if got := data["nodes"].([]any); len(got) != 1 {
		t.Errorf("hubsOnly returned %d nodes, want 1", len(got))
	}

	data = execQuery(t, src, `{ nodes(tier: "light") { id } }`)
	nodes := data["nodes"].([]any)
	if len(nodes) != 1 || nodes[0].(map[string]any)["id"] != "10.0.0.2" {
		t.Errorf("tier filter = %v", nodes)
	}

	data = execQuery(t, src, `{ nodes(limit: 2) { id } }`)
	if got := data["nodes"].([]any); len(got) != 2 {
		t.Errorf("limit returned %d nodes, want 2", len(got))
	}
}

// TestEdgeKindFilter tests stub/peer edge filtering
func TestEdgeKindFilter(t *testing.T) {
	data := execQuery(t, &fakeSource{build: testBuild()}, `{ edges(kind: "stub") { id kind } }`)
	edges := data["edges"].([]any)
	if len(edges) != 1 || edges[0].(map[string]any)["kind"] != "stub" {
		t.Errorf("edges = %v", edges)
	}
}

// TestStatsAndMeta tests the scalar blocks
func TestStatsAndMeta(t *testing.T) {
	data := execQuery(t, &fakeSource{build: testBuild()},
		`{ stats { totalNodes hubCount } build { buildId layoutStrategy hubThreshold } }`)

	stats := data["stats"].(map[string]any)
	if stats["totalNodes"].(int) != 3 || stats["hubCount"].(int) != 1 {
		t.Errorf("stats = %v", stats)
	}
	build := data["build"].(map[string]any)
	if build["buildId"] != "b-1" || build["layoutStrategy"] != "force" {
		t.Errorf("build = %v", build)
	}
}

// TestNoBuildYet tests that data queries error before the first build while
// health stays green
func TestNoBuildYet(t *testing.T) {
	schema, err := NewSchema(&fakeSource{})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	result := graphql.Do(graphql.Params{Schema: schema, RequestString: `{ stats { totalNodes } }`})
	if !result.HasErrors() {
		t.Error("stats query succeeded with no build")
	}

	result = graphql.Do(graphql.Params{Schema: schema, RequestString: `{ health }`})
	if result.HasErrors() || result.Data.(map[string]any)["health"] != "ok" {
		t.Errorf("health = %v errs=%v", result.Data, result.Errors)
	}
}

// TestHandler_POST tests the HTTP transport end to end
func TestHandler_POST(t *testing.T) {
	schema, err := NewSchema(&fakeSource{build: testBuild()})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	h := NewHandler(schema)

	body, _ := json.Marshal(Request{Query: `{ stats { totalNodes } }`})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	stats := resp.Data.(map[string]any)["stats"].(map[string]any)
	if stats["totalNodes"].(float64) != 3 {
		t.Errorf("totalNodes = %v", stats["totalNodes"])
	}
}

// TestHandler_MethodNotAllowed tests the GET rejection
func TestHandler_MethodNotAllowed(t *testing.T) {
	schema, err := NewSchema(&fakeSource{})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	rec := httptest.NewRecorder()
	NewHandler(schema).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}
}
