package atlas

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodeatlas/nodeatlas/pkg/algorithms"
	"github.com/nodeatlas/nodeatlas/pkg/assemble"
	"github.com/nodeatlas/nodeatlas/pkg/cache"
	"github.com/nodeatlas/nodeatlas/pkg/diagnostics"
	"github.com/nodeatlas/nodeatlas/pkg/directory"
	"github.com/nodeatlas/nodeatlas/pkg/events"
	"github.com/nodeatlas/nodeatlas/pkg/graph"
	"github.com/nodeatlas/nodeatlas/pkg/logging"
	"github.com/nodeatlas/nodeatlas/pkg/metrics"
	"github.com/nodeatlas/nodeatlas/pkg/pubsub"
	"github.com/nodeatlas/nodeatlas/pkg/visualization"
)

// TopicBuilds is the in-process pubsub topic build notices are published on.
const TopicBuilds = "builds"

// ErrBuildInProgress is returned when Run is called while a build is already
// running. There is no cancellation; the caller retries later.
var ErrBuildInProgress = errors.New("a build is already in progress")

// Config is the full pipeline configuration.
type Config struct {
	Assembly assemble.Config
	Caps     graph.Caps
	Layout   visualization.Config

	// SampleCap bounds the node count entering metrics and layout. Zero
	// means unlimited. When exceeded, lowest-degree nodes are dropped
	// (stubs before primaries) and counted in diagnostics.
	SampleCap int

	// Source labels the build's data origin in its meta block, e.g.
	// "crawler" or "file".
	Source string
}

// Deps are the builder's collaborators. All of them are optional; a nil
// field disables that integration.
type Deps struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	Cache   *cache.Store
	Bus     *pubsub.PubSub
	Events  *events.Publisher
}

// Builder runs builds one at a time and holds the current artifact. The
// previous build stays readable while a new one runs; a failed attempt
// records its error alongside, never instead of, the last-good build.
type Builder struct {
	cfg    Config
	logger logging.Logger
	reg    *metrics.Registry
	store  *cache.Store
	bus    *pubsub.PubSub
	pub    *events.Publisher

	// Injectable for deterministic test replay.
	now    func() time.Time
	newRNG func() *rand.Rand

	mu          sync.RWMutex
	building    bool
	current     *Build
	lastError   string
	lastAttempt time.Time
}

// NewBuilder wires a builder from config and collaborators.
func NewBuilder(cfg Config, deps Deps) *Builder {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Builder{
		cfg:    cfg,
		logger: logger.With(logging.Component("builder")),
		reg:    deps.Metrics,
		store:  deps.Cache,
		bus:    deps.Bus,
		pub:    deps.Events,
		now:    time.Now,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// begin claims the single build slot.
func (b *Builder) begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.building {
		return ErrBuildInProgress
	}
	b.building = true
	b.lastAttempt = b.now()
	return nil
}

func (b *Builder) end() {
	b.mu.Lock()
	b.building = false
	b.mu.Unlock()
}

// Run executes the full pipeline over the given peer reports and publishes
// the resulting build as current. Only one build may be in flight.
func (b *Builder) Run(reports []directory.PeerReport) (*Build, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	defer b.end()
	return b.run(reports), nil
}

// RunWith claims the build slot before invoking fetch, so concurrent
// triggers cannot crawl twice: the loser gets ErrBuildInProgress without its
// fetch ever starting. A fetch error is recorded as a failed attempt and the
// last completed build stays current.
func (b *Builder) RunWith(fetch func() ([]directory.PeerReport, error)) (*Build, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	defer b.end()

	reports, err := fetch()
	if err != nil {
		b.recordFailure(err)
		return nil, err
	}
	return b.run(reports), nil
}

func (b *Builder) run(reports []directory.PeerReport) *Build {
	startedAt := b.now()
	build := b.pipeline(reports, startedAt)

	b.mu.Lock()
	b.current = build
	b.lastError = ""
	b.mu.Unlock()

	b.logger.Info("build completed",
		logging.String("build_id", build.BuildID),
		logging.Int("nodes", build.Stats.TotalNodes),
		logging.Int("edges", build.Stats.TotalEdgesTrimmed),
		logging.Int("hubs", build.Stats.HubCount),
		logging.Duration("duration", time.Duration(build.DurationMs)*time.Millisecond))

	if b.reg != nil {
		b.reg.RecordBuild("success",
			time.Duration(build.DurationMs)*time.Millisecond,
			build.Stats.TotalNodes,
			build.Stats.TotalEdgesTrimmed,
			build.Stats.HubCount,
			build.Stats.Diagnostics["ambiguousResolutions"],
			build.Stats.Diagnostics["droppedPeers"])
	}

	b.persist(build)
	b.notify(build, nil)

	return build
}

// RecordFailure records a whole-pipeline failure (usually the upstream
// directory fetch). The last completed build stays current.
func (b *Builder) RecordFailure(err error) {
	b.mu.Lock()
	b.lastAttempt = b.now()
	b.mu.Unlock()
	b.recordFailure(err)
}

func (b *Builder) recordFailure(err error) {
	b.mu.Lock()
	b.lastError = err.Error()
	b.mu.Unlock()

	b.logger.Error("build failed", logging.Error(err))
	if b.reg != nil {
		b.reg.RecordBuild("error", 0, 0, 0, 0, 0, 0)
	}
	b.notify(nil, err)
}

// Current returns the current build, or nil before the first completion.
// The returned snapshot is immutable; callers must not modify it.
func (b *Builder) Current() *Build {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Status describes the builder for the status endpoint.
type Status struct {
	Building        bool      `json:"building"`
	LastBuildID     string    `json:"lastBuildId,omitempty"`
	LastCompletedAt time.Time `json:"lastCompletedAt,omitzero"`
	LastAttemptAt   time.Time `json:"lastAttemptAt,omitzero"`
	LastError       string    `json:"lastError,omitempty"`
	NodeCount       int       `json:"nodeCount"`
	EdgeCount       int       `json:"edgeCount"`
}

// Status snapshots the builder state.
func (b *Builder) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Status{
		Building:      b.building,
		LastAttemptAt: b.lastAttempt,
		LastError:     b.lastError,
	}
	if b.current != nil {
		st.LastBuildID = b.current.BuildID
		st.LastCompletedAt = b.current.CompletedAt
		st.NodeCount = b.current.Stats.TotalNodes
		st.EdgeCount = b.current.Stats.TotalEdgesTrimmed
	}
	return st
}

// LoadCached restores the last persisted build as current, so the server can
// serve a graph before the first crawl finishes. Missing cache is not an
// error; a corrupt one is.
func (b *Builder) LoadCached() error {
	if b.store == nil {
		return nil
	}
	data, err := b.store.Load()
	if err != nil {
		return fmt.Errorf("load cached build: %w", err)
	}
	if data == nil {
		return nil
	}
	var build Build
	if err := json.Unmarshal(data, &build); err != nil {
		return fmt.Errorf("decode cached build: %w", err)
	}

	b.mu.Lock()
	b.current = &build
	b.mu.Unlock()

	b.logger.Info("restored cached build",
		logging.String("build_id", build.BuildID),
		logging.Int("nodes", build.Stats.TotalNodes))
	return nil
}

// pipeline is the sequential core pass: assemble, trim, sample, metrics,
// layout, artifact.
func (b *Builder) pipeline(reports []directory.PeerReport, startedAt time.Time) *Build {
	diag := &diagnostics.Build{}

	state := assemble.New(b.cfg.Assembly, b.newRNG()).Build(reports, diag)
	rawEdges := state.EdgeCount()

	state.EnforceCaps(b.cfg.Caps, diag)
	b.sample(state, diag)

	raw := algorithms.RawDegrees(state)
	normalized := algorithms.ClusterNormalizedDegrees(state, raw)
	centrality := algorithms.DegreeCentrality(state, normalized)
	threshold := algorithms.HubThreshold(state, centrality)
	hubs := algorithms.Hubs(state, centrality, threshold)
	weights := algorithms.ImportanceWeights(state, raw, centrality)

	layout := visualization.New(b.cfg.Layout).Compute(state, weights, startedAt)

	completedAt := b.now()
	build := &Build{
		BuildID:     uuid.NewString(),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		Bounds:      layout.Bounds,
		Meta: Meta{
			Axis:           "xy",
			HubThreshold:   threshold,
			LayoutStrategy: string(layout.Strategy),
			Source:         b.cfg.Source,
		},
	}

	stubs := 0
	tierTotals := make(map[string]int)
	statusTotals := make(map[string]int)
	build.Nodes = make([]BuildNode, 0, state.NodeCount())
	for _, id := range state.NodeIDs() {
		node := state.GetNode(id)
		if node.IsStub() {
			stubs++
		} else {
			tierTotals[node.Tier]++
			statusTotals[node.Status]++
		}

		label := node.Host
		if label == "" {
			label = id
		}
		meta := NodeMeta{Host: node.Host, Importance: weights[id]}
		if node.Record != nil {
			meta.PaymentAddress = node.Record.PaymentAddress
			meta.ConfirmHeight = node.Record.ConfirmHeight
		}
		build.Nodes = append(build.Nodes, BuildNode{
			ID:       id,
			Label:    label,
			Tier:     node.Tier,
			Kind:     string(node.Kind),
			Status:   node.Status,
			IsArcane: node.Arcane,
			IsHub:    hubs[id],
			Metrics: NodeMetrics{
				Degree:           normalized[id],
				DegreeCentrality: centrality[id],
				ConnectionCount:  state.Degree(id),
				IncomingPeers:    state.IncomingCount(id),
				OutgoingPeers:    state.OutgoingCount(id),
			},
			Position: layout.Positions[id],
			Meta:     meta,
		})
	}

	build.Edges = make([]BuildEdge, 0, state.EdgeCount())
	for _, key := range state.EdgeKeys() {
		edge := state.GetEdge(key)
		kind := EdgeKindPeer
		if edge.Stub {
			kind = EdgeKindStub
		}
		build.Edges = append(build.Edges, BuildEdge{
			ID:     edge.Key,
			Source: edge.Source,
			Target: edge.Target,
			Weight: edge.Weight,
			Kind:   kind,
		})
	}

	build.Stats = Stats{
		TotalNodes:        state.NodeCount(),
		TotalEdgesRaw:     rawEdges,
		TotalEdgesTrimmed: state.EdgeCount(),
		StubCount:         stubs,
		HubCount:          len(hubs),
		TierTotals:        tierTotals,
		StatusTotals:      statusTotals,
		BuildDurationMs:   build.DurationMs,
		Diagnostics:       diag.Snapshot(),
	}
	return build
}

// sample drops lowest-value nodes when the graph exceeds the sampling cap:
// stubs before primaries, lower degree before higher, id for determinism.
func (b *Builder) sample(state *graph.State, diag *diagnostics.Build) {
	limit := b.cfg.SampleCap
	if limit <= 0 || state.NodeCount() <= limit {
		return
	}

	ids := state.NodeIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		ni, nj := state.GetNode(ids[i]), state.GetNode(ids[j])
		if ni.IsStub() != nj.IsStub() {
			return !ni.IsStub()
		}
		di, dj := state.Degree(ids[i]), state.Degree(ids[j])
		if di != dj {
			return di > dj
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids[limit:] {
		state.RemoveNode(id)
		diag.SampledOutNodes++
	}
}

// persist saves the build to the cache file. Best-effort: failures are
// logged, the build is still current.
func (b *Builder) persist(build *Build) {
	if b.store == nil {
		return
	}
	data, err := json.Marshal(build)
	if err != nil {
		b.logger.Error("marshal build for cache", logging.Error(err))
		return
	}
	if err := b.store.Save(data); err != nil {
		b.logger.Warn("persist build cache", logging.Error(err))
	}
}

// notify fans the build notice out to the in-process bus and the external
// event socket.
func (b *Builder) notify(build *Build, failure error) {
	notice := events.BuildNotice{CompletedAt: b.now()}
	topic := events.TopicBuildCompleted
	if failure != nil {
		topic = events.TopicBuildFailed
		notice.Error = failure.Error()
	} else {
		notice.BuildID = build.BuildID
		notice.CompletedAt = build.CompletedAt
		notice.Nodes = build.Stats.TotalNodes
		notice.Edges = build.Stats.TotalEdgesTrimmed
		notice.Hubs = build.Stats.HubCount
		notice.Strategy = build.Meta.LayoutStrategy
	}

	if b.bus != nil {
		b.bus.Publish(TopicBuilds, notice)
	}
	if b.pub != nil {
		b.pub.Publish(topic, notice)
	}
}
