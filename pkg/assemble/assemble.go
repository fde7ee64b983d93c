// Package assemble reconstructs the network topology from per-node peer
// self-reports. Reports name peers by address, which may be shared by
// several logical nodes behind address translation, so every reported peer
// resolves to zero, one, or many candidate identities.
package assemble

import (
	"math/rand"
	"sort"
	"strconv"

	"github.com/nodeatlas/nodeatlas/pkg/diagnostics"
	"github.com/nodeatlas/nodeatlas/pkg/directory"
	"github.com/nodeatlas/nodeatlas/pkg/graph"
	"github.com/nodeatlas/nodeatlas/pkg/identity"
)

// Config controls assembly behavior.
type Config struct {
	// DefaultPort is the RPC port assumed when an address carries none.
	DefaultPort int
	// IncludeExternalPeers synthesizes stub nodes for peer addresses not
	// present in the directory. When false such peers are dropped (counted).
	IncludeExternalPeers bool
}

// Assembler builds a graph.State from crawler peer reports. The RNG is
// injected so ambiguous-resolution tie-breaks replay deterministically in
// tests.
type Assembler struct {
	cfg Config
	rng *rand.Rand
}

// New returns an assembler with the given config and tie-break RNG.
func New(cfg Config, rng *rand.Rand) *Assembler {
	return &Assembler{cfg: cfg, rng: rng}
}

// Build instantiates nodes for every report, resolves each outgoing peer
// address against the directory, and materializes the deduplicated edge set.
// Incoming peer lists only feed the per-node inbound counter; creating edges
// from both sides' reports would double them.
func (a *Assembler) Build(reports []directory.PeerReport, diag *diagnostics.Build) *graph.State {
	state := graph.NewState()
	defaultPort := strconv.Itoa(a.cfg.DefaultPort)

	// Pass 1: one node per directory record.
	ids := make([]string, len(reports))
	for i := range reports {
		rec := &reports[i].Node
		id := identity.NodeID(rec.Collateral, rec.Address)
		ids[i] = id
		if id == "" {
			diag.MalformedAddresses++
			continue
		}
		if reports[i].Unreachable {
			diag.UnreachableNodes++
		}
		created := state.AddNode(&graph.Node{
			ID:        id,
			Kind:      graph.KindPrimary,
			Host:      identity.ParseAddress(rec.Address).Host,
			Tier:      rec.Tier,
			Status:    rec.Status,
			Arcane:    reports[i].Arcane,
			Record:    rec,
			Bandwidth: reports[i].Bandwidth,
		})
		// Two directory records collapsing onto one id (shared host, no
		// collateral): first record wins, the collision is counted.
		if !created {
			diag.DuplicateNodeIDs++
		}
	}

	lookup := buildLookup(state, reports, ids, defaultPort)

	// Pass 2: resolve outgoing peers into edges.
	for i := range reports {
		source := ids[i]
		if source == "" {
			continue
		}
		outgoing := 0
		seen := make(map[string]struct{})
		for _, raw := range reports[i].OutgoingPeers {
			ep := identity.ParseAddress(raw)
			if !ep.IsValid() {
				diag.MalformedAddresses++
				continue
			}
			if _, dup := seen[ep.HostPortKey(defaultPort)]; !dup {
				seen[ep.HostPortKey(defaultPort)] = struct{}{}
				outgoing++
			}

			target, ok := a.resolve(lookup, ep, defaultPort, diag)
			if !ok {
				if !a.cfg.IncludeExternalPeers {
					diag.DroppedPeers++
					continue
				}
				target = a.synthesizeStub(state, raw, ep, diag)
			}
			if target == source {
				diag.SelfEdges++
				continue
			}
			if _, created, err := state.AddEdge(source, target, 1); err == nil && !created {
				diag.DuplicateEdges++
			}
		}
		state.SetOutgoingCount(source, outgoing)
		state.SetIncomingCount(source, countDistinct(reports[i].IncomingPeers, defaultPort, diag))
	}

	return state
}

// addressLookup disambiguates peer addresses: host:port keys map to the
// nodes listening there (using each node's own effective port), bare-host
// keys map to every node sharing the address.
type addressLookup struct {
	byHostPort map[string][]string
	byHost     map[string][]string
}

func buildLookup(state *graph.State, reports []directory.PeerReport, ids []string, defaultPort string) *addressLookup {
	l := &addressLookup{
		byHostPort: make(map[string][]string),
		byHost:     make(map[string][]string),
	}
	for i := range reports {
		id := ids[i]
		if id == "" || !state.HasNode(id) {
			continue
		}
		ep := identity.ParseAddress(reports[i].Node.Address)
		if !ep.IsValid() {
			continue
		}
		l.byHost[ep.HostKey()] = appendUnique(l.byHost[ep.HostKey()], id)
		key := ep.HostPortKey(defaultPort)
		l.byHostPort[key] = appendUnique(l.byHostPort[key], id)
	}
	for _, m := range []map[string][]string{l.byHostPort, l.byHost} {
		for k := range m {
			sort.Strings(m[k])
		}
	}
	return l
}

// resolve applies the strict priority order: exact host:port (the peer's own
// port when it gave one, the default RPC port otherwise), then bare host.
// The bare-host fallback can yield a whole address cluster; one member is
// chosen uniformly at random per edge so no single node behind the shared
// address becomes the systematic target of every report.
func (a *Assembler) resolve(l *addressLookup, ep identity.Endpoint, defaultPort string, diag *diagnostics.Build) (string, bool) {
	if c := l.byHostPort[ep.HostPortKey(defaultPort)]; len(c) > 0 {
		return a.pick(c, diag), true
	}
	if c := l.byHost[ep.HostKey()]; len(c) > 0 {
		return a.pick(c, diag), true
	}
	return "", false
}

func (a *Assembler) pick(candidates []string, diag *diagnostics.Build) string {
	if len(candidates) == 1 {
		return candidates[0]
	}
	diag.AmbiguousResolutions++
	return candidates[a.rng.Intn(len(candidates))]
}

// synthesizeStub creates (or reuses) the stub node keyed by the raw peer
// address and returns its id.
func (a *Assembler) synthesizeStub(state *graph.State, raw string, ep identity.Endpoint, diag *diagnostics.Build) string {
	if !state.HasNode(raw) {
		state.AddNode(&graph.Node{
			ID:   raw,
			Kind: graph.KindStub,
			Host: ep.Host,
		})
		diag.StubsCreated++
	}
	return raw
}

func countDistinct(addrs []string, defaultPort string, diag *diagnostics.Build) int {
	seen := make(map[string]struct{})
	for _, raw := range addrs {
		ep := identity.ParseAddress(raw)
		if !ep.IsValid() {
			diag.MalformedAddresses++
			continue
		}
		seen[ep.HostPortKey(defaultPort)] = struct{}{}
	}
	return len(seen)
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}
