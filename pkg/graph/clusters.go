package graph

import "sort"

// Cluster is the set of nodes sharing one normalized host address, typically
// because they sit behind shared address translation. Stub nodes and nodes
// without a parseable host form singleton clusters keyed by their own id.
type Cluster struct {
	Key     string
	Members []string // node ids, sorted
}

// AddressClusters groups the current nodes by normalized host (port
// ignored). Clusters are returned sorted by key so iteration is
// deterministic.
func (s *State) AddressClusters() []*Cluster {
	byKey := make(map[string][]string)
	for id, node := range s.nodes {
		key := id
		if !node.IsStub() && node.Host != "" {
			key = node.Host
		}
		byKey[key] = append(byKey[key], id)
	}

	clusters := make([]*Cluster, 0, len(byKey))
	for key, members := range byKey {
		sort.Strings(members)
		clusters = append(clusters, &Cluster{Key: key, Members: members})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Key < clusters[j].Key })
	return clusters
}
