// Package graphql exposes the current build over a read-only GraphQL
// endpoint: node by id, filtered node and edge lists, stats, build meta and
// builder status.
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/nodeatlas/nodeatlas/pkg/atlas"
)

// BuildSource supplies the current build and builder state. *atlas.Builder
// satisfies it.
type BuildSource interface {
	Current() *atlas.Build
	Status() atlas.Status
}

// NewSchema builds the static query schema over source.
func NewSchema(source BuildSource) (graphql.Schema, error) {
	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Position",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
		},
	})

	metricsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NodeMetrics",
		Fields: graphql.Fields{
			"degree":           &graphql.Field{Type: graphql.Float},
			"degreeCentrality": &graphql.Field{Type: graphql.Float},
			"connectionCount":  &graphql.Field{Type: graphql.Int},
			"incomingPeers":    &graphql.Field{Type: graphql.Int},
			"outgoingPeers":    &graphql.Field{Type: graphql.Int},
		},
	})

	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"label":    &graphql.Field{Type: graphql.String},
			"tier":     &graphql.Field{Type: graphql.String},
			"kind":     &graphql.Field{Type: graphql.String},
			"status":   &graphql.Field{Type: graphql.String},
			"isArcane": &graphql.Field{Type: graphql.Boolean},
			"isHub":    &graphql.Field{Type: graphql.Boolean},
			"metrics":  &graphql.Field{Type: metricsType},
			"position": &graphql.Field{Type: positionType},
		},
	})

	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"source": &graphql.Field{Type: graphql.String},
			"target": &graphql.Field{Type: graphql.String},
			"weight": &graphql.Field{Type: graphql.Float},
			"kind":   &graphql.Field{Type: graphql.String},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"totalNodes":        &graphql.Field{Type: graphql.Int},
			"totalEdgesRaw":     &graphql.Field{Type: graphql.Int},
			"totalEdgesTrimmed": &graphql.Field{Type: graphql.Int},
			"stubCount":         &graphql.Field{Type: graphql.Int},
			"hubCount":          &graphql.Field{Type: graphql.Int},
			"buildDurationMs":   &graphql.Field{Type: graphql.Int},
		},
	})

	buildMetaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BuildMeta",
		Fields: graphql.Fields{
			"buildId": &graphql.Field{
				Type: graphql.ID,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*atlas.Build).BuildID, nil
				},
			},
			"startedAt": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*atlas.Build).StartedAt, nil
				},
			},
			"completedAt": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*atlas.Build).CompletedAt, nil
				},
			},
			"durationMs": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(*atlas.Build).DurationMs), nil
				},
			},
			"hubThreshold": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*atlas.Build).Meta.HubThreshold, nil
				},
			},
			"layoutStrategy": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*atlas.Build).Meta.LayoutStrategy, nil
				},
			},
			"source": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*atlas.Build).Meta.Source, nil
				},
			},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BuilderStatus",
		Fields: graphql.Fields{
			"building":    &graphql.Field{Type: graphql.Boolean},
			"lastBuildId": &graphql.Field{Type: graphql.String},
			"lastError":   &graphql.Field{Type: graphql.String},
			"nodeCount":   &graphql.Field{Type: graphql.Int},
			"edgeCount":   &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "ok", nil
				},
			},
			"build": &graphql.Field{
				Type: buildMetaType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return currentBuild(source)
				},
			},
			"status": &graphql.Field{
				Type: statusType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return source.Status(), nil
				},
			},
			"stats": &graphql.Field{
				Type: statsType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					build, err := currentBuild(source)
					if err != nil {
						return nil, err
					}
					return build.Stats, nil
				},
			},
			"node": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: resolveNode(source),
			},
			"nodes": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Args: graphql.FieldConfigArgument{
					"hubsOnly": &graphql.ArgumentConfig{Type: graphql.Boolean},
					"tier":     &graphql.ArgumentConfig{Type: graphql.String},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: resolveNodes(source),
			},
			"edges": &graphql.Field{
				Type: graphql.NewList(edgeType),
				Args: graphql.FieldConfigArgument{
					"kind":  &graphql.ArgumentConfig{Type: graphql.String},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: resolveEdges(source),
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("create schema: %w", err)
	}
	return schema, nil
}

func currentBuild(source BuildSource) (*atlas.Build, error) {
	build := source.Current()
	if build == nil {
		return nil, fmt.Errorf("no completed build available")
	}
	return build, nil
}

func resolveNode(source BuildSource) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		build, err := currentBuild(source)
		if err != nil {
			return nil, err
		}
		id, _ := p.Args["id"].(string)
		for i := range build.Nodes {
			if build.Nodes[i].ID == id {
				return build.Nodes[i], nil
			}
		}
		return nil, nil
	}
}

func resolveNodes(source BuildSource) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		build, err := currentBuild(source)
		if err != nil {
			return nil, err
		}
		hubsOnly, _ := p.Args["hubsOnly"].(bool)
		tier, _ := p.Args["tier"].(string)
		limit, _ := p.Args["limit"].(int)

		nodes := make([]atlas.BuildNode, 0, len(build.Nodes))
		for _, node := range build.Nodes {
			if hubsOnly && !node.IsHub {
				continue
			}
			if tier != "" && node.Tier != tier {
				continue
			}
			nodes = append(nodes, node)
			if limit > 0 && len(nodes) >= limit {
				break
			}
		}
		return nodes, nil
	}
}

func resolveEdges(source BuildSource) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		build, err := currentBuild(source)
		if err != nil {
			return nil, err
		}
		kind, _ := p.Args["kind"].(string)
		limit, _ := p.Args["limit"].(int)

		edges := make([]atlas.BuildEdge, 0, len(build.Edges))
		for _, edge := range build.Edges {
			if kind != "" && edge.Kind != kind {
				continue
			}
			edges = append(edges, edge)
			if limit > 0 && len(edges) >= limit {
				break
			}
		}
		return edges, nil
	}
}
