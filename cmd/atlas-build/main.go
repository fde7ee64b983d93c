// atlas-build runs the topology pipeline once over a peer-report file and
// writes the build artifact as JSON, for offline analysis and fixtures.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/nodeatlas/nodeatlas/pkg/assemble"
	"github.com/nodeatlas/nodeatlas/pkg/atlas"
	"github.com/nodeatlas/nodeatlas/pkg/config"
	"github.com/nodeatlas/nodeatlas/pkg/directory"
	"github.com/nodeatlas/nodeatlas/pkg/graph"
	"github.com/nodeatlas/nodeatlas/pkg/logging"
	"github.com/nodeatlas/nodeatlas/pkg/visualization"
)

func main() {
	input := flag.String("input", "", "Path to a JSON array of peer reports (required)")
	output := flag.String("output", "", "Path for the build artifact (default stdout)")
	configPath := flag.String("config", "", "Path to YAML config file (optional, defaults apply)")
	pretty := flag.Bool("pretty", false, "Indent the output JSON")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: atlas-build -input reports.json [-output build.json]")
		os.Exit(2)
	}

	if err := run(*input, *output, *configPath, *pretty); err != nil {
		fmt.Fprintf(os.Stderr, "atlas-build: %v\n", err)
		os.Exit(1)
	}
}

func run(input, output, configPath string, pretty bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read reports: %w", err)
	}
	var reports []directory.PeerReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return fmt.Errorf("parse reports: %w", err)
	}

	builder := atlas.NewBuilder(atlas.Config{
		Assembly: assemble.Config{
			DefaultPort:          cfg.Build.DefaultPort,
			IncludeExternalPeers: cfg.Build.IncludeExternalPeers,
		},
		Caps: graph.Caps{
			MaxStubs:  cfg.Build.MaxStubs,
			MaxDegree: cfg.Build.MaxDegree,
			MaxEdges:  cfg.Build.MaxEdges,
		},
		Layout: visualization.Config{
			Seed:          cfg.Layout.Seed,
			NodeCap:       cfg.Layout.NodeCap,
			Extent:        cfg.Layout.Extent,
			MaxIterations: cfg.Layout.MaxIterations,
		},
		SampleCap: cfg.Build.SampleCap,
		Source:    "file",
	}, atlas.Deps{Logger: logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))})

	build, err := builder.Run(reports)
	if err != nil {
		return err
	}

	var out []byte
	if pretty {
		out, err = json.MarshalIndent(build, "", "  ")
	} else {
		out, err = json.Marshal(build)
	}
	if err != nil {
		return fmt.Errorf("encode build: %w", err)
	}
	out = append(out, '\n')

	if output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
