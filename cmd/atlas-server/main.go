// atlas-server crawls the node directory on a schedule, rebuilds the
// topology artifact, and serves it over HTTP, GraphQL and SSE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nodeatlas/nodeatlas/pkg/api"
	"github.com/nodeatlas/nodeatlas/pkg/assemble"
	"github.com/nodeatlas/nodeatlas/pkg/atlas"
	"github.com/nodeatlas/nodeatlas/pkg/cache"
	"github.com/nodeatlas/nodeatlas/pkg/config"
	"github.com/nodeatlas/nodeatlas/pkg/crawler"
	"github.com/nodeatlas/nodeatlas/pkg/directory"
	"github.com/nodeatlas/nodeatlas/pkg/events"
	"github.com/nodeatlas/nodeatlas/pkg/graph"
	"github.com/nodeatlas/nodeatlas/pkg/graphql"
	"github.com/nodeatlas/nodeatlas/pkg/health"
	"github.com/nodeatlas/nodeatlas/pkg/logging"
	"github.com/nodeatlas/nodeatlas/pkg/metrics"
	"github.com/nodeatlas/nodeatlas/pkg/pubsub"
	"github.com/nodeatlas/nodeatlas/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional, defaults apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	logger.Info("atlas server starting",
		logging.String("listen_addr", cfg.Server.ListenAddr),
		logging.String("directory_url", cfg.Crawler.DirectoryURL),
		logging.Duration("rebuild_interval", cfg.Server.RebuildInterval()))

	reg := metrics.NewRegistry()

	store, err := cache.NewStore(cfg.Cache.Dir)
	if err != nil {
		logger.Error("cache store", logging.Error(err))
		os.Exit(1)
	}

	bus := pubsub.New()
	defer bus.Shutdown()

	var publisher *events.Publisher
	if cfg.Events.Addr != "" {
		publisher, err = events.NewPublisher(cfg.Events.Addr, logger)
		if err != nil {
			logger.Error("event publisher", logging.Error(err), logging.String("addr", cfg.Events.Addr))
			os.Exit(1)
		}
		defer publisher.Close()
	}

	builder := atlas.NewBuilder(atlas.Config{
		Assembly: assembleConfig(cfg.Build),
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
		Source:    "crawler",
	}, atlas.Deps{
		Logger:  logger,
		Metrics: reg,
		Cache:   store,
		Bus:     bus,
		Events:  publisher,
	})

	// Serve the last persisted build until the first crawl lands.
	if err := builder.LoadCached(); err != nil {
		logger.Warn("cached build unusable, starting empty", logging.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var trigger func() error
	if cfg.Crawler.DirectoryURL != "" {
		crawl := crawler.New(crawler.Config{
			DirectoryURL:  cfg.Crawler.DirectoryURL,
			DefaultPort:   cfg.Build.DefaultPort,
			Workers:       cfg.Crawler.Workers,
			Timeout:       cfg.Crawler.Timeout(),
			RatePerSecond: cfg.Crawler.RatePerSecond,
		}, logger, reg)

		// RunWith claims the build slot before crawling, so overlapping
		// triggers cannot start a second crawl.
		runBuild := func() {
			if _, err := builder.RunWith(func() ([]directory.PeerReport, error) {
				return crawl.Crawl(ctx)
			}); err != nil && !errors.Is(err, atlas.ErrBuildInProgress) {
				logger.Error("scheduled build failed", logging.Error(err))
			}
		}

		trigger = func() error {
			if builder.Status().Building {
				return atlas.ErrBuildInProgress
			}
			go runBuild()
			return nil
		}

		go runBuild()

		if interval := cfg.Server.RebuildInterval(); interval > 0 {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if builder.Status().Building {
							logger.Warn("skipping scheduled build, previous still running")
							continue
						}
						runBuild()
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	} else {
		logger.Warn("no directory url configured, serving cached build only")
	}

	checker := health.NewChecker()
	checker.RegisterCheck("cache_writable", health.CacheWritableCheck(cfg.Cache.Dir))
	checker.RegisterCheck("build_freshness", health.BuildFreshnessCheck(func() (time.Time, bool) {
		st := builder.Status()
		return st.LastCompletedAt, !st.LastCompletedAt.IsZero()
	}, freshnessWindow(cfg.Server.RebuildInterval())))
	checker.RegisterReadinessCheck("has_build", func() health.Check {
		if builder.Current() == nil {
			return health.Check{Status: health.StatusUnhealthy, Message: "no completed build yet"}
		}
		return health.Check{Status: health.StatusHealthy}
	})
	checker.RegisterLivenessCheck("build_not_stuck", health.BuildNotStuckCheck(func() (bool, time.Time) {
		st := builder.Status()
		return st.Building, st.LastAttemptAt
	}, 15*time.Minute))

	schema, err := graphql.NewSchema(builder)
	if err != nil {
		logger.Error("graphql schema", logging.Error(err))
		os.Exit(1)
	}

	server := api.NewServer(api.Config{ListenAddr: cfg.Server.ListenAddr}, builder, api.Deps{
		Logger:  logger,
		Metrics: reg,
		Checker: checker,
		Bus:     bus,
		GraphQL: graphql.NewHandler(schema),
		Trigger: trigger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", logging.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}
	logger.Info("server exited")
}

func assembleConfig(b config.Build) assemble.Config {
	return assemble.Config{
		DefaultPort:          b.DefaultPort,
		IncludeExternalPeers: b.IncludeExternalPeers,
	}
}

// freshnessWindow allows three missed rebuild cycles before the health
// endpoint reports the artifact stale.
func freshnessWindow(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 24 * time.Hour
	}
	return 3 * interval
}
