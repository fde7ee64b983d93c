// Package crawler fetches the directory listing and every node's
// self-reported peer lists over HTTP. Fetches run on a bounded worker pool
// with per-request timeouts and an optional global rate limit; the pipeline
// itself never touches the network.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nodeatlas/nodeatlas/pkg/directory"
	"github.com/nodeatlas/nodeatlas/pkg/identity"
	"github.com/nodeatlas/nodeatlas/pkg/logging"
	"github.com/nodeatlas/nodeatlas/pkg/metrics"
)

// maxBodySize bounds response reads; peer lists are small.
const maxBodySize = 4 << 20

// Config tunes the crawler.
type Config struct {
	// DirectoryURL serves the authoritative node listing as a JSON array of
	// NodeRecord.
	DirectoryURL string
	// DefaultPort fills in node addresses listed without one.
	DefaultPort int
	// Workers bounds concurrent peer fetches.
	Workers int
	// Timeout applies per request.
	Timeout time.Duration
	// RatePerSecond throttles peer fetches globally. Zero means unthrottled.
	RatePerSecond int
}

// Crawler produces the peer reports the build pipeline consumes.
type Crawler struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
	reg    *metrics.Registry
}

// New builds a crawler. The metrics registry may be nil.
func New(cfg Config, logger logging.Logger, reg *metrics.Registry) *Crawler {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Crawler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(logging.Component("crawler")),
		reg:    reg,
	}
}

// peerInfo is the JSON body each node serves at /peers.
type peerInfo struct {
	OutgoingPeers []string             `json:"outgoingPeers"`
	IncomingPeers []string             `json:"incomingPeers"`
	Arcane        bool                 `json:"arcane,omitempty"`
	Bandwidth     *directory.Bandwidth `json:"bandwidth,omitempty"`
}

// Crawl fetches the directory, then every node's peer lists. A directory
// failure aborts the crawl; an unreachable node yields a report with empty
// peer lists and the Unreachable flag set.
func (c *Crawler) Crawl(ctx context.Context) ([]directory.PeerReport, error) {
	started := time.Now()

	records, err := c.fetchDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch directory: %w", err)
	}
	c.logger.Info("directory fetched", logging.Int("nodes", len(records)))

	reports := make([]directory.PeerReport, len(records))

	var throttle <-chan time.Time
	if c.cfg.RatePerSecond > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(c.cfg.RatePerSecond))
		defer ticker.Stop()
		throttle = ticker.C
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < c.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if throttle != nil {
					select {
					case <-throttle:
					case <-ctx.Done():
						reports[i] = unreachableReport(records[i])
						continue
					}
				}
				reports[i] = c.fetchNode(ctx, records[i])
			}
		}()
	}
	for i := range records {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	if c.reg != nil {
		c.reg.CrawlDuration.Observe(time.Since(started).Seconds())
	}
	return reports, nil
}

func (c *Crawler) fetchDirectory(ctx context.Context) ([]directory.NodeRecord, error) {
	var records []directory.NodeRecord
	if err := c.getJSON(ctx, c.cfg.DirectoryURL, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// fetchNode retrieves one node's peer lists. Every failure mode collapses to
// an unreachable report; the pipeline treats no data as no peers.
func (c *Crawler) fetchNode(ctx context.Context, rec directory.NodeRecord) directory.PeerReport {
	ep := identity.ParseAddress(rec.Address)
	if !ep.IsValid() {
		return unreachableReport(rec)
	}
	url := "http://" + ep.HostPortKey(strconv.Itoa(c.cfg.DefaultPort)) + "/peers"

	var info peerInfo
	if err := c.getJSON(ctx, url, &info); err != nil {
		c.logger.Debug("node unreachable",
			logging.String("address", rec.Address),
			logging.Error(err))
		if c.reg != nil {
			c.reg.CrawlRequestsTotal.WithLabelValues("error").Inc()
		}
		return unreachableReport(rec)
	}
	if c.reg != nil {
		c.reg.CrawlRequestsTotal.WithLabelValues("success").Inc()
	}

	return directory.PeerReport{
		Node:          rec,
		OutgoingPeers: info.OutgoingPeers,
		IncomingPeers: info.IncomingPeers,
		Arcane:        info.Arcane,
		Bandwidth:     info.Bandwidth,
	}
}

func (c *Crawler) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func unreachableReport(rec directory.NodeRecord) directory.PeerReport {
	return directory.PeerReport{Node: rec, Unreachable: true}
}
