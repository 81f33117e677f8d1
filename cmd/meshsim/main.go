// Command meshsim runs a partitioned quad grid through random element
// migrations and overlap growth on an in-process world of ranks.
//
//	meshsim -config ex.config.toml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/meshadapt"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/prommetrics"
	"github.com/hupe1980/meshadapt/testutil"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/hupe1980/meshadapt/transport/local"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "meshsim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := meshadapt.NewTextLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	reg := prometheus.NewRegistry()
	collector, err := prommetrics.New(reg)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	world, err := local.NewWorld(cfg.Ranks,
		local.WithCompression(cfg.Compression),
		local.WithBandwidth(cfg.BandwidthBPS),
		local.WithMaxInFlightBytes(cfg.MaxInFlightBytes),
		local.WithLogger(logger.Logger),
	)
	if err != nil {
		return err
	}

	basic := &meshadapt.BasicMetricsCollector{}
	start := time.Now()
	err = world.Run(ctx, func(ctx context.Context, t transport.Transport) error {
		return simulate(ctx, t, cfg, logger, multiCollector{basic, collector})
	})
	if err != nil {
		return err
	}

	ws := world.Stats()
	stats := basic.GetStats()
	logger.Info("simulation finished",
		"duration", time.Since(start),
		"operations", stats.OperationCount,
		"exchange_rounds", stats.ExchangeRounds,
		"records_sent", stats.RecordsSent,
		"collectives", ws.Collectives,
		"payload_bytes", ws.PayloadBytes,
		"wire_bytes", ws.WireBytes,
	)
	return nil
}

func simulate(ctx context.Context, t transport.Transport, cfg simConfig, logger *meshadapt.Logger, mc meshadapt.MetricsCollector) error {
	m := testutil.QuadGrid(cfg.NX, cfg.NY, t.Size(), t.Rank())
	a, err := meshadapt.New(m, t,
		meshadapt.WithLogger(logger),
		meshadapt.WithMetricsCollector(mc),
		meshadapt.WithHilbertDepth(cfg.HilbertDepth),
		meshadapt.WithAutoRenumber(cfg.AutoRenumber),
	)
	if err != nil {
		return err
	}
	if err := a.Prepare(); err != nil {
		return err
	}

	rng := testutil.NewRNG(cfg.Seed + int64(t.Rank()))
	for round := 0; round < cfg.Moves; round++ {
		x := meshadapt.NewExports(t.Size(), m.NumEntities())
		for e := 0; e < m.NumEntities(); e++ {
			ei := mesh.EntitiesIdx(e)
			for i := 0; i < m.Entities(ei).Size(); i++ {
				x.Add(rng.Intn(t.Size()), ei, i)
			}
		}
		if err := a.MoveElements(ctx, x); err != nil {
			return fmt.Errorf("move round %d: %w", round, err)
		}
	}
	if cfg.Overlap {
		if err := a.GrowOverlap(ctx); err != nil {
			return err
		}
	}
	if err := a.Finish(); err != nil {
		return err
	}

	logger.WithRank(t.Rank()).InfoContext(ctx, "partition",
		"elements", m.NumElements(),
		"nodes", m.Dict(mesh.GeometryDict).Size(),
	)
	return m.Validate()
}

// multiCollector fans metrics out to several collectors.
type multiCollector []meshadapt.MetricsCollector

func (mc multiCollector) RecordOperation(op string, d time.Duration, err error) {
	for _, c := range mc {
		c.RecordOperation(op, d, err)
	}
}

func (mc multiCollector) RecordExchange(kind string, sent, received, bytes int) {
	for _, c := range mc {
		c.RecordExchange(kind, sent, received, bytes)
	}
}

func (mc multiCollector) RecordDuplicates(elements, nodes int) {
	for _, c := range mc {
		c.RecordDuplicates(elements, nodes)
	}
}

func (mc multiCollector) RecordRenumber(kind string, count int) {
	for _, c := range mc {
		c.RecordRenumber(kind, count)
	}
}
