package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/bodegabrawl/internal/config"
	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
	"github.com/lox/bodegabrawl/internal/runid"
	"github.com/lox/bodegabrawl/internal/solver"
)

type SolveCmd struct {
	Config       string        `short:"c" help:"path to HCL configuration file" default:"brawl.hcl"`
	NumProcs     int           `help:"number of worker goroutines (default 40)"`
	Out          string        `short:"o" help:"table output path; .zst compresses (overrides config)"`
	Preset       string        `help:"rule preset (large, medium, small, tiny); overrides the config rules"`
	FailuresDir  string        `help:"directory for failure payloads (overrides config)"`
	Schedule     string        `help:"worker schedule: stride or level (overrides config)"`
	PollInterval time.Duration `help:"dependency poll interval (overrides config)"`
	MetricsAddr  string        `help:"serve prometheus metrics on this address during the run, e.g. :9090"`
}

func (cmd *SolveCmd) resolve() (*config.Config, error) {
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Preset != "" {
		rules, err := game.Preset(cmd.Preset)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}
	if cmd.NumProcs != 0 {
		cfg.Solver.Workers = cmd.NumProcs
	}
	if cmd.Out != "" {
		cfg.Output = cmd.Out
	}
	if cmd.FailuresDir != "" {
		cfg.Solver.FailureDir = cmd.FailuresDir
	}
	if cmd.Schedule != "" {
		s, err := solver.ParseSchedule(cmd.Schedule)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Schedule = s
	}
	if cmd.PollInterval != 0 {
		cfg.Solver.PollInterval = cmd.PollInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (cmd *SolveCmd) Run(ctx context.Context, logger *log.Logger) error {
	cfg, err := cmd.resolve()
	if err != nil {
		return err
	}
	id, err := runid.New()
	if err != nil {
		return err
	}
	logger = logger.With("run", id)

	ix, err := index.New(cfg.Rules)
	if err != nil {
		return err
	}
	logger.Info("indexed state space",
		"states", ix.Total(),
		"live_hit_states", len(ix.LiveHitStates()),
		"max_cards", ix.MaxCards())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := solver.NewMetrics(reg)
	if cmd.MetricsAddr != "" {
		stopMetrics := serveMetrics(cmd.MetricsAddr, reg, logger)
		defer stopMetrics()
	}

	pool, err := solver.NewPool(ix, cfg.Solver, solver.Options{
		Logger:   logger,
		Metrics:  metrics,
		RunID:    id,
		Progress: progressLogger(logger),
	})
	if err != nil {
		return err
	}

	table, err := pool.Run(ctx)
	if err != nil {
		var wf *solver.WorkerFailure
		if errors.As(err, &wf) {
			logger.Error("solve aborted",
				"failed_workers", wf.Workers,
				"failure_dir", cfg.Solver.FailureDir)
			return fmt.Errorf("workers %v failed; payloads in %s", wf.Workers, cfg.Solver.FailureDir)
		}
		return err
	}

	if err := table.Save(cfg.Output); err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	start, err := ix.IndexOf(cfg.Rules.Initial())
	if err != nil {
		return err
	}
	logger.Info("table written",
		"path", cfg.Output,
		"states", table.Len(),
		"opening_value", table.Value[start])
	return nil
}

func progressLogger(logger *log.Logger) func(solver.Progress) {
	return func(p solver.Progress) {
		logger.Info("progress",
			"completed", p.Completed,
			"total", p.Total,
			"pct", fmt.Sprintf("%.1f%%", 100*p.Fraction()),
			"blocked_workers", p.Blocked,
			"elapsed", p.Elapsed.Round(time.Second))
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
