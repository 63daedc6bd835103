// Package config loads solver settings from an HCL file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/solver"
)

// DefaultOutput is where solve writes the table when nothing else is set.
const DefaultOutput = "brawl_table.json.zst"

// File mirrors the HCL document. Every attribute is optional.
type File struct {
	Rules  *RulesBlock  `hcl:"rules,block"`
	Solver *SolverBlock `hcl:"solver,block"`
}

// RulesBlock selects a preset and optionally overrides parts of it.
type RulesBlock struct {
	Preset       string `hcl:"preset,optional"`
	MaxHeadHits  int    `hcl:"max_head_hits,optional"`
	MaxBodyHits  int    `hcl:"max_body_hits,optional"`
	MaxLegsHits  int    `hcl:"max_legs_hits,optional"`
	MaxTotalHits int    `hcl:"max_total_hits,optional"`
	Start        []int  `hcl:"start,optional"`
}

// SolverBlock holds run settings. Durations use time.ParseDuration syntax.
type SolverBlock struct {
	Workers          int     `hcl:"workers,optional"`
	PollInterval     string  `hcl:"poll_interval,optional"`
	ProgressInterval string  `hcl:"progress_interval,optional"`
	Schedule         string  `hcl:"schedule,optional"`
	Tolerance        float64 `hcl:"tolerance,optional"`
	FailureDir       string  `hcl:"failure_dir,optional"`
	Output           string  `hcl:"output,optional"`
}

// Config is the resolved configuration for a solve run.
type Config struct {
	Rules  game.Rules
	Solver solver.Config
	Output string
}

// Default returns the full-size game with default solver settings.
func Default() *Config {
	return &Config{
		Rules:  game.DefaultRules(),
		Solver: solver.DefaultConfig(),
		Output: DefaultOutput,
	}
}

// Load reads filename. A missing file yields Default().
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var doc File
	diags = gohcl.DecodeBody(file.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if err := doc.Rules.apply(&cfg.Rules); err != nil {
		return nil, err
	}
	if err := doc.Solver.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func (b *RulesBlock) apply(r *game.Rules) error {
	if b == nil {
		return nil
	}
	if b.Preset != "" {
		p, err := game.Preset(b.Preset)
		if err != nil {
			return err
		}
		*r = p
	}
	if b.MaxHeadHits != 0 {
		r.MaxHeadHits = b.MaxHeadHits
	}
	if b.MaxBodyHits != 0 {
		r.MaxBodyHits = b.MaxBodyHits
	}
	if b.MaxLegsHits != 0 {
		r.MaxLegsHits = b.MaxLegsHits
	}
	if b.MaxTotalHits != 0 {
		r.MaxTotalHits = b.MaxTotalHits
	}
	if len(b.Start) > 0 {
		if len(b.Start) != game.NumCardSlots {
			return fmt.Errorf("rules.start needs %d counters (head_a, head_ac, body_a, body_ac, legs_a, legs_ac), got %d",
				game.NumCardSlots, len(b.Start))
		}
		copy(r.Start[:], b.Start)
	}
	return nil
}

func (b *SolverBlock) apply(cfg *Config) error {
	if b == nil {
		return nil
	}
	s := &cfg.Solver
	if b.Workers != 0 {
		s.Workers = b.Workers
	}
	if b.PollInterval != "" {
		d, err := time.ParseDuration(b.PollInterval)
		if err != nil {
			return fmt.Errorf("solver.poll_interval: %w", err)
		}
		s.PollInterval = d
	}
	if b.ProgressInterval != "" {
		d, err := time.ParseDuration(b.ProgressInterval)
		if err != nil {
			return fmt.Errorf("solver.progress_interval: %w", err)
		}
		s.ProgressInterval = d
	}
	if b.Schedule != "" {
		sched, err := solver.ParseSchedule(b.Schedule)
		if err != nil {
			return fmt.Errorf("solver.schedule: %w", err)
		}
		s.Schedule = sched
	}
	if b.Tolerance != 0 {
		s.Tolerance = b.Tolerance
	}
	if b.FailureDir != "" {
		s.FailureDir = b.FailureDir
	}
	if b.Output != "" {
		cfg.Output = b.Output
	}
	return nil
}

// Validate checks the rules and solver settings.
func (c *Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}
