package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/bodegabrawl/internal/tui"
	"github.com/lox/bodegabrawl/sdk/agent"
)

type PlayCmd struct {
	Table   string `short:"t" help:"path to a solved table" required:""`
	Drive   bool   `help:"show the solved policy for your own legal actions"`
	Verbose bool   `short:"v" help:"reveal the agent's distribution and value each round"`
	Seed    int64  `help:"random seed; 0 uses time seed" default:"0"`
}

func (cmd *PlayCmd) Run(ctx context.Context, logger *log.Logger) error {
	solved, err := agent.Load(cmd.Table)
	if err != nil {
		return fmt.Errorf("load table: %w", err)
	}
	seed := cmd.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	model, err := tui.NewPlayModel(tui.Options{
		Solved:  solved,
		Seed:    seed,
		Drive:   cmd.Drive,
		Verbose: cmd.Verbose,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	score := model.Score()
	logger.Info("session over", "wins", score.Wins, "losses", score.Losses, "draws", score.Draws)
	return nil
}
