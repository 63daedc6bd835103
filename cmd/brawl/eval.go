package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/bodegabrawl/internal/eval"
	"github.com/lox/bodegabrawl/sdk/agent"
)

type EvalCmd struct {
	Table    string `short:"t" help:"path to a solved table" required:""`
	Opponent string `help:"opponent to play against" enum:"random,best_response,argmax_counter,solved" default:"random"`
	Games    int    `short:"n" help:"number of games to play" default:"10000"`
	Seed     int64  `help:"random seed; 0 uses time seed" default:"0"`
	Workers  int    `help:"concurrent games (0 = one per CPU)" default:"0"`
}

func (cmd *EvalCmd) Run(ctx context.Context, logger *log.Logger) error {
	solved, err := agent.Load(cmd.Table)
	if err != nil {
		return fmt.Errorf("load table: %w", err)
	}
	opponent, err := eval.NewOpponent(cmd.Opponent, solved)
	if err != nil {
		return err
	}

	seed := cmd.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info("starting evaluation", "table", cmd.Table, "opponent", cmd.Opponent, "games", cmd.Games, "seed", seed)

	e, err := eval.New(solved.Rules(), solved, opponent, eval.Config{
		Games:   cmd.Games,
		Seed:    seed,
		Workers: cmd.Workers,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	stats, err := e.Run(ctx)
	if err != nil {
		return err
	}

	lo, hi := stats.ConfidenceInterval95()
	fmt.Fprintf(os.Stdout, "Opponent:  %s\n", cmd.Opponent)
	fmt.Fprintf(os.Stdout, "Games:     %d (%.1fs)\n", stats.Games, time.Since(start).Seconds())
	fmt.Fprintf(os.Stdout, "Win rate:  %.4f\n", stats.WinRate())
	fmt.Fprintf(os.Stdout, "Mean:      %.4f  95%% CI [%.4f, %.4f]\n", stats.Mean(), lo, hi)
	fmt.Fprintf(os.Stdout, "Wins:      %d\n", stats.Wins)
	fmt.Fprintf(os.Stdout, "Losses:    %d\n", stats.Losses)
	fmt.Fprintf(os.Stdout, "Draws:     %d\n", stats.Draws)
	fmt.Fprintf(os.Stdout, "Rounds:    %.2f avg, %d max\n", stats.MeanRounds(), stats.MaxRounds)
	return nil
}
