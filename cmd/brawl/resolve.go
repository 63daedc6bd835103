package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/bodegabrawl/internal/equilibrium"
	"github.com/lox/bodegabrawl/internal/store"
)

type ResolveFailureCmd struct {
	File      string  `arg:"" help:"failure payload written by solve (fail_<index>.json)" type:"existingfile"`
	Tolerance float64 `help:"simplex tolerance" default:"1e-10"`
}

func (cmd *ResolveFailureCmd) Run(_ context.Context, logger *log.Logger) error {
	f, err := store.LoadFailure(cmd.File)
	if err != nil {
		return err
	}
	m, err := f.Matrix()
	if err != nil {
		return err
	}
	rows, cols := m.Dims()
	logger.Info("replaying failed solve",
		"run", f.RunID,
		"index", f.Index,
		"state", f.State.Serialize(),
		"recorded_error", f.Error,
		"rows", rows,
		"cols", cols)

	policy, value, err := equilibrium.Solver{Tolerance: cmd.Tolerance}.SolveZeroSum(m)
	if err != nil {
		var sf *equilibrium.Failure
		if errors.As(err, &sf) {
			return fmt.Errorf("still failing (%s): %w", sf.Kind, err)
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "index:  %d\n", f.Index)
	fmt.Fprintf(os.Stdout, "value:  %.10f\n", value)
	fmt.Fprintf(os.Stdout, "policy: %v\n", policy)
	return nil
}
