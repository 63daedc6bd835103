// Package solver computes the equilibrium table for every indexed state by
// backward induction, spreading the index space across a fixed pool of
// workers.
package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/lox/bodegabrawl/internal/equilibrium"
	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
	"github.com/lox/bodegabrawl/internal/payoff"
	"github.com/lox/bodegabrawl/internal/store"
)

// ZeroSumSolver turns a payoff matrix (rows opponent, columns mover) into
// the mover's policy and the game value.
type ZeroSumSolver interface {
	SolveZeroSum(m mat.Matrix) ([]float64, float64, error)
}

// Progress is reported by the coordinator while a run is in flight.
type Progress struct {
	Completed int
	Total     int
	Blocked   int
	Elapsed   time.Duration
}

// Fraction returns the completed share of the index space.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// WorkerFailure is returned when one or more workers fail. The run is
// aborted and none of the failed workers' remaining indices are solved.
type WorkerFailure struct {
	Workers []int
	Causes  map[int]error
}

func (e *WorkerFailure) Error() string {
	parts := make([]string, 0, len(e.Workers))
	for _, w := range e.Workers {
		parts = append(parts, fmt.Sprintf("worker %d: %v", w, e.Causes[w]))
	}
	return fmt.Sprintf("workers %v failed: %s", e.Workers, strings.Join(parts, "; "))
}

func (e *WorkerFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Causes))
	for _, w := range e.Workers {
		if err := e.Causes[w]; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Options carries the collaborators of a Pool. Zero values are replaced
// with working defaults.
type Options struct {
	Logger   *log.Logger
	Clock    quartz.Clock
	Solver   ZeroSumSolver
	Recorder *store.Recorder
	Metrics  *Metrics
	Progress func(Progress)
	RunID    string
}

// Pool owns the shared result arrays and the workers that fill them.
type Pool struct {
	cfg      Config
	ix       *index.Indexer
	results  *store.Results
	logger   *log.Logger
	clock    quartz.Clock
	solver   ZeroSumSolver
	recorder *store.Recorder
	metrics  *Metrics
	progress func(Progress)
	runID    string

	// errs[w] is written only by worker w and read after it exits.
	errs []error
}

// NewPool allocates result storage for every index of ix.
func NewPool(ix *index.Indexer, cfg Config, opts Options) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Solver == nil {
		opts.Solver = equilibrium.Solver{Tolerance: cfg.Tolerance}
	}
	if opts.Recorder == nil {
		opts.Recorder = store.NewRecorder(cfg.FailureDir, opts.RunID)
	}

	return &Pool{
		cfg:      cfg,
		ix:       ix,
		results:  store.New(ix.Total(), cfg.Workers),
		logger:   opts.Logger.WithPrefix("solver"),
		clock:    opts.Clock,
		solver:   opts.Solver,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		progress: opts.Progress,
		runID:    opts.RunID,
		errs:     make([]error, cfg.Workers),
	}, nil
}

// Results exposes the shared result arrays.
func (p *Pool) Results() *store.Results {
	return p.results
}

// Run solves every index not yet complete and assembles the table. If any
// worker fails, Run cancels the others and returns a *WorkerFailure.
func (p *Pool) Run(ctx context.Context) (*Table, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := p.clock.Now()
	p.logger.Info("starting solve",
		"run", p.runID,
		"states", p.ix.Total(),
		"workers", p.cfg.Workers,
		"schedule", p.cfg.Schedule)

	done := make(chan error, 1)
	go func() { done <- p.launch(ctx) }()

	ticker := p.clock.NewTicker(p.cfg.ProgressInterval, "coordinator")
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			p.report(start)
			return p.finish(start, err)
		case <-ticker.C:
			p.report(start)
			if failed := p.results.FailedWorkers(); len(failed) > 0 {
				p.logger.Error("aborting solve", "failed_workers", failed)
				cancel()
				return p.finish(start, <-done)
			}
		}
	}
}

func (p *Pool) launch(ctx context.Context) error {
	if p.cfg.Schedule == ScheduleLevel {
		for _, r := range p.ix.Ranges() {
			p.logger.Debug("solving level", "cards", r.Cards, "start", r.Start, "end", r.End)
			if err := p.runWorkers(ctx, r.Start, r.End); err != nil {
				return err
			}
		}
		return nil
	}
	return p.runWorkers(ctx, 0, p.ix.Total())
}

func (p *Pool) runWorkers(ctx context.Context, start, end int) error {
	var g errgroup.Group
	for id := 0; id < p.cfg.Workers; id++ {
		w := p.newWorker(id)
		g.Go(func() error {
			return w.run(ctx, start, end)
		})
	}
	return g.Wait()
}

func (p *Pool) report(start time.Time) {
	blocked := 0
	for w := 0; w < p.results.Workers(); w++ {
		if p.results.Status(w) == store.WorkerBlocked {
			blocked++
		}
	}
	prog := Progress{
		Completed: p.results.Completed(),
		Total:     p.results.Len(),
		Blocked:   blocked,
		Elapsed:   p.clock.Since(start),
	}
	p.metrics.progress(prog.Completed, prog.Total)
	if p.progress != nil {
		p.progress(prog)
	}
}

func (p *Pool) finish(start time.Time, err error) (*Table, error) {
	if failed := p.results.FailedWorkers(); len(failed) > 0 {
		sort.Ints(failed)
		causes := make(map[int]error, len(failed))
		for _, w := range failed {
			causes[w] = p.errs[w]
		}
		return nil, &WorkerFailure{Workers: failed, Causes: causes}
	}
	if err != nil {
		return nil, err
	}
	if !p.results.Done() {
		return nil, fmt.Errorf("solve finished with %d of %d states complete", p.results.Completed(), p.results.Len())
	}

	policy, value := p.results.Arrays()
	p.logger.Info("solve complete", "states", len(value), "duration", p.clock.Since(start))
	return &Table{
		Version:     tableFileVersion,
		GeneratedAt: p.clock.Now().UTC(),
		RunID:       p.runID,
		Rules:       p.ix.Rules(),
		Policy:      policy,
		Value:       value,
	}, nil
}

type worker struct {
	id      int
	pool    *Pool
	builder *payoff.Builder
	logger  *log.Logger
}

func (p *Pool) newWorker(id int) *worker {
	w := &worker{
		id:     id,
		pool:   p,
		logger: p.logger.With("worker", id),
	}
	w.builder = &payoff.Builder{Indexer: p.ix, Resolver: w}
	return w
}

// first returns the smallest index >= start owned by this worker.
func (w *worker) first(start int) int {
	n := w.pool.cfg.Workers
	return start + ((w.id-start%n)+n)%n
}

func (w *worker) run(ctx context.Context, start, end int) error {
	res := w.pool.results
	res.SetStatus(w.id, store.WorkerRunning)

	for i := w.first(start); i < end; i += w.pool.cfg.Workers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if res.Complete(i) {
			continue
		}
		if err := w.solve(ctx, i); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return err
			}
			w.pool.errs[w.id] = err
			res.SetStatus(w.id, store.WorkerFailed)
			w.logger.Error("worker failed", "index", i, "err", err)
			return err
		}
	}

	res.SetStatus(w.id, store.WorkerCompleted)
	return nil
}

func (w *worker) solve(ctx context.Context, i int) error {
	s, err := w.pool.ix.StateOf(i)
	if err != nil {
		return err
	}
	m, actions, err := w.builder.Build(ctx, s)
	if err != nil {
		return err
	}

	began := w.pool.clock.Now()
	policy, value, err := w.pool.solver.SolveZeroSum(m)
	w.pool.metrics.observeSolve(w.pool.clock.Since(began), err)
	if err == nil && len(policy) != len(actions) {
		err = &equilibrium.Failure{
			Kind: equilibrium.KindSolve,
			Err:  fmt.Errorf("policy has %d entries for %d actions", len(policy), len(actions)),
		}
	}
	if err != nil {
		return w.fail(i, s, m, err)
	}

	var full [game.NumActions]float64
	for j, a := range actions {
		full[a.ID()] = policy[j]
	}
	w.pool.results.Publish(i, full, value)
	return nil
}

func (w *worker) fail(i int, s game.GameState, m mat.Matrix, err error) error {
	kind := equilibrium.KindSolve
	var f *equilibrium.Failure
	if errors.As(err, &f) {
		kind = f.Kind
	}
	w.pool.metrics.failure(kind)

	path, recErr := w.pool.recorder.Record(i, s, m, err)
	if recErr != nil {
		w.logger.Error("could not record failure", "index", i, "err", recErr)
	} else {
		w.logger.Warn("recorded failed solve", "index", i, "kind", kind, "path", path)
	}
	return fmt.Errorf("index %d (%s): %w", i, s.Serialize(), err)
}

// Resolve returns the published value of successor i, polling its
// completion flag until another worker publishes it.
func (w *worker) Resolve(ctx context.Context, i int) (float64, error) {
	res := w.pool.results
	if res.Complete(i) {
		return res.Value(i), nil
	}

	w.pool.metrics.dependencyWait()
	res.SetStatus(w.id, store.WorkerBlocked)
	defer res.SetStatus(w.id, store.WorkerRunning)

	ticker := w.pool.clock.NewTicker(w.pool.cfg.PollInterval, "dependency")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			if res.Complete(i) {
				return res.Value(i), nil
			}
		}
	}
}
