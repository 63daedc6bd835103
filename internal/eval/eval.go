// Package eval plays the solved agent against an opponent from the opening
// position and summarises the results.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/randutil"
	"github.com/lox/bodegabrawl/internal/statistics"
	"github.com/lox/bodegabrawl/sdk/agent"
)

// Opponent names accepted by NewOpponent.
const (
	OpponentRandom        = "random"
	OpponentBestResponse  = "best_response"
	OpponentArgmaxCounter = "argmax_counter"
	OpponentSolved        = "solved"
)

// OpponentNames lists the built-in opponents.
func OpponentNames() []string {
	return []string{OpponentRandom, OpponentBestResponse, OpponentArgmaxCounter, OpponentSolved}
}

// NewOpponent builds a named opponent on top of a solved table.
func NewOpponent(name string, solved *agent.Solved) (agent.Agent, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case OpponentRandom:
		return agent.Random{Rules: solved.Rules()}, nil
	case OpponentBestResponse:
		return agent.NewBestResponse(solved), nil
	case OpponentArgmaxCounter:
		return agent.NewArgmaxCounter(solved), nil
	case OpponentSolved:
		return solved, nil
	default:
		return nil, fmt.Errorf("unknown opponent %q (want one of %s)", name, strings.Join(OpponentNames(), ", "))
	}
}

// Config holds configuration for an evaluation run.
type Config struct {
	Games   int
	Seed    int64
	Workers int
	Logger  *log.Logger
}

// Evaluator plays Hero against Opponent. Hero always moves first in the
// state it is given; Opponent sees the swapped board.
type Evaluator struct {
	rules    game.Rules
	hero     agent.Agent
	opponent agent.Agent
	config   Config
}

// New creates an evaluator. Zero Workers means one per CPU.
func New(rules game.Rules, hero, opponent agent.Agent, config Config) (*Evaluator, error) {
	if hero == nil || opponent == nil {
		return nil, errors.New("hero and opponent are required")
	}
	if config.Games <= 0 {
		return nil, errors.New("games must be > 0")
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	return &Evaluator{rules: rules, hero: hero, opponent: opponent, config: config}, nil
}

// Run plays every game and returns the aggregated statistics. Game n uses
// its own random stream, so results do not depend on Workers.
func (e *Evaluator) Run(ctx context.Context) (*statistics.Statistics, error) {
	results := make([]statistics.GameResult, e.config.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for n := range results {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.Play(n)
			if err != nil {
				return fmt.Errorf("game %d: %w", n, err)
			}
			results[n] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, r := range results {
		stats.Add(r)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}

	e.config.Logger.Debug("evaluation finished",
		"games", stats.Games,
		"mean", stats.Mean(),
		"win_rate", stats.WinRate())
	return stats, nil
}

// Play runs game n to completion and returns Hero's payoff.
func (e *Evaluator) Play(n int) (statistics.GameResult, error) {
	seed := e.config.Seed
	rng := randutil.Stream(seed, uint64(n))

	s := e.rules.Initial()
	limit := e.rules.MaxCards()
	rounds := 0
	for {
		if v, ok := e.rules.TerminalValue(s); ok {
			return statistics.GameResult{Payoff: v, Seed: seed, Game: n, Rounds: rounds}, nil
		}
		if rounds >= limit {
			return statistics.GameResult{}, fmt.Errorf("no terminal state after %d rounds", rounds)
		}

		own, err := e.choose(e.hero, s, rng)
		if err != nil {
			return statistics.GameResult{}, fmt.Errorf("hero: %w", err)
		}
		opp, err := e.choose(e.opponent, s.Swap(), rng)
		if err != nil {
			return statistics.GameResult{}, fmt.Errorf("opponent: %w", err)
		}

		s = e.rules.Transition(s, game.JointAction{Own: own, Opponent: opp})
		rounds++
	}
}

func (e *Evaluator) choose(a agent.Agent, s game.GameState, rng *rand.Rand) (game.Action, error) {
	p, err := a.Policy(s)
	if err != nil {
		return game.Action{}, err
	}
	return agent.Sample(p, rng)
}
