// Package statistics summarises the payoffs of evaluation games.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lox/bodegabrawl/internal/game"
)

// Outcome thresholds on the evaluated agent's payoff.
const (
	WinAbove  = 0.6
	LossBelow = 0.4
)

// GameResult is the outcome of one evaluation game.
type GameResult struct {
	Payoff float64 // terminal value for the evaluated agent
	Seed   int64   // base seed of the run
	Game   int     // game number; with Seed identifies the random stream
	Rounds int     // rounds played before the game ended
}

// Statistics accumulates game results.
type Statistics struct {
	Games  int
	Sum    float64
	SumSq  float64   // sum of squares for variance
	Values []float64 // every payoff, for quantiles

	Wins   int
	Losses int
	Draws  int

	Rounds    int // total rounds across games
	MaxRounds int
}

// Add incorporates a game result.
func (s *Statistics) Add(r GameResult) {
	s.Games++
	s.Sum += r.Payoff
	s.SumSq += r.Payoff * r.Payoff
	s.Values = append(s.Values, r.Payoff)

	switch {
	case r.Payoff > WinAbove:
		s.Wins++
	case r.Payoff < LossBelow:
		s.Losses++
	default:
		s.Draws++
	}

	s.Rounds += r.Rounds
	if r.Rounds > s.MaxRounds {
		s.MaxRounds = r.Rounds
	}
}

// Mean returns the mean payoff.
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.Sum / float64(s.Games)
}

// WinRate maps the mean payoff onto [0, 1]: 0 when every game is lost,
// 0.5 for an even record, 1 when every game is won.
func (s *Statistics) WinRate() float64 {
	spread := game.ValueWin - game.ValueLoss
	return (s.Mean()-game.ValueDraw)/spread + 0.5
}

// Variance returns the sample variance of the payoffs.
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	v := (s.SumSq - float64(s.Games)*mean*mean) / float64(s.Games-1)
	return math.Max(v, 0)
}

// StdDev returns the sample standard deviation.
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean.
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// MeanRounds returns the average game length.
func (s *Statistics) MeanRounds() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Rounds) / float64(s.Games)
}

// Percentile returns the empirical p-quantile (0.0 to 1.0) of the payoffs.
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	return stat.Quantile(math.Min(math.Max(p, 0), 1), stat.Empirical, sorted, nil)
}

// Median returns the median payoff.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Validate checks that the counters agree with each other.
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)", len(s.Values), s.Games)
	}
	if s.Wins+s.Losses+s.Draws != s.Games {
		return fmt.Errorf("outcomes (%d wins, %d losses, %d draws) do not add up to %d games",
			s.Wins, s.Losses, s.Draws, s.Games)
	}
	if math.Abs(stat.Mean(s.Values, nil)-s.Mean()) > 1e-9 {
		return fmt.Errorf("running mean %.9f disagrees with recorded payoffs", s.Mean())
	}
	return nil
}
