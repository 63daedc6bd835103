package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	s := &Statistics{}
	assert.Zero(t, s.Mean())
	assert.Zero(t, s.Variance())
	assert.Zero(t, s.StdDev())
	assert.Zero(t, s.StdError())
	assert.Zero(t, s.Median())
	assert.Zero(t, s.MeanRounds())
	assert.Error(t, s.Validate())
}

func TestSingleGame(t *testing.T) {
	s := &Statistics{}
	s.Add(GameResult{Payoff: 0.9, Seed: 12345, Rounds: 3})

	assert.Equal(t, 1, s.Games)
	assert.Equal(t, 0.9, s.Mean())
	assert.Zero(t, s.Variance())
	assert.Equal(t, 0.9, s.Median())
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 3, s.MaxRounds)
	assert.InDelta(t, 1.0, s.WinRate(), 1e-12)
	require.NoError(t, s.Validate())
}

func TestOutcomeClassification(t *testing.T) {
	s := &Statistics{}
	for _, p := range []float64{0.9, 0.9, 0.5, 0.1, 0.6, 0.4} {
		s.Add(GameResult{Payoff: p, Rounds: 2})
	}

	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 3, s.Draws, "0.6 and 0.4 sit on the thresholds and count as draws")
	assert.Equal(t, 2.0, s.MeanRounds())
	require.NoError(t, s.Validate())
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		name    string
		payoffs []float64
		want    float64
	}{
		{"all losses", []float64{0.1, 0.1}, 0},
		{"even", []float64{0.1, 0.9}, 0.5},
		{"all draws", []float64{0.5, 0.5, 0.5}, 0.5},
		{"three to one", []float64{0.9, 0.9, 0.9, 0.1}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Statistics{}
			for _, p := range tt.payoffs {
				s.Add(GameResult{Payoff: p})
			}
			assert.InDelta(t, tt.want, s.WinRate(), 1e-12)
		})
	}
}

func TestSpread(t *testing.T) {
	s := &Statistics{}
	for _, p := range []float64{0.1, 0.5, 0.9, 0.5} {
		s.Add(GameResult{Payoff: p})
	}

	assert.InDelta(t, 0.5, s.Mean(), 1e-12)
	// deviations -0.4, 0, 0.4, 0 -> 0.32 / 3
	assert.InDelta(t, 0.32/3, s.Variance(), 1e-12)
	lo, hi := s.ConfidenceInterval95()
	assert.Less(t, lo, 0.5)
	assert.Greater(t, hi, 0.5)
	assert.InDelta(t, 0.5, s.Median(), 1e-12)
	assert.Equal(t, 0.1, s.Percentile(0))
	assert.Equal(t, 0.9, s.Percentile(1))
}

func TestValidateDetectsCorruption(t *testing.T) {
	s := &Statistics{}
	s.Add(GameResult{Payoff: 0.9})
	s.Wins = 3
	assert.Error(t, s.Validate())
}
