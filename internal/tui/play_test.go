package tui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
	"github.com/lox/bodegabrawl/internal/solver"
	"github.com/lox/bodegabrawl/sdk/agent"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}) // Quiet logger for tests
}

func solvedTiny(t *testing.T) *agent.Solved {
	t.Helper()
	rules, err := game.Preset("tiny")
	require.NoError(t, err)
	ix, err := index.New(rules)
	require.NoError(t, err)

	cfg := solver.DefaultConfig()
	cfg.Workers = 2
	cfg.PollInterval = time.Millisecond
	cfg.ProgressInterval = 10 * time.Millisecond
	cfg.FailureDir = t.TempDir()
	pool, err := solver.NewPool(ix, cfg, solver.Options{Logger: quietLogger()})
	require.NoError(t, err)
	table, err := pool.Run(context.Background())
	require.NoError(t, err)

	a, err := agent.NewSolved(table, ix)
	require.NoError(t, err)
	return a
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestPlayModel(t *testing.T) {
	solved := solvedTiny(t)

	t.Run("requires a table", func(t *testing.T) {
		_, err := NewPlayModel(Options{})
		assert.Error(t, err)
	})

	t.Run("rejects actions without a card", func(t *testing.T) {
		m, err := NewPlayModel(Options{Solved: solved, Logger: quietLogger()})
		require.NoError(t, err)

		// The tiny hand holds no head attack-only card.
		err = m.Play(game.Actions[0])
		require.Error(t, err)
		assert.Equal(t, solved.Rules().Initial(), m.State())
	})

	t.Run("plays a game to the end", func(t *testing.T) {
		m, err := NewPlayModel(Options{Solved: solved, Seed: 5, Verbose: true, Logger: quietLogger()})
		require.NoError(t, err)

		for rounds := 0; ; rounds++ {
			over, _ := m.Over()
			if over {
				break
			}
			require.Less(t, rounds, solved.Rules().MaxCards())
			own := m.State().Mover.Cards.ActionSpace()
			require.NotEmpty(t, own)
			require.NoError(t, m.Play(own[0]))
		}

		_, v := m.Over()
		assert.Contains(t, []float64{game.ValueLoss, game.ValueDraw, game.ValueWin}, v)
		score := m.Score()
		assert.Equal(t, 1, score.Wins+score.Losses+score.Draws)
		assert.Error(t, m.Play(game.Actions[1]), "no moves after the game ends")

		joined := ""
		for _, line := range m.Log() {
			joined += line + "\n"
		}
		assert.Contains(t, joined, "Round 1")
		assert.Contains(t, joined, "agent value")
	})

	t.Run("keys drive the model", func(t *testing.T) {
		m, err := NewPlayModel(Options{Solved: solved, Seed: 1, Drive: true, Logger: quietLogger()})
		require.NoError(t, err)
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		view := m.View()
		assert.Contains(t, view, "Actions")
		assert.Contains(t, view, "HEAD_AC_C")
		assert.Contains(t, view, "%")

		// 2 is HEAD_AC_A, which the tiny hand can play.
		m.Update(keyPress('2'))
		assert.Equal(t, 1, m.round)
		assert.Equal(t, 0, m.State().Mover.Cards[game.HeadAC])

		m.Update(keyPress('n'))
		assert.Equal(t, solved.Rules().Initial(), m.State())
		assert.Zero(t, m.round)

		m.Update(keyPress('?'))
		assert.True(t, m.help.ShowAll)

		_, cmd := m.Update(keyPress('q'))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, m.View())
	})
}
