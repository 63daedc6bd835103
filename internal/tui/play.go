// Package tui lets a human play against the solved agent in the terminal.
package tui

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/randutil"
	"github.com/lox/bodegabrawl/sdk/agent"
)

// Options configures a play session.
type Options struct {
	Solved *agent.Solved
	Seed   int64
	// Drive shows the solved policy for the human's own legal actions.
	Drive bool
	// Verbose reveals the agent's distribution and its value estimate.
	Verbose bool
	Logger  *log.Logger
}

// Score counts finished games from the human's side.
type Score struct {
	Wins   int
	Losses int
	Draws  int
}

// PlayModel is the Bubble Tea model for a session. The human is always the
// mover; the agent answers from the swapped board.
type PlayModel struct {
	solved  *agent.Solved
	rules   game.Rules
	rng     *rand.Rand
	logger  *log.Logger
	drive   bool
	verbose bool

	state  game.GameState
	round  int
	over   bool
	result float64
	score  Score

	gameLog []string

	keys     keyMap
	help     help.Model
	viewport viewport.Model

	width    int
	height   int
	quitting bool
}

// NewPlayModel starts a session at the opening position.
func NewPlayModel(opts Options) (*PlayModel, error) {
	if opts.Solved == nil {
		return nil, errors.New("a solved table is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	m := &PlayModel{
		solved:   opts.Solved,
		rules:    opts.Solved.Rules(),
		rng:      randutil.New(opts.Seed),
		logger:   opts.Logger.WithPrefix("tui"),
		drive:    opts.Drive,
		verbose:  opts.Verbose,
		keys:     defaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(60, 8),
	}
	m.reset()
	return m, nil
}

func (m *PlayModel) reset() {
	m.state = m.rules.Initial()
	m.round = 0
	m.over = false
	m.result = 0
	m.addLog(InfoStyle.Render("New game. Pick an action with 1-9."))
}

// State returns the current board from the human's side.
func (m *PlayModel) State() game.GameState {
	return m.state
}

// Over reports whether the current game has finished, and its value.
func (m *PlayModel) Over() (bool, float64) {
	return m.over, m.result
}

// Score returns the running tally.
func (m *PlayModel) Score() Score {
	return m.score
}

// Log returns the session log, oldest first.
func (m *PlayModel) Log() []string {
	return m.gameLog
}

func (m *PlayModel) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.viewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.viewport.GotoBottom()
}

// Play resolves one round in which the human plays a.
func (m *PlayModel) Play(a game.Action) error {
	if m.over {
		return errors.New("game is over; start a new one")
	}
	if !m.state.Mover.Cards.Has(a) {
		return fmt.Errorf("%s is not playable: no %s card left", a, a.Card)
	}

	opp := m.state.Swap()
	policy, err := m.solved.Policy(opp)
	if err != nil {
		return fmt.Errorf("agent policy: %w", err)
	}
	reply, err := agent.Sample(policy, m.rng)
	if err != nil {
		return fmt.Errorf("agent sample: %w", err)
	}

	m.round++
	m.addLog(fmt.Sprintf("Round %d: you %s, agent %s", m.round, ActionsStyle.Render(a.String()), ActionsStyle.Render(reply.String())))
	if m.verbose {
		v, err := m.solved.Value(opp)
		if err == nil {
			m.addLog(InfoStyle.Render(fmt.Sprintf("  agent value %.3f, policy %s", v, formatPolicy(policy))))
		}
	}
	m.logger.Debug("round played", "round", m.round, "human", a, "agent", reply)

	m.state = m.rules.Transition(m.state, game.JointAction{Own: a, Opponent: reply})
	if v, ok := m.rules.TerminalValue(m.state); ok {
		m.finish(v)
	}
	return nil
}

func (m *PlayModel) finish(v float64) {
	m.over = true
	m.result = v
	switch {
	case v > game.ValueDraw:
		m.score.Wins++
		m.addLog(SuccessStyle.Render("You win! Press n for a new game."))
	case v < game.ValueDraw:
		m.score.Losses++
		m.addLog(ErrorStyle.Render("You lose. Press n for a new game."))
	default:
		m.score.Draws++
		m.addLog(WarningStyle.Render("Draw. Press n for a new game."))
	}
}

func formatPolicy(p [game.NumActions]float64) string {
	parts := make([]string, 0, game.NumActions)
	for id, w := range p {
		if w > 0 {
			parts = append(parts, fmt.Sprintf("%s=%.2f", game.Actions[id], w))
		}
	}
	return strings.Join(parts, " ")
}

// Init implements tea.Model.
func (m *PlayModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = max(msg.Width-4, 20)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.NewGame):
			m.reset()
		case key.Matches(msg, m.keys.Up):
			m.viewport.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.viewport.ScrollDown(1)
		case key.Matches(msg, m.keys.Play):
			id, _ := strconv.Atoi(msg.String())
			if err := m.Play(game.Actions[id-1]); err != nil {
				m.addLog(ErrorStyle.Render(err.Error()))
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *PlayModel) View() string {
	if m.quitting {
		return ""
	}

	header := HeaderStyle.Render(fmt.Sprintf("Bodega Brawl  W %d  L %d  D %d", m.score.Wins, m.score.Losses, m.score.Draws))
	board := BoardStyle.Render(strings.TrimRight(m.rules.Render(m.state), "\n"))
	side := m.renderActions()
	top := lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", side)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		top,
		m.viewport.View(),
		m.help.View(m.keys),
	)
}

func (m *PlayModel) renderActions() string {
	if m.over {
		return InfoStyle.Render("Game over.")
	}

	var recommended [game.NumActions]float64
	showDrive := false
	if m.drive {
		p, err := m.solved.Policy(m.state)
		if err == nil {
			recommended = p
			showDrive = true
		}
	}

	var b strings.Builder
	b.WriteString("Actions\n")
	for id, a := range game.Actions {
		line := fmt.Sprintf("%d  %-10s", id+1, a)
		if !m.state.Mover.Cards.Has(a) {
			b.WriteString(DisabledStyle.Render(line) + "\n")
			continue
		}
		if showDrive {
			line += fmt.Sprintf(" %5.1f%%", 100*recommended[id])
		}
		b.WriteString(ActionsStyle.Render(line) + "\n")
	}
	if m.verbose {
		if v, err := m.solved.Value(m.state); err == nil {
			b.WriteString(InfoStyle.Render(fmt.Sprintf("position value %.3f", v)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
