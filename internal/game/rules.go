package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Rules holds the death thresholds and starting hand for a game variant.
// It is also the game model: every rule query is a method on Rules.
type Rules struct {
	MaxHeadHits  int       `json:"max_head_hits"`
	MaxBodyHits  int       `json:"max_body_hits"`
	MaxLegsHits  int       `json:"max_legs_hits"`
	MaxTotalHits int       `json:"max_total_hits"`
	Start        CardState `json:"start"`
}

var presets = map[string]Rules{
	"large": {
		MaxHeadHits: 2, MaxBodyHits: 3, MaxLegsHits: 4, MaxTotalHits: 5,
		Start: CardState{1, 3, 1, 4, 1, 4},
	},
	"medium": {
		MaxHeadHits: 2, MaxBodyHits: 3, MaxLegsHits: 3, MaxTotalHits: 4,
		Start: CardState{1, 2, 1, 2, 1, 2},
	},
	"small": {
		MaxHeadHits: 2, MaxBodyHits: 2, MaxLegsHits: 2, MaxTotalHits: 3,
		Start: CardState{0, 2, 0, 2, 0, 2},
	},
	"tiny": {
		MaxHeadHits: 1, MaxBodyHits: 2, MaxLegsHits: 2, MaxTotalHits: 2,
		Start: CardState{0, 1, 0, 2, 0, 0},
	},
}

// DefaultRules returns the full-size game.
func DefaultRules() Rules {
	return presets["large"]
}

// Preset returns a named rule set (large, medium, small or tiny).
func Preset(name string) (Rules, error) {
	r, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Rules{}, fmt.Errorf("unknown preset %q (want one of %s)", name, strings.Join(PresetNames(), ", "))
	}
	return r, nil
}

// PresetNames lists the available preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate ensures the variant is playable.
func (r Rules) Validate() error {
	if r.MaxHeadHits <= 0 || r.MaxBodyHits <= 0 || r.MaxLegsHits <= 0 {
		return errors.New("regional hit thresholds must be > 0")
	}
	if r.MaxTotalHits <= 0 {
		return errors.New("total hit threshold must be > 0")
	}
	for i, n := range r.Start {
		if n < 0 {
			return fmt.Errorf("starting card count[%d] cannot be negative", i)
		}
	}
	if r.Start.Empty() {
		return errors.New("starting hand must hold at least one card")
	}
	return nil
}

// Dead reports whether a hit state has crossed any threshold.
func (r Rules) Dead(h HitState) bool {
	return h.Head >= r.MaxHeadHits ||
		h.Body >= r.MaxBodyHits ||
		h.Legs >= r.MaxLegsHits ||
		h.Total() >= r.MaxTotalHits
}

// Initial returns the opening state: no hits, full hands.
func (r Rules) Initial() GameState {
	p := PlayerState{Cards: r.Start}
	return GameState{Mover: p, Opponent: p}
}

// Terminal reports whether the game is over.
func (r Rules) Terminal(s GameState) bool {
	return r.Dead(s.Mover.Hits) || r.Dead(s.Opponent.Hits) ||
		s.Mover.Cards.Empty() || s.Opponent.Cards.Empty()
}

// Terminal values, from the mover's point of view.
const (
	ValueLoss = 0.1
	ValueDraw = 0.5
	ValueWin  = 0.9
)

// TerminalValue returns the mover's payoff if s is terminal.
func (r Rules) TerminalValue(s GameState) (float64, bool) {
	if !r.Terminal(s) {
		return 0, false
	}
	moverDead := r.Dead(s.Mover.Hits)
	oppDead := r.Dead(s.Opponent.Hits)
	switch {
	case moverDead && oppDead:
		return ValueDraw, true
	case moverDead:
		return ValueLoss, true
	case oppDead:
		return ValueWin, true
	default:
		return ValueDraw, true
	}
}

// Transition plays one simultaneous round. Both actions must be legal for
// their player; callers obtain them from ActionSpace.
func (r Rules) Transition(s GameState, j JointAction) GameState {
	return GameState{
		Mover:    s.Mover.Apply(j.Own, j.Opponent),
		Opponent: s.Opponent.Apply(j.Opponent, j.Own),
	}
}

// ActionSpace returns the legal actions for both players.
func (r Rules) ActionSpace(s GameState) (own, opp []Action) {
	return s.ActionSpace()
}

// MaxCards returns the size of a starting hand.
func (r Rules) MaxCards() int {
	return r.Start.Total()
}
