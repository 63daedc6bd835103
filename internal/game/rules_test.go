package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionCanonicalOrder(t *testing.T) {
	for i, a := range Actions {
		assert.Equal(t, i, a.ID(), "action %s", a)
		assert.True(t, a.Valid())

		parsed, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	assert.Equal(t, "HEAD_A_A", Actions[0].String())
	assert.Equal(t, "BODY_AC_C", Actions[5].String())
	assert.Equal(t, "LEGS_AC_C", Actions[8].String())
	assert.False(t, Action{Head, AttackCard, Counter}.Valid())

	_, err := ActionByID(NumActions)
	assert.Error(t, err)
}

func TestHitResolution(t *testing.T) {
	headA := Actions[0]   // HEAD_A_A
	headACA := Actions[1] // HEAD_AC_A
	headC := Actions[2]   // HEAD_AC_C
	bodyA := Actions[3]   // BODY_A_A
	bodyC := Actions[5]   // BODY_AC_C

	tests := []struct {
		name     string
		own, opp Action
		want     HitState
	}{
		{"same region same mode", headA, headACA, HitState{}},
		{"both counter same region", headC, headC, HitState{}},
		{"attack into counter is punished", headA, headC, HitState{Head: 1}},
		{"counter absorbs attack", headC, headA, HitState{}},
		{"attack elsewhere lands", headA, bodyA, HitState{Body: 1}},
		{"attack lands through counter elsewhere", headC, bodyA, HitState{Body: 1}},
		{"counter elsewhere does nothing", headA, bodyC, HitState{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := PlayerState{Cards: CardState{1, 1, 1, 1, 1, 1}}
			next := p.Apply(tc.own, tc.opp)
			assert.Equal(t, tc.want, next.Hits)
			assert.Equal(t, p.Cards.Total()-1, next.Cards.Total())
			assert.Equal(t, 0, next.Cards[tc.own.Slot()])
		})
	}
}

func TestTransitionSpendsOneCardEach(t *testing.T) {
	rules := DefaultRules()
	s := rules.Initial()
	own, opp := rules.ActionSpace(s)
	require.Len(t, own, NumActions)
	require.Len(t, opp, NumActions)

	for _, a := range own {
		for _, b := range opp {
			next := rules.Transition(s, JointAction{Own: a, Opponent: b})
			assert.Equal(t, s.Mover.Cards.Total()-1, next.Mover.Cards.Total())
			assert.Equal(t, s.Opponent.Cards.Total()-1, next.Opponent.Cards.Total())

			swapped := rules.Transition(s.Swap(), JointAction{Own: b, Opponent: a})
			assert.Equal(t, next.Swap(), swapped, "rules must be symmetric")
		}
	}
}

func TestActionSpaceFollowsCards(t *testing.T) {
	cards := CardState{0, 1, 1, 0, 0, 0}
	got := cards.ActionSpace()
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].ID(), got[1].ID(), got[2].ID()})
	assert.Empty(t, CardState{}.ActionSpace())
}

func TestTerminalValue(t *testing.T) {
	rules := DefaultRules()
	alive := PlayerState{Cards: CardState{1}}
	dead := PlayerState{Hits: HitState{Head: 2}, Cards: CardState{1}}
	empty := PlayerState{}

	tests := []struct {
		name     string
		state    GameState
		want     float64
		terminal bool
	}{
		{"both alive with cards", GameState{alive, alive}, 0, false},
		{"both dead", GameState{dead, dead}, ValueDraw, true},
		{"mover dead", GameState{dead, alive}, ValueLoss, true},
		{"opponent dead", GameState{alive, dead}, ValueWin, true},
		{"out of cards", GameState{empty, empty}, ValueDraw, true},
		{"total threshold", GameState{PlayerState{Hits: HitState{1, 2, 2}, Cards: CardState{1}}, alive}, ValueLoss, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := rules.TerminalValue(tc.state)
			assert.Equal(t, tc.terminal, ok)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestZeroCardsIsAlwaysTerminal(t *testing.T) {
	rules := DefaultRules()
	for h := 0; h < rules.MaxHeadHits; h++ {
		for b := 0; b < rules.MaxBodyHits; b++ {
			s := GameState{
				Mover:    PlayerState{Hits: HitState{Head: h, Body: b}},
				Opponent: PlayerState{Hits: HitState{Body: b}},
			}
			v, ok := rules.TerminalValue(s)
			require.True(t, ok)
			assert.Contains(t, []float64{ValueLoss, ValueDraw, ValueWin}, v)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s := GameState{
		Mover:    PlayerState{Hits: HitState{1, 0, 2}, Cards: CardState{1, 3, 0, 4, 1, 2}},
		Opponent: PlayerState{Hits: HitState{0, 2, 1}, Cards: CardState{0, 2, 1, 3, 1, 4}},
	}
	data := s.Serialize()
	assert.Equal(t, "1,0,2,1,3,0,4,1,2,0,2,1,0,2,1,3,1,4", data)

	parsed, err := ParseState(data)
	require.NoError(t, err)
	assert.Equal(t, s, parsed)

	_, err = ParseState("1,2,3")
	assert.Error(t, err)
	_, err = ParseState("1,0,2,1,3,0,4,1,2,0,2,1,0,2,1,3,1,x")
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		r, err := Preset(name)
		require.NoError(t, err)
		assert.NoError(t, r.Validate(), name)
	}
	_, err := Preset("huge")
	assert.Error(t, err)

	assert.Equal(t, 14, DefaultRules().MaxCards())
	assert.Contains(t, DefaultRules().Render(DefaultRules().Initial()), "legs_ac:")
}
