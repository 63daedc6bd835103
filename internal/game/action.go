package game

import (
	"fmt"
	"strings"
)

// Region is the body part an action targets.
type Region uint8

const (
	Head Region = iota
	Body
	Legs
)

// NumRegions is the number of targetable regions.
const NumRegions = 3

func (r Region) String() string {
	switch r {
	case Head:
		return "head"
	case Body:
		return "body"
	case Legs:
		return "legs"
	default:
		return "unknown"
	}
}

// Card is the type of card backing an action.
type Card uint8

const (
	AttackCard Card = iota
	AttackCounterCard
)

func (c Card) String() string {
	switch c {
	case AttackCard:
		return "a"
	case AttackCounterCard:
		return "ac"
	default:
		return "unknown"
	}
}

// Mode is how a card is played.
type Mode uint8

const (
	Attack Mode = iota
	Counter
)

func (m Mode) String() string {
	switch m {
	case Attack:
		return "a"
	case Counter:
		return "c"
	default:
		return "unknown"
	}
}

// NumActions is the width of every policy vector.
const NumActions = 9

// Action is a single player's choice for one round. Counter mode is only
// legal with an attack/counter card.
type Action struct {
	Region Region
	Card   Card
	Mode   Mode
}

// Actions lists every action in canonical order; Actions[i].ID() == i.
var Actions = [NumActions]Action{
	{Head, AttackCard, Attack},
	{Head, AttackCounterCard, Attack},
	{Head, AttackCounterCard, Counter},
	{Body, AttackCard, Attack},
	{Body, AttackCounterCard, Attack},
	{Body, AttackCounterCard, Counter},
	{Legs, AttackCard, Attack},
	{Legs, AttackCounterCard, Attack},
	{Legs, AttackCounterCard, Counter},
}

// ID returns the action's position on the policy-vector axis.
func (a Action) ID() int {
	id := int(a.Region) * 3
	if a.Card == AttackCounterCard {
		if a.Mode == Attack {
			id++
		} else {
			id += 2
		}
	}
	return id
}

// Slot returns the CardState counter spent by this action.
func (a Action) Slot() int {
	return int(a.Region)*2 + int(a.Card)
}

// Valid reports whether the card/mode pairing is legal.
func (a Action) Valid() bool {
	if a.Region > Legs || a.Card > AttackCounterCard || a.Mode > Counter {
		return false
	}
	return a.Mode == Attack || a.Card == AttackCounterCard
}

// String returns the canonical name, e.g. HEAD_AC_C.
func (a Action) String() string {
	return strings.ToUpper(fmt.Sprintf("%s_%s_%s", a.Region, a.Card, a.Mode))
}

// ActionByID returns the action with the given canonical id.
func ActionByID(id int) (Action, error) {
	if id < 0 || id >= NumActions {
		return Action{}, fmt.Errorf("action id %d out of range [0, %d)", id, NumActions)
	}
	return Actions[id], nil
}

// ParseAction parses a canonical action name (case-insensitive).
func ParseAction(s string) (Action, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, a := range Actions {
		if a.String() == name {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("unknown action %q", s)
}

// JointAction is the pair of simultaneous choices for one round, from the
// mover's point of view.
type JointAction struct {
	Own      Action
	Opponent Action
}

// Swap returns the same round seen from the opponent's side.
func (j JointAction) Swap() JointAction {
	return JointAction{Own: j.Opponent, Opponent: j.Own}
}
