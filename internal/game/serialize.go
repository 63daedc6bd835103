package game

import (
	"fmt"
	"strconv"
	"strings"
)

// serializedFields is the number of integers in a serialized GameState:
// mover hits(3) + mover cards(6) + opponent hits(3) + opponent cards(6).
const serializedFields = 2 * (3 + NumCardSlots)

func (p PlayerState) flat() []int {
	out := []int{p.Hits.Head, p.Hits.Body, p.Hits.Legs}
	return append(out, p.Cards[:]...)
}

// Flat returns the 18 integers that identify the state.
func (s GameState) Flat() []int {
	return append(s.Mover.flat(), s.Opponent.flat()...)
}

// Serialize returns the comma-joined integer form used for diagnostics
// and addressing.
func (s GameState) Serialize() string {
	parts := make([]string, 0, serializedFields)
	for _, v := range s.Flat() {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

// ParseState is the inverse of Serialize.
func ParseState(data string) (GameState, error) {
	fields := strings.Split(strings.TrimSpace(data), ",")
	if len(fields) != serializedFields {
		return GameState{}, fmt.Errorf("state %q: expected %d fields, got %d", data, serializedFields, len(fields))
	}
	vals := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return GameState{}, fmt.Errorf("state field %d: %w", i, err)
		}
		if v < 0 {
			return GameState{}, fmt.Errorf("state field %d is negative", i)
		}
		vals[i] = v
	}
	return GameState{
		Mover:    playerFromFlat(vals[:9]),
		Opponent: playerFromFlat(vals[9:]),
	}, nil
}

func playerFromFlat(v []int) PlayerState {
	var p PlayerState
	p.Hits = HitState{Head: v[0], Body: v[1], Legs: v[2]}
	copy(p.Cards[:], v[3:9])
	return p
}

// MarshalText implements encoding.TextMarshaler.
func (s GameState) MarshalText() ([]byte, error) {
	return []byte(s.Serialize()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *GameState) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var cardSlotNames = [NumCardSlots]string{"head_a", "head_ac", "body_a", "body_ac", "legs_a", "legs_ac"}

// Render draws the two players side by side, marking dead players.
func (r Rules) Render(s GameState) string {
	dead := func(h HitState) string {
		if r.Dead(h) {
			return "DEAD"
		}
		return "    "
	}
	var b strings.Builder
	fmt.Fprintf(&b, "p1: %s    |p2: %s\n", dead(s.Mover.Hits), dead(s.Opponent.Hits))
	b.WriteString("------------+------------\n")
	for _, reg := range []Region{Head, Body, Legs} {
		fmt.Fprintf(&b, "%-5s %-6d|%-5s %d\n", reg.String()+":", s.Mover.Hits.Get(reg), reg.String()+":", s.Opponent.Hits.Get(reg))
	}
	b.WriteString("------------+------------\n")
	for i, name := range cardSlotNames {
		fmt.Fprintf(&b, "%-8s %-3d|%-8s %d\n", name+":", s.Mover.Cards[i], name+":", s.Opponent.Cards[i])
	}
	return b.String()
}
