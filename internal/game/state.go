package game

// HitState counts how many times each region of a player has been hit.
type HitState struct {
	Head int
	Body int
	Legs int
}

// Total returns the number of hits across all regions.
func (h HitState) Total() int {
	return h.Head + h.Body + h.Legs
}

// Get returns the counter for a region.
func (h HitState) Get(r Region) int {
	switch r {
	case Head:
		return h.Head
	case Body:
		return h.Body
	default:
		return h.Legs
	}
}

// WithHit returns a copy with one more hit on region r.
func (h HitState) WithHit(r Region) HitState {
	switch r {
	case Head:
		h.Head++
	case Body:
		h.Body++
	default:
		h.Legs++
	}
	return h
}

// Card slots, in the order cards are serialized.
const (
	HeadA = iota
	HeadAC
	BodyA
	BodyAC
	LegsA
	LegsAC
	NumCardSlots
)

// CardState holds the remaining count for each card slot.
type CardState [NumCardSlots]int

// Total returns the number of cards remaining.
func (c CardState) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Empty reports whether every counter is zero.
func (c CardState) Empty() bool {
	return c.Total() == 0
}

// Spend returns a copy with the counter backing a decremented by one.
func (c CardState) Spend(a Action) CardState {
	c[a.Slot()]--
	return c
}

// Has reports whether the card backing a is still in hand.
func (c CardState) Has(a Action) bool {
	return c[a.Slot()] > 0
}

// ActionSpace returns the playable actions in canonical order.
func (c CardState) ActionSpace() []Action {
	out := make([]Action, 0, NumActions)
	for _, a := range Actions {
		if c.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// PlayerState is one side of the board.
type PlayerState struct {
	Hits  HitState
	Cards CardState
}

// Apply returns the player's state after a round in which they played own
// and their opponent played opp.
func (p PlayerState) Apply(own, opp Action) PlayerState {
	return PlayerState{
		Hits:  p.Hits.receive(own, opp),
		Cards: p.Cards.Spend(own),
	}
}

// receive resolves the opponent's action against this player. Counter
// only punishes an attack into the same region; an attack anywhere else
// always lands.
func (h HitState) receive(own, opp Action) HitState {
	if opp.Region == own.Region {
		if own.Mode == Attack && opp.Mode == Counter {
			return h.WithHit(opp.Region)
		}
		return h
	}
	if opp.Mode == Attack {
		return h.WithHit(opp.Region)
	}
	return h
}

// GameState is the full board as seen by the mover.
type GameState struct {
	Mover    PlayerState
	Opponent PlayerState
}

// Swap returns the board from the opponent's point of view.
func (s GameState) Swap() GameState {
	return GameState{Mover: s.Opponent, Opponent: s.Mover}
}

// ActionSpace returns the legal actions for the mover and the opponent.
func (s GameState) ActionSpace() (own, opp []Action) {
	return s.Mover.Cards.ActionSpace(), s.Opponent.Cards.ActionSpace()
}

// CardsRemaining returns the mover's hand size. Both hands always hold the
// same number of cards in states reachable from a symmetric deal.
func (s GameState) CardsRemaining() int {
	return s.Mover.Cards.Total()
}
