// Package index maps every non-terminal-by-cards Bodega Brawl state onto a
// dense integer range so solved policies and values can live in flat arrays.
//
// Indices are grouped into contiguous ranges by cards remaining, ascending,
// so every successor of a state (one card fewer) has a smaller index. States
// with zero cards are always terminal and are never indexed.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/bodegabrawl/internal/game"
)

// ErrOutOfRange is returned for indices outside [0, Total) and for states
// that have no index.
var ErrOutOfRange = errors.New("index out of range")

// Range is the half-open block [Start, End) holding every state with Cards
// cards in each hand.
type Range struct {
	Cards int
	Start int
	End   int
}

// Len returns the number of states in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether i falls inside the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Indexer is the bijection between indexable game states and [0, Total).
// It is immutable after New and safe for concurrent use.
type Indexer struct {
	rules game.Rules

	hits    []game.HitState
	hitRank []int // dense hit key -> rank, -1 when dead

	cardRadix [game.NumCardSlots]int
	cards     [][]game.CardState // by cards remaining
	cardRank  []int              // dense card key -> rank within its count

	ranges []Range // ranges[k-1] holds k-card states
	total  int
}

// New enumerates the live hit states and card states for rules and lays out
// the index ranges.
func New(rules game.Rules) (*Indexer, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	ix := &Indexer{rules: rules}
	ix.enumerateHits()
	ix.enumerateCards()

	h := len(ix.hits)
	maxCards := rules.MaxCards()
	ix.ranges = make([]Range, 0, maxCards)
	for k := 1; k <= maxCards; k++ {
		c := len(ix.cards[k])
		start := ix.total
		ix.total += c * c * h * h
		ix.ranges = append(ix.ranges, Range{Cards: k, Start: start, End: ix.total})
	}
	return ix, nil
}

func (ix *Indexer) hitKey(s game.HitState) (int, bool) {
	r := ix.rules
	if s.Head < 0 || s.Body < 0 || s.Legs < 0 ||
		s.Head >= r.MaxHeadHits || s.Body >= r.MaxBodyHits || s.Legs >= r.MaxLegsHits {
		return 0, false
	}
	return (s.Head*r.MaxBodyHits+s.Body)*r.MaxLegsHits + s.Legs, true
}

func (ix *Indexer) enumerateHits() {
	r := ix.rules
	ix.hitRank = make([]int, r.MaxHeadHits*r.MaxBodyHits*r.MaxLegsHits)
	for hd := 0; hd < r.MaxHeadHits; hd++ {
		for b := 0; b < r.MaxBodyHits; b++ {
			for l := 0; l < r.MaxLegsHits; l++ {
				s := game.HitState{Head: hd, Body: b, Legs: l}
				key, _ := ix.hitKey(s)
				if r.Dead(s) {
					ix.hitRank[key] = -1
					continue
				}
				ix.hitRank[key] = len(ix.hits)
				ix.hits = append(ix.hits, s)
			}
		}
	}
}

func (ix *Indexer) cardKey(c game.CardState) (int, bool) {
	key := 0
	for i, n := range c {
		if n < 0 || n >= ix.cardRadix[i] {
			return 0, false
		}
		key = key*ix.cardRadix[i] + n
	}
	return key, true
}

func (ix *Indexer) enumerateCards() {
	size := 1
	for i, n := range ix.rules.Start {
		ix.cardRadix[i] = n + 1
		size *= n + 1
	}
	ix.cards = make([][]game.CardState, ix.rules.MaxCards()+1)
	ix.cardRank = make([]int, size)

	// Walking keys in ascending order visits card states with the last
	// slot varying fastest.
	for key := 0; key < size; key++ {
		var c game.CardState
		rem := key
		for i := game.NumCardSlots - 1; i >= 0; i-- {
			c[i] = rem % ix.cardRadix[i]
			rem /= ix.cardRadix[i]
		}
		k := c.Total()
		ix.cardRank[key] = len(ix.cards[k])
		ix.cards[k] = append(ix.cards[k], c)
	}
}

// Rules returns the rule set the indexer was built from.
func (ix *Indexer) Rules() game.Rules {
	return ix.rules
}

// Total returns the number of indexed states.
func (ix *Indexer) Total() int {
	return ix.total
}

// MaxCards returns the starting hand size, the highest indexed card count.
func (ix *Indexer) MaxCards() int {
	return len(ix.ranges)
}

// Ranges returns a copy of the range table in ascending index order.
func (ix *Indexer) Ranges() []Range {
	out := make([]Range, len(ix.ranges))
	copy(out, ix.ranges)
	return out
}

// RangeFor returns the range for states with k cards per hand.
func (ix *Indexer) RangeFor(k int) (Range, bool) {
	if k < 1 || k > len(ix.ranges) {
		return Range{}, false
	}
	return ix.ranges[k-1], true
}

// RangeOf returns the range containing index i.
func (ix *Indexer) RangeOf(i int) (Range, error) {
	if i < 0 || i >= ix.total {
		return Range{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, ix.total)
	}
	n := sort.Search(len(ix.ranges), func(j int) bool { return ix.ranges[j].End > i })
	r := ix.ranges[n]
	if !r.Contains(i) {
		return Range{}, fmt.Errorf("%w: %d has no range", ErrOutOfRange, i)
	}
	return r, nil
}

// LiveHitStates returns every hit state that is not dead, in rank order.
func (ix *Indexer) LiveHitStates() []game.HitState {
	out := make([]game.HitState, len(ix.hits))
	copy(out, ix.hits)
	return out
}

// CardStates returns every card state holding exactly k cards, in rank order.
func (ix *Indexer) CardStates(k int) []game.CardState {
	if k < 0 || k >= len(ix.cards) {
		return nil
	}
	out := make([]game.CardState, len(ix.cards[k]))
	copy(out, ix.cards[k])
	return out
}

func (ix *Indexer) hitRankOf(s game.HitState) (int, bool) {
	key, ok := ix.hitKey(s)
	if !ok || ix.hitRank[key] < 0 {
		return 0, false
	}
	return ix.hitRank[key], true
}

func (ix *Indexer) cardRankOf(c game.CardState) (int, bool) {
	key, ok := ix.cardKey(c)
	if !ok {
		return 0, false
	}
	return ix.cardRank[key], true
}

// IndexOf returns the dense index of s. Both hands must hold the same,
// non-zero number of cards and neither player may be dead.
func (ix *Indexer) IndexOf(s game.GameState) (int, error) {
	k := s.Mover.Cards.Total()
	if other := s.Opponent.Cards.Total(); other != k {
		return 0, fmt.Errorf("%w: hands differ (%d vs %d cards)", ErrOutOfRange, k, other)
	}
	r, ok := ix.RangeFor(k)
	if !ok {
		return 0, fmt.Errorf("%w: %d cards remaining", ErrOutOfRange, k)
	}

	ownC, ok1 := ix.cardRankOf(s.Mover.Cards)
	oppC, ok2 := ix.cardRankOf(s.Opponent.Cards)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%w: card counts exceed starting hand", ErrOutOfRange)
	}
	ownH, ok1 := ix.hitRankOf(s.Mover.Hits)
	oppH, ok2 := ix.hitRankOf(s.Opponent.Hits)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%w: hit state is dead or out of bounds", ErrOutOfRange)
	}

	c := len(ix.cards[k])
	h := len(ix.hits)
	sub := ((ownC*c+oppC)*h+ownH)*h + oppH
	return r.Start + sub, nil
}

// StateOf returns the state stored at index i.
func (ix *Indexer) StateOf(i int) (game.GameState, error) {
	r, err := ix.RangeOf(i)
	if err != nil {
		return game.GameState{}, err
	}
	cards := ix.cards[r.Cards]
	c := len(cards)
	h := len(ix.hits)

	sub := i - r.Start
	oppH := sub % h
	sub /= h
	ownH := sub % h
	sub /= h
	oppC := sub % c
	ownC := sub / c

	return game.GameState{
		Mover:    game.PlayerState{Hits: ix.hits[ownH], Cards: cards[ownC]},
		Opponent: game.PlayerState{Hits: ix.hits[oppH], Cards: cards[oppC]},
	}, nil
}
