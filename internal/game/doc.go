// Package game implements the rules of Bodega Brawl, a simultaneous-move
// two-player card game.
//
// Each round both players secretly pick an Action (a region, a card and a
// mode), then Rules.Transition applies both hit updates and spends one card
// from each hand. The game ends as soon as either player is dead or either
// player has no cards left.
//
// # Basic Usage
//
//	rules := game.DefaultRules()
//	s := rules.Initial()
//	own, opp := s.ActionSpace()
//	s = rules.Transition(s, game.JointAction{Own: own[0], Opponent: opp[0]})
//	if v, ok := rules.TerminalValue(s); ok {
//	    fmt.Println("game over", v)
//	}
//
// Every type in this package is an immutable value. Methods that change a
// state return a new one.
package game
