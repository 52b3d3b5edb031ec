// Package game implements the multi-seat blackjack table.
//
// The main type is Engine, a mutex-guarded state machine that owns the
// shoe, the Hi-Lo counter, the dealer hand and an ordered list of player
// hands. A round moves through
//
//	WAITING_FOR_BETS -> IN_PROGRESS -> DEALER_TURN -> GAME_OVER
//
// and every action returns a Snapshot. Actions called outside their phase
// are no-ops, and invalid actions only set Snapshot.Message.
//
// # Basic Usage
//
//	e := game.NewEngine(game.DefaultConfig(), game.WithAgent(advisor))
//	e.StartNewRound(2, game.Medium)
//	e.PlaceBet(game.HumanSeatID, 50)
//	s := e.ConfirmBets()
//	for !s.GameOver {
//	    s = e.Stand()
//	}
//
// # Balances
//
// Balances belong to an Account, one per identity. Split hands settle
// against the same account and each hand only carries a copy that is
// refreshed after every mutation.
//
// # Computer Seats
//
// Computer seats play their whole turn synchronously when the turn reaches
// them. EASY seats hit below 16; other difficulties ask the configured
// Agent and log each decision.
package game
