package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/simulator"
)

var shortActions = map[string]game.Action{
	"h": game.Hit,
	"s": game.Stand,
	"d": game.DoubleDown,
	"p": game.Split,
	"i": game.Insurance,
	"w": game.Withdraw,
}

// execute runs one line of input and returns any follow-up command.
func (m *Model) execute(input string) tea.Cmd {
	fields := strings.Fields(strings.ToLower(input))
	var cmd string
	var args []string
	if len(fields) > 0 {
		cmd, args = fields[0], fields[1:]
	}

	switch cmd {
	case "q", "quit", "exit":
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	case "help", "?":
		m.logHelp()
	case "", "deal", "n", "next":
		m.advance()
	case "bet", "b":
		if len(args) != 1 {
			m.AddLogEntry(ErrorStyle.Render("Usage: bet <amount>"))
			return nil
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount < 1 {
			m.AddLogEntry(ErrorStyle.Render("Bet must be a positive number"))
			return nil
		}
		m.bet(amount)
	case "refill":
		m.apply(m.engine.Refill(game.HumanSeatID))
		m.AddLogEntry(SuccessStyle.Render("Balance refilled"))
	case "difficulty", "diff":
		if len(args) != 1 {
			m.AddLogEntry(ErrorStyle.Render("Usage: difficulty easy|medium|hard"))
			return nil
		}
		d, err := game.ParseDifficulty(args[0])
		if err != nil {
			m.AddLogEntry(ErrorStyle.Render(err.Error()))
			return nil
		}
		m.difficulty = d
		m.AddLogEntry(InfoStyle.Render("Difficulty for the next round: " + d.String()))
	case "odds", "hint":
		return m.odds()
	default:
		action, ok := shortActions[cmd]
		if !ok {
			var err error
			if action, err = game.ParseAction(cmd); err != nil {
				m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("Unknown command %q, try 'help'", cmd)))
				return nil
			}
		}
		m.act(action)
	}
	return nil
}

// advance moves the table to its next phase: open a round, deal, or
// remind the player it is their turn.
func (m *Model) advance() {
	switch m.engine.Phase() {
	case game.WaitingForBets:
		if seat, ok := m.snap.Seat(game.HumanSeatID); ok && seat.Bet == 0 && m.betAmount > 0 {
			m.engine.PlaceBet(game.HumanSeatID, m.betAmount)
		}
		m.apply(m.engine.ConfirmBets())
	case game.InProgress:
		m.AddLogEntry(InfoStyle.Render("Your move: hit, stand, double, split, insurance or withdraw"))
	default:
		m.apply(m.engine.StartNewRound(m.numAI, m.difficulty))
		m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("Place a bet, or press Enter to deal at $%d", m.nextBet())))
	}
}

// bet opens a round if needed, wagers and deals.
func (m *Model) bet(amount int) {
	switch m.engine.Phase() {
	case game.InProgress, game.DealerTurn:
		m.AddLogEntry(ErrorStyle.Render("Finish the current round first"))
		return
	case game.WaitingForBets:
	default:
		m.apply(m.engine.StartNewRound(m.numAI, m.difficulty))
	}
	m.betAmount = amount
	m.engine.PlaceBet(game.HumanSeatID, amount)
	m.apply(m.engine.ConfirmBets())
}

func (m *Model) act(a game.Action) {
	if m.engine.Phase() != game.InProgress {
		m.AddLogEntry(ErrorStyle.Render("No hand to play, press Enter for a new round"))
		return
	}
	m.logger.Debug("Player action", "action", a)
	m.apply(m.engine.Act(a))
}

func (m *Model) odds() tea.Cmd {
	if m.estimator == nil {
		m.AddLogEntry(ErrorStyle.Render("Odds are not available at this table"))
		return nil
	}
	seat, ok := m.snap.CurrentSeat()
	if !ok || seat.Kind != game.Human {
		m.AddLogEntry(ErrorStyle.Render("Odds are shown during your turn"))
		return nil
	}
	state := simulator.State{Total: seat.Value, DealerUp: m.snap.Dealer.UpCard, Soft: seat.Soft}
	est := m.estimator
	return func() tea.Msg {
		return oddsMsg{explanation: est.Explain(state)}
	}
}

func (m *Model) logOdds(ex simulator.Explanation) {
	m.AddLogEntry(WarningStyle.Render(fmt.Sprintf("Odds %s: %s", ex.State, ex.Action)) + " " + InfoStyle.Render(ex.Reason))
}

// apply records a new snapshot, logging what changed since the last one.
func (m *Model) apply(snap game.Snapshot) {
	prev := m.snap
	snap = snap.Public()

	if snap.Round != prev.Round {
		m.loggedDecisions = 0
		m.AddLogEntry(HeaderStyle.Render(fmt.Sprintf(" Round %d ", snap.Round)))
	}

	if prev.Phase == game.WaitingForBets && snap.Phase != game.WaitingForBets {
		m.logDeal(snap)
	}
	m.logDecisions(snap)

	if seat, ok := snap.Seat(game.HumanSeatID); ok && snap.Phase == game.InProgress {
		if prevSeat, _ := prev.Seat(game.HumanSeatID); len(prevSeat.Cards) > 0 && len(seat.Cards) != len(prevSeat.Cards) {
			m.AddLogEntry(fmt.Sprintf("You: %s %s", formatCards(seat.Cards), handValue(seat)))
		}
	}

	if snap.Message != "" && snap.Message != prev.Message {
		m.AddLogEntry(WarningStyle.Render(snap.Message))
	}
	if snap.GameOver && !prev.GameOver {
		m.logResults(snap)
	}
	m.snap = snap
}

func (m *Model) logDeal(s game.Snapshot) {
	dealer := fmt.Sprintf("Dealer shows %s", formatCards(s.Dealer.Cards))
	m.AddLogEntry(DealerStyle.Render(dealer))
	for _, seat := range s.Seats {
		if seat.SittingOut {
			continue
		}
		m.AddLogEntry(fmt.Sprintf("%s: %s %s (bet $%d)", seat.Name, formatCards(seat.Cards), handValue(seat), seat.Bet))
	}
}

func (m *Model) logDecisions(s game.Snapshot) {
	n := 0
	for _, d := range s.Decisions {
		if d.Round != s.Round {
			continue
		}
		n++
		if n <= m.loggedDecisions {
			continue
		}
		m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("%s %ss on %d (%s, count %+d, P(hit win) %.0f%%)",
			d.Actor, d.Action, d.Total, d.Strategy, d.Count, d.HitProbability*100)))
	}
	m.loggedDecisions = max(m.loggedDecisions, n)
}

func (m *Model) logResults(s game.Snapshot) {
	m.AddLogEntry(DealerStyle.Render(fmt.Sprintf("Dealer: %s %d", formatCards(s.Dealer.Cards), s.Dealer.Value)))
	for _, seat := range s.Seats {
		if !seat.Settled && !seat.Withdrawn {
			continue
		}
		outcome := strings.ToLower(seat.Outcome)
		if seat.Withdrawn {
			outcome = "withdrew"
		}
		line := fmt.Sprintf("%s %s: %s, balance $%d", seat.Name, handValue(seat), outcome, seat.Balance)
		switch {
		case seat.Kind == game.Human && seat.Result == evaluator.Win:
			line = SuccessStyle.Render(line)
		case seat.Kind == game.Human:
			line = WarningStyle.Render(line)
		}
		m.AddLogEntry(line)
	}
}

func (m *Model) logHelp() {
	for _, line := range []string{
		"Enter / deal      open a round, then deal",
		"bet N             wager N and deal",
		"hit (h)  stand (s)  double (d)  split (p)  insurance (i)  withdraw (w)",
		"odds              Monte Carlo estimate for your hand",
		"refill            reset your balance",
		"difficulty LEVEL  easy, medium or hard for the next round",
		"quit              leave the table",
	} {
		m.AddLogEntry(InfoStyle.Render(line))
	}
}
