package game

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/randutil"
)

const (
	// HumanSeatID is the id of the seat created by StartNewRound.
	HumanSeatID = "player"
	// MaxComputerSeats caps num_ai.
	MaxComputerSeats = 5
	// DealerStandsOn is the total the dealer stops drawing at.
	DealerStandsOn = 17
)

var (
	ErrSeatExists   = errors.New("seat already exists")
	ErrRoundRunning = errors.New("round in progress")
	ErrSeatNotFound = errors.New("seat not found")
)

// Config holds table rules
type Config struct {
	Decks              int    // decks per shoe
	StartingBalance    int    // balance for new seats and refills
	MinBet             int    // minimum wager, also the computer floor
	ReshuffleThreshold int    // rebuild the shoe below this many cards before a deal
	DealerHitsSoft17   bool   // dealer draws on soft 17
	PlayerName         string // name of the default human seat
}

// DefaultConfig returns the standard table rules
func DefaultConfig() Config {
	return Config{
		Decks:              deck.StandardDecks,
		StartingBalance:    1000,
		MinBet:             10,
		ReshuffleThreshold: 20,
		PlayerName:         "Player",
	}
}

// Validate validates the table rules
func (c Config) Validate() error {
	if c.Decks < 1 || c.Decks > 8 {
		return fmt.Errorf("decks must be between 1 and 8, got %d", c.Decks)
	}
	if c.StartingBalance <= 0 {
		return errors.New("starting balance must be positive")
	}
	if c.MinBet <= 0 || c.MinBet > c.StartingBalance {
		return fmt.Errorf("min bet must be between 1 and the starting balance, got %d", c.MinBet)
	}
	if c.ReshuffleThreshold < 0 || c.ReshuffleThreshold >= c.Decks*52 {
		return fmt.Errorf("reshuffle threshold must be between 0 and %d", c.Decks*52-1)
	}
	return nil
}

// Option configures an Engine
type Option func(*Engine)

// WithAgent sets the agent that decides for medium and hard computer seats.
func WithAgent(a Agent) Option {
	return func(e *Engine) { e.agent = a }
}

// WithLogger sets the engine logger
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRand sets the random source used to shuffle shoes.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithShoe replaces the initial shoe, for stacked decks in tests.
func WithShoe(s *deck.Shoe) Option {
	return func(e *Engine) { e.shoe = s }
}

// Engine is the state machine for one table. All exported methods are safe
// for concurrent use; actions against one engine never interleave.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	rng    *rand.Rand
	agent  Agent
	logger *log.Logger

	shoe    *deck.Shoe
	counter counter.Counter

	accounts []*Account
	hands    []*Hand
	dealer   *Hand

	seated     bool
	holeCount  bool // the dealer hole card is in the current running count
	phase      Phase
	turn       int
	round      int
	difficulty Difficulty
	message    string

	stats     Stats
	decisions []DecisionRecord
}

// NewEngine creates a table with a freshly shuffled shoe
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		dealer: newHand(nil),
		turn:   -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = randutil.New(randutil.Seed())
	}
	if e.shoe == nil {
		e.shoe = deck.NewShoe(cfg.Decks, e.rng)
	}
	return e
}

// StartNewRound opens betting. The first call seats one human and numAI
// computer seats; later calls keep seats and balances. Computer seats wager
// automatically. It is a no-op while a round is being played.
func (e *Engine) StartNewRound(numAI int, difficulty Difficulty) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == InProgress || e.phase == DealerTurn {
		return e.snapshotLocked()
	}

	if !e.seated {
		e.seatDefaults(numAI)
		e.seated = true
	}
	if e.phase == WaitingForBets {
		e.refundBets()
	}

	e.difficulty = difficulty
	e.dealer = newHand(nil)
	for _, h := range e.mergeSplitHands() {
		h.resetRound()
	}
	e.turn = -1
	e.message = ""
	e.round++

	for _, h := range e.hands {
		if h.account.Kind == Computer {
			e.placeBet(h, computerWager(h.account.balance, e.cfg.MinBet))
		}
	}

	e.phase = WaitingForBets
	e.logger.Debug("Round opened", "round", e.round, "seats", len(e.hands), "difficulty", difficulty)
	return e.snapshotLocked()
}

// seatDefaults adds the default human unless humans were seated with
// AddHuman, then numAI computer seats.
func (e *Engine) seatDefaults(numAI int) {
	numAI = max(0, min(numAI, MaxComputerSeats))
	if len(e.accounts) == 0 {
		name := e.cfg.PlayerName
		if name == "" {
			name = "Player"
		}
		e.addSeat(newAccount(HumanSeatID, name, Human, e.cfg.StartingBalance))
	}
	for i := 1; i <= numAI; i++ {
		e.addSeat(newAccount(fmt.Sprintf("ai-%d", i), fmt.Sprintf("AI %d", i), Computer, e.cfg.StartingBalance))
	}
}

func (e *Engine) addSeat(a *Account) {
	e.accounts = append(e.accounts, a)
	e.hands = append(e.hands, newHand(a))
}

// mergeSplitHands drops split-spawned hands so every account has one hand.
func (e *Engine) mergeSplitHands() []*Hand {
	seen := make(map[*Account]bool, len(e.accounts))
	kept := e.hands[:0]
	for _, h := range e.hands {
		if seen[h.account] {
			continue
		}
		seen[h.account] = true
		kept = append(kept, h)
	}
	e.hands = kept
	return kept
}

func (e *Engine) refundBets() {
	for _, h := range e.hands {
		h.account.credit(h.bet)
		h.bet, h.initialBet = 0, 0
	}
}

// voidBets drops an identity's open wagers without crediting them, for
// callers about to overwrite its balance.
func (e *Engine) voidBets(a *Account) {
	for _, h := range e.hands {
		if h.account == a {
			h.bet, h.initialBet = 0, 0
		}
	}
}

// computerWager is 10% of balance with a floor of minBet, capped at balance.
func computerWager(balance, minBet int) int {
	return min(max(balance/10, minBet), balance)
}

func (e *Engine) placeBet(h *Hand, amount int) {
	h.account.credit(h.bet)
	h.bet, h.initialBet = 0, 0
	amount = min(amount, h.account.balance)
	if amount <= 0 {
		return
	}
	h.account.debit(amount)
	h.bet, h.initialBet = amount, amount
}

// PlaceBet sets the wager for a human seat while bets are open. The amount
// is clamped to [1, balance].
func (e *Engine) PlaceBet(seatID string, amount int) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != WaitingForBets {
		return e.snapshotLocked()
	}
	h := e.handFor(seatID)
	if h == nil || h.account.Kind != Human {
		return e.snapshotLocked()
	}
	e.placeBet(h, max(amount, 1))
	e.logger.Debug("Bet placed", "seat", seatID, "bet", h.bet)
	return e.snapshotLocked()
}

// ConfirmBets closes betting and deals two cards to every seat and then the
// dealer, one pass at a time.
func (e *Engine) ConfirmBets() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != WaitingForBets {
		return e.snapshotLocked()
	}

	for _, h := range e.hands {
		if h.bet == 0 && h.account.Kind == Human {
			e.placeBet(h, e.cfg.MinBet)
		}
		h.sittingOut = h.bet == 0
	}

	if e.shoe.Remaining() < e.cfg.ReshuffleThreshold {
		e.reshuffle()
	}

	for pass := 0; pass < 2; pass++ {
		for _, h := range e.hands {
			if !h.sittingOut {
				e.dealTo(h)
			}
		}
		e.dealTo(e.dealer)
		if pass == 0 {
			e.holeCount = true
		}
	}

	e.phase = InProgress
	e.turn = -1
	e.logger.Debug("Cards dealt", "round", e.round, "dealerUp", e.dealerUpValue(), "count", e.counter.RunningCount())
	e.nextTurn()
	return e.snapshotLocked()
}

func (e *Engine) reshuffle() {
	e.shoe = deck.NewShoe(e.cfg.Decks, e.rng)
	e.counter.Reset()
	e.holeCount = false
	e.logger.Debug("Shoe rebuilt", "cards", e.shoe.Remaining())
}

func (e *Engine) draw() deck.Card {
	c, ok := e.shoe.Draw()
	if !ok {
		e.logger.Warn("Shoe exhausted mid-round, rebuilding")
		e.reshuffle()
		c, _ = e.shoe.Draw()
	}
	e.counter.Update(c)
	return c
}

func (e *Engine) dealTo(h *Hand) {
	h.AddCard(e.draw())
}

// current returns the hand whose turn it is, or nil outside play.
func (e *Engine) current() *Hand {
	if e.phase != InProgress || e.turn < 0 || e.turn >= len(e.hands) {
		return nil
	}
	return e.hands[e.turn]
}

// CurrentSeat returns the id of the seat whose turn it is.
func (e *Engine) CurrentSeat() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.current()
	if h == nil {
		return "", false
	}
	return h.account.ID, true
}

// Act dispatches an action to the hand whose turn it is.
func (e *Engine) Act(a Action) Snapshot {
	switch a {
	case Hit:
		return e.Hit()
	case Stand:
		return e.Stand()
	case Withdraw:
		return e.Withdraw()
	case DoubleDown:
		return e.DoubleDown()
	case Split:
		return e.Split()
	case Insurance:
		return e.Insurance()
	default:
		return e.Snapshot()
	}
}

// Hit draws one card. A bust ends the hand's turn.
func (e *Engine) Hit() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.current()
	if h == nil || h.standing || h.withdrawn || h.busted {
		return e.snapshotLocked()
	}
	e.recordHuman(h, Hit)
	e.dealTo(h)
	if h.busted {
		e.nextTurn()
	}
	return e.snapshotLocked()
}

// Stand ends the hand's turn.
func (e *Engine) Stand() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.current()
	if h == nil {
		return e.snapshotLocked()
	}
	e.recordHuman(h, Stand)
	h.standing = true
	e.nextTurn()
	return e.snapshotLocked()
}

// Withdraw surrenders the hand: half the bet comes back now and the rest
// is forfeited.
func (e *Engine) Withdraw() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.current()
	if h == nil {
		return e.snapshotLocked()
	}
	refund := h.bet / 2
	h.account.credit(refund)
	h.withdrawn = true
	e.message = fmt.Sprintf("%s withdrew and recovered %d", h.account.Name, refund)
	e.nextTurn()
	return e.snapshotLocked()
}

// DoubleDown doubles the bet, draws exactly one card and stands.
func (e *Engine) DoubleDown() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.current()
	if h == nil {
		return e.snapshotLocked()
	}
	switch {
	case len(h.cards) != 2:
		e.message = "Double down is only allowed on the first two cards"
		return e.snapshotLocked()
	case h.account.balance < h.initialBet:
		e.message = "Insufficient balance to double down"
		return e.snapshotLocked()
	}

	e.recordHuman(h, DoubleDown)
	h.account.debit(h.initialBet)
	h.bet *= 2
	h.doubledDown = true
	e.dealTo(h)
	h.standing = true
	e.nextTurn()
	return e.snapshotLocked()
}

// Split moves the second card to a new hand directly after the current one
// and deals one card to each. The new hand's bet comes from the same
// account.
func (e *Engine) Split() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.current()
	if h == nil {
		return e.snapshotLocked()
	}
	switch {
	case len(h.cards) != 2 || h.cards[0].Rank != h.cards[1].Rank:
		e.message = "Split needs a pair of the same rank"
		return e.snapshotLocked()
	case h.account.balance < h.initialBet:
		e.message = "Insufficient balance to split"
		return e.snapshotLocked()
	}

	h.account.debit(h.initialBet)
	spawned := newHand(h.account)
	spawned.split = true
	spawned.bet = h.initialBet
	spawned.initialBet = h.initialBet
	spawned.AddCard(h.cards[1])

	h.cards = h.cards[:1]
	h.recalculate()
	h.split = true

	e.hands = append(e.hands, nil)
	copy(e.hands[e.turn+2:], e.hands[e.turn+1:])
	e.hands[e.turn+1] = spawned

	e.dealTo(h)
	e.dealTo(spawned)
	e.message = fmt.Sprintf("%s split", h.account.Name)
	return e.snapshotLocked()
}

// Insurance places a side bet of half the initial bet when the dealer
// shows an Ace.
func (e *Engine) Insurance() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.current()
	if h == nil {
		return e.snapshotLocked()
	}
	stake := h.initialBet / 2
	switch {
	case len(h.cards) != 2:
		e.message = "Insurance is only offered on the first two cards"
		return e.snapshotLocked()
	case e.dealerUpValue() != 11:
		e.message = "Insurance is only offered when the dealer shows an Ace"
		return e.snapshotLocked()
	case h.insured:
		e.message = "Hand is already insured"
		return e.snapshotLocked()
	case stake == 0 || h.account.balance < stake:
		e.message = "Insufficient balance for insurance"
		return e.snapshotLocked()
	}

	h.account.debit(stake)
	h.insuranceBet = stake
	h.insured = true
	e.message = fmt.Sprintf("%s took insurance for %d", h.account.Name, stake)
	return e.snapshotLocked()
}

func (e *Engine) recordHuman(h *Hand, a Action) {
	if h.account.Kind == Human {
		e.stats.recordHuman(a, h.value, e.dealerUpValue())
	}
}

// nextTurn advances past finished and computer seats. Computer seats play
// their whole turn before the index moves on; the dealer plays once the
// end of the list is reached.
func (e *Engine) nextTurn() {
	for {
		e.turn++
		if e.turn >= len(e.hands) {
			e.dealerTurn()
			return
		}
		h := e.hands[e.turn]
		if h.sittingOut {
			continue
		}
		if h.account.Kind == Computer {
			e.playComputer(h)
			continue
		}
		return
	}
}

func (e *Engine) dealerShouldDraw() bool {
	v := e.dealer.value
	if v < DealerStandsOn {
		return true
	}
	return e.cfg.DealerHitsSoft17 && v == DealerStandsOn && e.dealer.Soft()
}

func (e *Engine) dealerTurn() {
	e.phase = DealerTurn
	for e.dealerShouldDraw() {
		e.dealTo(e.dealer)
	}
	e.logger.Debug("Dealer finished", "value", e.dealer.value, "cards", len(e.dealer.cards))
	e.settle()
}

// settle pays every hand against the dealer. Insurance settles on its own
// before the hand itself.
func (e *Engine) settle() {
	dealerValue := e.dealer.value
	dealerBlackjack := evaluator.IsBlackjack(e.dealer.cards)

	parts := make([]string, 0, len(e.hands))
	for _, h := range e.hands {
		if h.sittingOut {
			continue
		}
		a := h.account
		var notes []string
		if h.insured && dealerBlackjack {
			a.credit(h.insuranceBet * 3)
			notes = append(notes, fmt.Sprintf("insurance paid %d", h.insuranceBet*3))
		}
		if h.withdrawn {
			parts = append(parts, fmt.Sprintf("%s: Withdrew", a.Name))
			continue
		}

		outcome := evaluator.DetermineWinner(h.value, dealerValue)
		payout := 0
		switch outcome {
		case evaluator.Win:
			if h.Natural() {
				payout = h.bet * 5 / 2
				notes = append(notes, "blackjack")
			} else {
				payout = h.bet * 2
			}
		case evaluator.Push:
			payout = h.bet
		}
		a.credit(payout)
		h.settled, h.outcome, h.payout = true, outcome, payout
		e.stats.recordOutcome(a.Kind, outcome)

		summary := fmt.Sprintf("%s: %s (%d vs %d)", a.Name, outcome, h.value, dealerValue)
		if len(notes) > 0 {
			summary += ", " + strings.Join(notes, ", ")
		}
		parts = append(parts, summary)
	}

	e.stats.RoundsPlayed++
	for _, a := range e.accounts {
		if a.Kind == Human && a.peak > e.stats.PeakBalance {
			e.stats.PeakBalance = a.peak
		}
	}
	e.message = strings.Join(parts, " | ")
	e.phase = GameOver
	e.logger.Debug("Round settled", "round", e.round, "result", e.message)
}

// dealerUpValue is the visible dealer card: the second card once two are
// dealt, otherwise the first.
func (e *Engine) dealerUpValue() int {
	switch n := len(e.dealer.cards); {
	case n >= 2:
		return e.dealer.cards[1].Value()
	case n == 1:
		return e.dealer.cards[0].Value()
	default:
		return 0
	}
}

func (e *Engine) handFor(id string) *Hand {
	for _, h := range e.hands {
		if h.account.ID == id {
			return h
		}
	}
	return nil
}

func (e *Engine) accountFor(id string) *Account {
	for _, a := range e.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// AddHuman seats another human between rounds. Humans are seated ahead of
// computer seats.
func (e *Engine) AddHuman(id, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.accountFor(id) != nil {
		return fmt.Errorf("%w: %s", ErrSeatExists, id)
	}
	if e.phase == InProgress || e.phase == DealerTurn {
		return ErrRoundRunning
	}
	a := newAccount(id, name, Human, e.cfg.StartingBalance)
	h := newHand(a)

	pos := 0
	for pos < len(e.hands) && e.hands[pos].account.Kind == Human {
		pos++
	}
	e.hands = append(e.hands, nil)
	copy(e.hands[pos+1:], e.hands[pos:])
	e.hands[pos] = h
	e.accounts = append(e.accounts, a)
	return nil
}

// RemoveSeat removes a seat between rounds, refunding any open bet.
func (e *Engine) RemoveSeat(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.accountFor(id)
	if a == nil {
		return fmt.Errorf("%w: %s", ErrSeatNotFound, id)
	}
	if e.phase == InProgress || e.phase == DealerTurn {
		return ErrRoundRunning
	}
	hands := e.hands[:0]
	for _, h := range e.hands {
		if h.account == a {
			a.credit(h.bet)
			continue
		}
		hands = append(hands, h)
	}
	e.hands = hands
	accounts := e.accounts[:0]
	for _, acc := range e.accounts {
		if acc != a {
			accounts = append(accounts, acc)
		}
	}
	e.accounts = accounts
	return nil
}

// Balance returns the balance owned by an identity.
func (e *Engine) Balance(id string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.accountFor(id)
	if a == nil {
		return 0, false
	}
	return a.balance, true
}

// SetBalance overwrites an identity's balance, e.g. when restoring a stored
// account. An open wager is dropped, so the balance is exactly what was set.
// It is refused while a round is being played.
func (e *Engine) SetBalance(id string, balance int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.accountFor(id)
	if a == nil || balance < 0 || e.phase == InProgress || e.phase == DealerTurn {
		return false
	}
	e.voidBets(a)
	a.set(balance)
	e.refreshBalances()
	return true
}

// Refill restores an identity's balance to the starting balance.
func (e *Engine) Refill(id string) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a := e.accountFor(id); a != nil && e.phase != InProgress && e.phase != DealerTurn {
		e.voidBets(a)
		a.set(e.cfg.StartingBalance)
		e.refreshBalances()
		e.message = fmt.Sprintf("%s refilled to %d", a.Name, e.cfg.StartingBalance)
	}
	return e.snapshotLocked()
}

// Stats returns the session statistics
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) refreshBalances() {
	for _, h := range e.hands {
		h.refresh()
	}
}
