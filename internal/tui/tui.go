// Package tui is a terminal blackjack table for local play against
// computer seats.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/simulator"
)

// Model is the Bubble Tea model for a local table
type Model struct {
	engine     *game.Engine
	estimator  *simulator.Estimator
	logger     *log.Logger
	numAI      int
	difficulty game.Difficulty
	betAmount  int

	// Last snapshot seen, with the hole card hidden during play
	snap            game.Snapshot
	loggedDecisions int

	// UI components
	logViewport viewport.Model
	input       textinput.Model
	gameLog     []string
	focusedPane int // 0 = log, 1 = input

	width       int
	height      int
	initialized bool
	quitting    bool
}

// Option configures a Model
type Option func(*Model)

// WithEstimator enables the odds command
func WithEstimator(e *simulator.Estimator) Option {
	return func(m *Model) { m.estimator = e }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithComputerSeats sets how many computer seats join the first round
func WithComputerSeats(n int) Option {
	return func(m *Model) { m.numAI = max(0, min(n, game.MaxComputerSeats)) }
}

// WithDifficulty sets the computer seats' difficulty
func WithDifficulty(d game.Difficulty) Option {
	return func(m *Model) { m.difficulty = d }
}

// oddsMsg carries a finished estimate back to Update.
type oddsMsg struct {
	explanation simulator.Explanation
}

// NewModel creates a table model around engine.
func NewModel(engine *game.Engine, opts ...Option) *Model {
	// Sized properly when the first WindowSizeMsg arrives
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 64
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	m := &Model{
		engine:      engine,
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
		numAI:       2,
		difficulty:  game.Medium,
		logViewport: vp,
		input:       ti,
		focusedPane: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithPrefix("tui")
	m.snap = engine.Snapshot().Public()

	m.AddLogEntry(HeaderStyle.Render(" Blackjack "))
	m.AddLogEntry(InfoStyle.Render("Press Enter to open a round, 'help' for commands."))
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case oddsMsg:
		m.logOdds(msg.explanation)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.input.Focus()
			} else {
				m.focusedPane = 0
				m.input.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				cmd := m.execute(m.input.Value())
				m.input.SetValue("")
				cmds = append(cmds, cmd)
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the table
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight-2, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logStyle.Render(m.logViewport.View()), sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderSidebarPane() string {
	var b strings.Builder
	s := m.snap

	b.WriteString(WarningStyle.Render(fmt.Sprintf("Round %d", s.Round)))
	b.WriteString(InfoStyle.Render(" " + s.Difficulty.String()))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Count: %+d  True: %+.1f\n", s.RunningCount, s.TrueCount)
	if s.Suggestion != "" {
		b.WriteString(InfoStyle.Render(s.Suggestion))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render(fmt.Sprintf("Shoe: %d cards", s.CardsRemaining)))
	b.WriteString("\n\n")

	b.WriteString(InfoStyle.Render("Seats:"))
	b.WriteString("\n")
	for _, seat := range s.Seats {
		line := fmt.Sprintf("  %s: $%d", seat.Name, seat.Balance)
		if seat.Bet > 0 {
			line += fmt.Sprintf(" (bet $%d)", seat.Bet)
		}
		if seat.IsTurn {
			line = TurnStyle.Render(line + " <")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if s.Stats.RoundsPlayed > 0 {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Win rate: %.1f%%", s.Stats.WinRate())))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderActionPane() string {
	var b strings.Builder
	s := m.snap

	if len(s.Dealer.Cards) > 0 {
		dealer := fmt.Sprintf("Dealer: %s %d", formatCards(s.Dealer.Cards), s.Dealer.Value)
		if s.Dealer.HiddenCards > 0 {
			dealer += " + ?"
		}
		b.WriteString(DealerStyle.Render(dealer))
		b.WriteString("\n")
	}
	if seat, ok := m.humanSeat(); ok && len(seat.Cards) > 0 {
		b.WriteString(fmt.Sprintf("You: %s %s", formatCards(seat.Cards), handValue(seat)))
		b.WriteString("\n")
	}

	b.WriteString(ActionsStyle.Render(m.availableCommands()))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	help := "Tab to scroll log • Enter to submit • Ctrl+C to quit"
	if m.focusedPane == 0 {
		help = "Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"
	}
	b.WriteString(InfoStyle.Render(help))
	return b.String()
}

func (m *Model) availableCommands() string {
	switch m.snap.Phase {
	case game.WaitingForBets:
		return fmt.Sprintf("[bet N] [Enter deals at $%d]", m.nextBet())
	case game.InProgress:
		return "[hit] [stand] [double] [split] [insurance] [withdraw] [odds]"
	default:
		return "[Enter] new round  [refill]  [difficulty easy|medium|hard]"
	}
}

func (m *Model) humanSeat() (game.SeatSnapshot, bool) {
	if seat, ok := m.snap.CurrentSeat(); ok && seat.Kind == game.Human {
		return seat, true
	}
	return m.snap.Seat(game.HumanSeatID)
}

func (m *Model) nextBet() int {
	if m.betAmount > 0 {
		return m.betAmount
	}
	return game.DefaultConfig().MinBet
}

// AddLogEntry appends a line to the log and scrolls to it.
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the log lines
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// Snapshot returns the last table state shown
func (m *Model) Snapshot() game.Snapshot {
	return m.snap
}

func formatCards(cards []deck.Card) string {
	formatted := make([]string, 0, len(cards))
	for _, card := range cards {
		if card.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

func handValue(seat game.SeatSnapshot) string {
	switch {
	case seat.Busted:
		return fmt.Sprintf("%d bust", seat.Value)
	case seat.Soft:
		return fmt.Sprintf("soft %d", seat.Value)
	default:
		return fmt.Sprint(seat.Value)
	}
}
