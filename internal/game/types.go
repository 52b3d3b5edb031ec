package game

import (
	"fmt"
	"strings"
)

// Phase is the table's position in the round lifecycle
type Phase int

const (
	Idle Phase = iota
	WaitingForBets
	InProgress
	DealerTurn
	GameOver
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case WaitingForBets:
		return "WAITING_FOR_BETS"
	case InProgress:
		return "IN_PROGRESS"
	case DealerTurn:
		return "DEALER_TURN"
	case GameOver:
		return "GAME_OVER"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Difficulty selects how computer seats decide
type Difficulty int

const (
	Medium Difficulty = iota
	Easy
	Hard
)

// String returns the string representation of a difficulty
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "EASY"
	case Hard:
		return "HARD"
	default:
		return "MEDIUM"
	}
}

// MarshalText implements encoding.TextMarshaler
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDifficulty parses EASY, MEDIUM or HARD (case-insensitive). An empty
// string is MEDIUM.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "MEDIUM":
		return Medium, nil
	case "EASY":
		return Easy, nil
	case "HARD":
		return Hard, nil
	default:
		return Medium, fmt.Errorf("invalid difficulty %q", s)
	}
}

// SeatKind distinguishes human seats from computer-controlled ones
type SeatKind int

const (
	Human SeatKind = iota
	Computer
)

// String returns the string representation of a seat kind
func (k SeatKind) String() string {
	if k == Computer {
		return "computer"
	}
	return "human"
}

// MarshalText implements encoding.TextMarshaler
func (k SeatKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Action is a player action on the hand whose turn it is
type Action int

const (
	Stand Action = iota
	Hit
	Withdraw
	DoubleDown
	Split
	Insurance
)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case Stand:
		return "stand"
	case Hit:
		return "hit"
	case Withdraw:
		return "withdraw"
	case DoubleDown:
		return "double"
	case Split:
		return "split"
	case Insurance:
		return "insurance"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAction parses an action name as sent by clients.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stand":
		return Stand, nil
	case "hit":
		return Hit, nil
	case "withdraw", "surrender":
		return Withdraw, nil
	case "double", "double_down":
		return DoubleDown, nil
	case "split":
		return Split, nil
	case "insurance":
		return Insurance, nil
	default:
		return Stand, fmt.Errorf("unknown action %q", s)
	}
}
