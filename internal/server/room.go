package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/gameid"
)

// MaxRoomPlayers caps the human seats in a room.
const MaxRoomPlayers = 5

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrTooManyRooms = errors.New("too many rooms")
	ErrNotInRoom    = errors.New("not in a multiplayer room")
	ErrNotYourTurn  = errors.New("not your turn")
)

// Room is a shared table played by several connections
type Room struct {
	Code          string
	Engine        *game.Engine
	computerSeats int

	mu         sync.Mutex
	members    map[string]*Connection
	departed   map[string]bool
	lastActive time.Time
}

// Members returns the ids of connected players
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// StartRound removes players who left mid-round and opens betting.
func (r *Room) StartRound(difficulty game.Difficulty, now time.Time) game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = now
	for id := range r.departed {
		if err := r.Engine.RemoveSeat(id); err == nil || errors.Is(err, game.ErrSeatNotFound) {
			delete(r.departed, id)
		}
	}
	return r.Engine.StartNewRound(r.computerSeats, difficulty)
}

// PlaceBet sets a member's wager
func (r *Room) PlaceBet(playerID string, amount int, now time.Time) game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = now
	return r.Engine.PlaceBet(playerID, amount)
}

// ConfirmBets deals the round
func (r *Room) ConfirmBets(now time.Time) game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = now
	snap := r.Engine.ConfirmBets()
	return r.skipDeparted(snap)
}

// Act applies an action for playerID, who must hold the turn.
func (r *Room) Act(playerID string, a game.Action, now time.Time) (game.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seat, ok := r.Engine.CurrentSeat()
	if !ok || seat != playerID {
		return game.Snapshot{}, ErrNotYourTurn
	}
	r.lastActive = now
	snap := r.Engine.Act(a)
	return r.skipDeparted(snap), nil
}

// skipDeparted stands for players who left while holding the turn.
func (r *Room) skipDeparted(snap game.Snapshot) game.Snapshot {
	for {
		seat, ok := snap.CurrentSeat()
		if !ok || !r.departed[seat.ID] {
			return snap
		}
		snap = r.Engine.Stand()
	}
}

func (r *Room) broadcast(msg *Message) {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.members))
	for _, c := range r.members {
		conns = append(conns, c)
	}
	r.mu.Unlock()
	for _, c := range conns {
		_ = c.SendMessage(msg)
	}
}

// RoomManager tracks rooms and which room each player is in
type RoomManager struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	byPlayer  map[string]string
	clock     quartz.Clock
	ttl       time.Duration
	maxRooms  int
	newEngine func() *game.Engine
	logger    zerolog.Logger
}

// NewRoomManager creates an empty room manager
func NewRoomManager(clock quartz.Clock, ttl time.Duration, maxRooms int, newEngine func() *game.Engine, logger zerolog.Logger) *RoomManager {
	return &RoomManager{
		rooms:     make(map[string]*Room),
		byPlayer:  make(map[string]string),
		clock:     clock,
		ttl:       ttl,
		maxRooms:  maxRooms,
		newEngine: newEngine,
		logger:    logger.With().Str("component", "rooms").Logger(),
	}
}

// Create opens a room with the caller seated as its first player.
func (m *RoomManager) Create(conn *Connection, username string, computerSeats int) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rooms) >= m.maxRooms {
		return nil, ErrTooManyRooms
	}
	m.leaveLocked(conn.ID())

	code := gameid.RoomCode()
	for m.rooms[code] != nil {
		code = gameid.RoomCode()
	}
	r := &Room{
		Code:          code,
		Engine:        m.newEngine(),
		computerSeats: max(0, min(computerSeats, game.MaxComputerSeats)),
		members:       make(map[string]*Connection),
		departed:      make(map[string]bool),
		lastActive:    m.clock.Now(),
	}
	if err := r.Engine.AddHuman(conn.ID(), displayName(username, "Host")); err != nil {
		return nil, err
	}
	r.members[conn.ID()] = conn
	m.rooms[code] = r
	m.byPlayer[conn.ID()] = code

	m.logger.Info().Str("room", code).Str("player", conn.ID()).Msg("Room created")
	return r, nil
}

// Join seats the caller in an existing room. Joining a room the caller is
// already in is a no-op.
func (m *RoomManager) Join(conn *Connection, code, username string) (*Room, error) {
	code = gameid.NormalizeRoomCode(code)
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	if m.byPlayer[conn.ID()] == code {
		return r, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) >= MaxRoomPlayers {
		return nil, ErrRoomFull
	}
	if r.departed[conn.ID()] {
		delete(r.departed, conn.ID())
	} else if err := r.Engine.AddHuman(conn.ID(), displayName(username, "Guest")); err != nil {
		return nil, err
	}
	m.leaveLocked(conn.ID())
	r.members[conn.ID()] = conn
	r.lastActive = m.clock.Now()
	m.byPlayer[conn.ID()] = code

	m.logger.Info().Str("room", code).Str("player", conn.ID()).Int("players", len(r.members)).Msg("Player joined room")
	return r, nil
}

// Leave removes a player from their room. A player who leaves mid-round
// is stood for and unseated when the next round starts.
func (m *RoomManager) Leave(playerID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(playerID)
}

func (m *RoomManager) leaveLocked(playerID string) (*Room, bool) {
	code, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	delete(m.byPlayer, playerID)
	r := m.rooms[code]
	if r == nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, playerID)
	r.lastActive = m.clock.Now()
	if err := r.Engine.RemoveSeat(playerID); errors.Is(err, game.ErrRoundRunning) {
		r.departed[playerID] = true
		r.skipDeparted(r.Engine.Snapshot())
	}

	m.logger.Info().Str("room", code).Str("player", playerID).Int("players", len(r.members)).Msg("Player left room")
	return r, true
}

// ForPlayer returns the room a player is in
func (m *RoomManager) ForPlayer(playerID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[m.byPlayer[playerID]]
	return r, ok
}

// Get returns a room by code
func (m *RoomManager) Get(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[gameid.NormalizeRoomCode(code)]
	return r, ok
}

// Reap closes rooms that have no players and have been idle past the ttl.
func (m *RoomManager) Reap() int {
	cutoff := m.clock.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for code, r := range m.rooms {
		r.mu.Lock()
		idle := len(r.members) == 0 && r.lastActive.Before(cutoff)
		r.mu.Unlock()
		if idle {
			delete(m.rooms, code)
			n++
		}
	}
	return n
}

// Len returns the number of open rooms
func (m *RoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func displayName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return name
}
