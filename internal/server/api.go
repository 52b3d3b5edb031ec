package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/gameid"
	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/simulator"
	"github.com/lox/blackjackbots/internal/store"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "bj_session"

const storeTimeout = 3 * time.Second

type sessionKey struct{}

func sessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}

// withSession attaches the caller's session. A request without a valid
// cookie gets a new session; a cookie whose session was reaped gets a fresh
// table under the same id.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil && gameid.Validate(c.Value) == nil {
			id = c.Value
		}
		sess, ok := s.sessions.Get(id)
		if !ok {
			sess = s.sessions.Create(id)
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			s.logger.Debug().Str("session", sess.ID).Bool("returning", id != "").Msg("Session created")
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

type startRequest struct {
	NumAI      *int   `json:"num_ai"`
	Difficulty string `json:"difficulty"`
	Name       string `json:"name"`
}

type betRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	numAI := s.cfg.Table.ComputerSeats
	if req.NumAI != nil && *req.NumAI >= 0 && *req.NumAI <= game.MaxComputerSeats {
		numAI = *req.NumAI
	}
	difficulty, err := game.ParseDifficulty(req.Difficulty)
	if err != nil || req.Difficulty == "" {
		difficulty = s.cfg.Difficulty()
	}

	sess := sessionFrom(r.Context())
	eng := sess.Engine
	if sess.markRestored() {
		s.restoreAccount(r.Context(), sess, displayName(req.Name, s.cfg.GameConfig().PlayerName))
	}
	snap := eng.StartNewRound(numAI, difficulty)
	writeJSON(w, http.StatusOK, snap.Public())
}

// restoreAccount seats the session's human under name and carries over a
// stored balance.
func (s *Server) restoreAccount(ctx context.Context, sess *Session, name string) {
	_ = sess.Engine.AddHuman(game.HumanSeatID, name)

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	acct, err := s.accounts.GetAccount(ctx, sess.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return
	case err != nil:
		s.logger.Warn().Err(err).Str("session", sess.ID).Msg("Failed to load account")
		return
	}
	sess.Engine.SetBalance(game.HumanSeatID, acct.Balance)
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount < 1 {
		req.Amount = s.cfg.Table.MinBet
	}
	sess := sessionFrom(r.Context())
	sess.Engine.PlaceBet(game.HumanSeatID, req.Amount)
	s.respond(w, r, sess, sess.Engine.ConfirmBets())
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.respond(w, r, sess, sess.Engine.ConfirmBets())
}

func (s *Server) handleAction(a game.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		s.respond(w, r, sess, sess.Engine.Act(a))
	}
}

func (s *Server) handleRefill(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	snap := sess.Engine.Refill(game.HumanSeatID)
	s.saveAccount(r.Context(), sess, snap)
	writeJSON(w, http.StatusOK, snap.Public())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Engine.Snapshot().Public())
}

// respond writes the snapshot, persisting the balance once a round settles.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, sess *Session, snap game.Snapshot) {
	if snap.GameOver {
		s.saveAccount(r.Context(), sess, snap)
	}
	writeJSON(w, http.StatusOK, snap.Public())
}

func (s *Server) saveAccount(ctx context.Context, sess *Session, snap game.Snapshot) {
	seat, ok := snap.Seat(game.HumanSeatID)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	err := s.accounts.SaveAccount(ctx, store.Account{ID: sess.ID, Name: seat.Name, Balance: seat.Balance})
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sess.ID).Msg("Failed to save account")
	}
}

// activeSeat returns the seat being played, if a round is in progress.
func activeSeat(snap game.Snapshot) (game.SeatSnapshot, bool) {
	if snap.Phase != game.InProgress {
		return game.SeatSnapshot{}, false
	}
	return snap.CurrentSeat()
}

func (s *Server) handleProbability(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r.Context()).Engine.Snapshot()
	seat, ok := activeSeat(snap)
	if !ok || seat.Value > 21 {
		writeJSON(w, http.StatusOK, map[string]float64{"hit_win_rate": 0, "stand_win_rate": 0})
		return
	}
	state := simulator.State{Total: seat.Value, DealerUp: snap.Dealer.UpCard, Soft: seat.Soft}
	writeJSON(w, http.StatusOK, s.estimator.Explain(state))
}

func (s *Server) handleQValues(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r.Context()).Engine.Snapshot().Public()
	seat, ok := activeSeat(snap)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"q_stand": 0, "q_hit": 0, "state": nil})
		return
	}
	key := qlearning.NewKey(seat.Value, snap.Dealer.UpCard, snap.RunningCount)
	v, _ := s.agent.Table().Peek(key)
	optimal := "Stand"
	if v.Best() == game.Hit {
		optimal = "Hit"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"q_stand":        round3(v.Stand()),
		"q_hit":          round3(v.Hit()),
		"state":          key.String(),
		"optimal_action": optimal,
	})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	rows := make([]int, 0, qlearning.MaxPlayerTotal-qlearning.MinPlayerTotal+1)
	for t := qlearning.MinPlayerTotal; t <= qlearning.MaxPlayerTotal; t++ {
		rows = append(rows, t)
	}
	cols := make([]int, 0, qlearning.MaxDealerCard-qlearning.MinDealerCard+1)
	for d := qlearning.MinDealerCard; d <= qlearning.MaxDealerCard; d++ {
		cols = append(cols, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"heatmap": s.agent.Heatmap(),
		"rows":    rows,
		"cols":    cols,
		"legend": map[int]string{
			qlearning.CellStand: "Stand",
			qlearning.CellHit:   "Hit",
			qlearning.CellEqual: "Equal",
		},
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	total, err := intParam(r, "player_sum", 15)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dealer, err := intParam(r, "dealer_card", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player_sum":  total,
		"dealer_card": dealer,
		"details":     s.agent.Details(total, dealer),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.CompareWithBasicStrategy())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	entries, err := s.accounts.TopEntries(ctx, store.DefaultLeaderboardSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read leaderboard")
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type leaderboardRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSubmitLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req leaderboardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := sessionFrom(r.Context()).Engine.Snapshot()
	seat, ok := snap.Seat(game.HumanSeatID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "No player data"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	entry, err := s.accounts.AddEntry(ctx, store.EntryFromStats(displayName(req.Name, seat.Name), seat.Balance, snap.Stats))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Entry saved to the Hall of Fame!",
		"entry":   entry,
	})
}

// decodeBody decodes an optional JSON body. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorData{Message: message})
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
