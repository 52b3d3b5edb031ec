package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/store"
)

// stateView is the subset of the public snapshot the tests read.
type stateView struct {
	Round int    `json:"round"`
	Phase string `json:"phase"`
	Seats []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Kind    string `json:"kind"`
		Balance int    `json:"balance"`
		Bet     int    `json:"bet"`
		IsTurn  bool   `json:"is_turn"`
	} `json:"seats"`
	Dealer struct {
		Cards       []json.RawMessage `json:"cards"`
		HiddenCards int               `json:"hidden_cards"`
	} `json:"dealer"`
	GameOver bool `json:"game_over"`
}

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newAPIClient(t *testing.T, srv *Server) *apiClient {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: ts.URL, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *apiClient) sessionID() string {
	u, _ := url.Parse(c.base)
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

// playRound bets and stands until the round settles.
func (c *apiClient) playRound(amount int) stateView {
	c.t.Helper()
	var state stateView
	require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/api/game/bet", map[string]int{"amount": amount}, &state))
	for i := 0; i < 5 && !state.GameOver; i++ {
		require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/api/game/stand", nil, &state))
	}
	require.True(c.t, state.GameOver, "round did not settle")
	return state
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)

	var body map[string]any
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestStartRound(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)

	var state stateView
	status := c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 1, "difficulty": "easy", "name": "Ana"}, &state)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "WAITING_FOR_BETS", state.Phase)
	assert.Equal(t, 1, state.Round)
	require.Len(t, state.Seats, 2)
	assert.Equal(t, game.HumanSeatID, state.Seats[0].ID)
	assert.Equal(t, "Ana", state.Seats[0].Name)
	assert.NotEmpty(t, c.sessionID())
	assert.Equal(t, 1, srv.sessions.Len())
}

func TestBetHidesDealerHoleCard(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)
	c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 0}, nil)

	var state stateView
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/game/bet", map[string]int{"amount": 50}, &state))
	if state.Phase == "IN_PROGRESS" {
		assert.Equal(t, 1, state.Dealer.HiddenCards)
		assert.Len(t, state.Dealer.Cards, 1)
		assert.Equal(t, 50, state.Seats[0].Bet)
	} else {
		assert.True(t, state.GameOver)
		assert.Len(t, state.Dealer.Cards, 2)
	}

	var again stateView
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/game/state", nil, &again))
	assert.Equal(t, state.Phase, again.Phase)
}

func TestSettledRoundSavesAccount(t *testing.T) {
	ctx := context.Background()
	accounts := store.NewMemory()
	srv, clock := newTestServer(t, WithAccounts(accounts))
	c := newAPIClient(t, srv)

	c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 0, "name": "Ana"}, nil)
	state := c.playRound(100)

	acct, err := accounts.GetAccount(ctx, c.sessionID())
	require.NoError(t, err)
	assert.Equal(t, "Ana", acct.Name)
	assert.Equal(t, state.Seats[0].Balance, acct.Balance)

	// The session expires but the cookie survives; the next start restores
	// the stored balance onto a fresh table.
	ttl, _ := srv.cfg.SessionTTL()
	clock.Advance(ttl + time.Second).MustWait(ctx)
	srv.reap()
	require.Zero(t, srv.sessions.Len())

	var restored stateView
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 0}, &restored))
	assert.Equal(t, 1, restored.Round)
	assert.Equal(t, acct.Balance, restored.Seats[0].Balance)
	assert.Equal(t, 1, srv.sessions.Len())
}

func TestRefill(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)
	c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 0}, nil)

	var state stateView
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/game/refill", nil, &state))
	assert.Equal(t, game.DefaultConfig().StartingBalance, state.Seats[0].Balance)
}

func TestProbabilityAndQValues(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)

	var idle map[string]float64
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/game/probability", nil, &idle))
	assert.Zero(t, idle["hit_win_rate"])
	assert.Zero(t, idle["stand_win_rate"])

	c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 0}, nil)
	var state stateView
	c.do(http.MethodPost, "/api/game/bet", map[string]int{"amount": 10}, &state)
	if state.Phase != "IN_PROGRESS" {
		t.Skip("round settled on the deal")
	}

	var prob map[string]any
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/game/probability", nil, &prob))
	assert.Contains(t, []any{"HIT", "STAND"}, prob["recommendation"])
	assert.NotEmpty(t, prob["reason"])

	var q map[string]any
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/game/qvalues", nil, &q))
	assert.Contains(t, []any{"Hit", "Stand"}, q["optimal_action"])
	assert.Regexp(t, `^\(\d+, \d+, -?\d+\)$`, q["state"])
}

func TestStrategyEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)

	var heatmap struct {
		Heatmap [][]int `json:"heatmap"`
		Rows    []int   `json:"rows"`
		Cols    []int   `json:"cols"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/strategy/heatmap", nil, &heatmap))
	assert.Len(t, heatmap.Heatmap, 18)
	assert.Len(t, heatmap.Heatmap[0], 10)
	assert.Equal(t, 4, heatmap.Rows[0])
	assert.Equal(t, 11, heatmap.Cols[len(heatmap.Cols)-1])

	var details map[string]any
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/strategy/details?player_sum=16&dealer_card=10", nil, &details))
	assert.EqualValues(t, 16, details["player_sum"])

	var bad ErrorData
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/strategy/details?player_sum=lots", nil, &bad))
	assert.Contains(t, bad.Message, "player_sum")

	var cmp struct {
		Total int `json:"total"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/strategy/compare", nil, &cmp))
	assert.Equal(t, 180, cmp.Total)
}

func TestLeaderboard(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)

	var entries []store.Entry
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/leaderboard", nil, &entries))
	assert.Empty(t, entries)

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/leaderboard", map[string]string{"name": "Ana"}, &result))
	assert.False(t, result.Success)
	assert.Equal(t, "No player data", result.Message)

	c.do(http.MethodPost, "/api/game/start", map[string]any{"num_ai": 0}, nil)
	c.playRound(10)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/leaderboard", map[string]string{"name": "Ana"}, &result))
	assert.True(t, result.Success)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/leaderboard", nil, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana", entries[0].Name)
	assert.Equal(t, 1, entries[0].RoundsPlayed)
}

func TestInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newAPIClient(t, srv)

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/game/start", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
