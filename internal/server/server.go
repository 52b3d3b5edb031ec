// Package server exposes blackjack tables over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackbots/internal/bot"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/simulator"
	"github.com/lox/blackjackbots/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server owns the shared agent, sessions and rooms
type Server struct {
	cfg       Config
	logger    zerolog.Logger
	engineLog *log.Logger
	clock     quartz.Clock

	agent     *qlearning.Agent
	estimator *simulator.Estimator
	advisor   *bot.Advisor
	accounts  store.Store

	sessions *SessionManager
	rooms    *RoomManager
	upgrader websocket.Upgrader
	router   chi.Router

	connMu   sync.Mutex
	conns    map[*Connection]struct{}
	training atomic.Bool
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock used for idle tracking and reaping
func WithClock(c quartz.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithAccounts sets the account and leaderboard store
func WithAccounts(st store.Store) Option {
	return func(s *Server) { s.accounts = st }
}

// WithEngineLogger sets the logger handed to table engines
func WithEngineLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.engineLog = l
		}
	}
}

// New creates a server around a shared agent and estimator.
func New(cfg Config, agent *qlearning.Agent, estimator *simulator.Estimator, logger zerolog.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ttl, _ := cfg.SessionTTL()

	s := &Server{
		cfg:       cfg,
		logger:    logger.With().Str("component", "server").Logger(),
		engineLog: log.NewWithOptions(io.Discard, log.Options{}),
		clock:     quartz.NewReal(),
		agent:     agent,
		estimator: estimator,
		accounts:  store.NewMemory(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.advisor = bot.NewAdvisor(agent, estimator, bot.WithLogger(s.engineLog))
	s.sessions = NewSessionManager(s.clock, ttl, s.newEngine)
	s.rooms = NewRoomManager(s.clock, ttl, cfg.Server.MaxRooms, s.newEngine, logger)
	s.router = s.routes()
	return s, nil
}

func (s *Server) newEngine() *game.Engine {
	return game.NewEngine(s.cfg.GameConfig(), game.WithAgent(s.advisor), game.WithLogger(s.engineLog))
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/game", func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/start", s.handleStart)
			r.Post("/bet", s.handleBet)
			r.Post("/confirm", s.handleConfirm)
			r.Post("/hit", s.handleAction(game.Hit))
			r.Post("/stand", s.handleAction(game.Stand))
			r.Post("/double", s.handleAction(game.DoubleDown))
			r.Post("/split", s.handleAction(game.Split))
			r.Post("/insurance", s.handleAction(game.Insurance))
			r.Post("/withdraw", s.handleAction(game.Withdraw))
			r.Post("/refill", s.handleRefill)
			r.Get("/state", s.handleState)
			r.Get("/probability", s.handleProbability)
			r.Get("/qvalues", s.handleQValues)
		})
		r.Route("/strategy", func(r chi.Router) {
			r.Get("/heatmap", s.handleHeatmap)
			r.Get("/details", s.handleDetails)
			r.Get("/compare", s.handleCompare)
		})
		r.Get("/leaderboard", s.handleLeaderboard)
		r.With(s.withSession).Post("/leaderboard", s.handleSubmitLeaderboard)
	})
	return r
}

// Run serves until ctx is cancelled, reaping idle sessions and rooms on
// the configured interval.
func (s *Server) Run(ctx context.Context) error {
	interval, _ := s.cfg.ReapInterval()
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting blackjack server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.closeConnections()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		w := s.clock.TickerFunc(gctx, interval, func() error {
			s.reap()
			return nil
		}, "reaper")
		if err := w.Wait(); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) reap() {
	sessions := s.sessions.Reap()
	rooms := s.rooms.Reap()
	if sessions > 0 || rooms > 0 {
		s.logger.Debug().Int("sessions", sessions).Int("rooms", rooms).Msg("Reaped idle tables")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"rooms":    s.rooms.Len(),
		"states":   s.agent.Table().Size(),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}

func (s *Server) trackConnection(c *Connection) {
	s.connMu.Lock()
	s.conns[c] = struct{}{}
	n := len(s.conns)
	s.connMu.Unlock()
	s.logger.Info().Str("conn", c.ID()).Int("total", n).Msg("Client connected")
}

func (s *Server) untrackConnection(c *Connection) {
	s.connMu.Lock()
	delete(s.conns, c)
	n := len(s.conns)
	s.connMu.Unlock()
	s.logger.Info().Str("conn", c.ID()).Int("total", n).Msg("Client disconnected")
}

func (s *Server) closeConnections() {
	s.connMu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connMu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
