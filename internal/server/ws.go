package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
)

const (
	defaultTrainEpisodes = 1000
	maxTrainEpisodes     = 100000
	trainProgressEvery   = 100
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	conn := NewConnection(ws, s.dispatch, s.logger)
	s.trackConnection(conn)
	conn.Start()

	go func() {
		<-conn.Done()
		if room, ok := s.rooms.Leave(conn.ID()); ok {
			s.broadcastState(room)
		}
		s.untrackConnection(conn)
	}()
}

// dispatch routes one client message. It runs on the connection's read
// goroutine, so messages from one client are handled in order.
func (s *Server) dispatch(c *Connection, msg *Message) {
	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if !decodeData(c, msg, &data) {
			return
		}
		seats := s.cfg.Table.ComputerSeats
		if data.ComputerSeats != nil {
			seats = *data.ComputerSeats
		}
		room, err := s.rooms.Create(c, data.Username, seats)
		if err != nil {
			c.SendError(err.Error())
			return
		}
		c.Send(MessageTypeRoomCreated, RoomData{RoomID: room.Code, PlayerID: c.ID(), GameState: room.Engine.Snapshot().Public()})

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if !decodeData(c, msg, &data) {
			return
		}
		room, err := s.rooms.Join(c, data.RoomID, data.Username)
		if err != nil {
			c.SendError(err.Error())
			return
		}
		c.Send(MessageTypeRoomJoined, RoomData{RoomID: room.Code, PlayerID: c.ID(), GameState: room.Engine.Snapshot().Public()})
		s.broadcastState(room)

	case MessageTypeLeaveRoom:
		room, ok := s.rooms.Leave(c.ID())
		if !ok {
			c.SendError(clientMessage(ErrNotInRoom))
			return
		}
		c.Send(MessageTypeRoomLeft, map[string]string{"room_id": room.Code})
		s.broadcastState(room)

	case MessageTypeStartRound:
		var data StartRoundData
		if !decodeData(c, msg, &data) {
			return
		}
		room, ok := s.roomFor(c)
		if !ok {
			return
		}
		difficulty, err := game.ParseDifficulty(data.Difficulty)
		if err != nil || data.Difficulty == "" {
			difficulty = s.cfg.Difficulty()
		}
		room.StartRound(difficulty, s.clock.Now())
		s.broadcastState(room)

	case MessageTypePlaceBet:
		var data PlaceBetData
		if !decodeData(c, msg, &data) {
			return
		}
		room, ok := s.roomFor(c)
		if !ok {
			return
		}
		room.PlaceBet(c.ID(), data.Amount, s.clock.Now())
		s.broadcastState(room)

	case MessageTypeConfirmBets:
		room, ok := s.roomFor(c)
		if !ok {
			return
		}
		room.ConfirmBets(s.clock.Now())
		s.broadcastState(room)

	case MessageTypeAction:
		var data ActionData
		if !decodeData(c, msg, &data) {
			return
		}
		action, err := game.ParseAction(data.Action)
		if err != nil {
			c.SendError(err.Error())
			return
		}
		room, ok := s.roomFor(c)
		if !ok {
			return
		}
		if _, err := room.Act(c.ID(), action, s.clock.Now()); err != nil {
			c.SendError(clientMessage(err))
			return
		}
		s.broadcastState(room)

	case MessageTypeTrain:
		var data TrainData
		if !decodeData(c, msg, &data) {
			return
		}
		s.startTraining(c, data.Episodes)

	default:
		c.SendError("unknown message type: " + msg.Type.String())
	}
}

func (s *Server) roomFor(c *Connection) (*Room, bool) {
	room, ok := s.rooms.ForPlayer(c.ID())
	if !ok {
		c.SendError(clientMessage(ErrNotInRoom))
	}
	return room, ok
}

func (s *Server) broadcastState(room *Room) {
	msg, err := NewMessage(MessageTypeGameUpdate, room.Engine.Snapshot().Public())
	if err != nil {
		s.logger.Error().Err(err).Str("room", room.Code).Msg("Failed to encode game update")
		return
	}
	room.broadcast(msg)
}

// startTraining runs a training session for the caller, streaming progress
// until it finishes or the connection closes. One run at a time per server.
func (s *Server) startTraining(c *Connection, episodes int) {
	if episodes <= 0 {
		episodes = defaultTrainEpisodes
	}
	episodes = min(episodes, maxTrainEpisodes)

	if !s.training.CompareAndSwap(false, true) {
		c.SendError("training already running")
		return
	}

	cfg := qlearning.DefaultTrainingConfig()
	cfg.Episodes = episodes
	cfg.ProgressEvery = trainProgressEvery
	cfg.Table = s.cfg.GameConfig()

	trainer, err := qlearning.NewTrainer(s.agent, cfg, qlearning.WithTrainerLogger(s.engineLog), qlearning.WithClock(s.clock))
	if err != nil {
		s.training.Store(false)
		c.SendError(err.Error())
		return
	}

	go func() {
		defer s.training.Store(false)
		final, err := trainer.Run(c.Context(), func(p qlearning.Progress) {
			c.Send(MessageTypeTrainingProgress, p)
		})
		cancelled := errors.Is(err, context.Canceled)
		if err != nil && !cancelled {
			s.logger.Error().Err(err).Msg("Training failed")
		}
		s.logger.Info().Int("episodes", final.Episode).Float64("win_rate", final.WinRate).Bool("cancelled", cancelled).Msg("Training finished")
		c.Send(MessageTypeTrainingComplete, TrainingCompleteData{Progress: final, Cancelled: cancelled})
	}()
}

func decodeData(c *Connection, msg *Message, v any) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.SendError("invalid " + msg.Type.String() + " data")
		return false
	}
	return true
}

// clientMessage maps errors to the text shown to players.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotYourTurn):
		return "Not your turn!"
	case errors.Is(err, ErrNotInRoom):
		return "Not in a multiplayer room"
	default:
		return err.Error()
	}
}
