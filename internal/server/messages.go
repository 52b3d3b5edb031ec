package server

import (
	"encoding/json"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
)

// MessageType names a websocket message
type MessageType string

// Client to server messages
const (
	MessageTypeCreateRoom  MessageType = "create_room"
	MessageTypeJoinRoom    MessageType = "join_room"
	MessageTypeLeaveRoom   MessageType = "leave_room"
	MessageTypeStartRound  MessageType = "start_round"
	MessageTypePlaceBet    MessageType = "place_bet"
	MessageTypeConfirmBets MessageType = "confirm_bets"
	MessageTypeAction      MessageType = "action"
	MessageTypeTrain       MessageType = "train"
)

// Server to client messages
const (
	MessageTypeRoomCreated      MessageType = "room_created"
	MessageTypeRoomJoined       MessageType = "room_joined"
	MessageTypeRoomLeft         MessageType = "room_left"
	MessageTypeGameUpdate       MessageType = "game_update"
	MessageTypeTrainingProgress MessageType = "training_progress"
	MessageTypeTrainingComplete MessageType = "training_complete"
	MessageTypeError            MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for every websocket frame
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data into an envelope
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: messageType, Data: dataBytes}, nil
}

type CreateRoomData struct {
	Username      string `json:"username"`
	ComputerSeats *int   `json:"computer_seats"`
}

type JoinRoomData struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

type StartRoundData struct {
	Difficulty string `json:"difficulty"`
}

type PlaceBetData struct {
	Amount int `json:"amount"`
}

type ActionData struct {
	Action string `json:"action"`
}

type TrainData struct {
	Episodes int `json:"episodes"`
}

type RoomData struct {
	RoomID    string        `json:"room_id"`
	PlayerID  string        `json:"player_id"`
	GameState game.Snapshot `json:"game_state"`
}

type TrainingCompleteData struct {
	qlearning.Progress
	Cancelled bool `json:"cancelled"`
}

type ErrorData struct {
	Message string `json:"message"`
}
