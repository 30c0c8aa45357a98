package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dropfour/dropfour/game/engine"
)

// MessageType tags every wire message.
type MessageType string

const (
	// Inbound.
	TypeJoin MessageType = "join"
	TypeMove MessageType = "move"

	// Outbound.
	TypeWaiting      MessageType = "waiting"
	TypeGameStart    MessageType = "gameStart"
	TypeMoveMade     MessageType = "moveMade"
	TypeGameOver     MessageType = "gameOver"
	TypeReconnected  MessageType = "reconnected"
	TypeError        MessageType = "error"
	TypeDisconnected MessageType = "disconnected"
)

// ErrMalformedMessage is returned for payloads that do not decode into a
// known inbound variant.
var ErrMalformedMessage = errors.New("malformed message")

// JoinPayload carries the identity announcing itself.
type JoinPayload struct {
	Username string `json:"username"`
}

// MovePayload carries one column drop for a session.
type MovePayload struct {
	GameID string `json:"gameId"`
	Column int    `json:"column"`
}

// Inbound is the decoded form of a client message. Exactly one payload
// pointer is set, matching Type.
type Inbound struct {
	Type MessageType
	Join *JoinPayload
	Move *MovePayload
}

// DecodeInbound parses raw client bytes into the inbound union. Unknown
// types, invalid JSON, and missing required fields all yield
// ErrMalformedMessage.
func DecodeInbound(data []byte) (*Inbound, error) {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch probe.Type {
	case TypeJoin:
		var p JoinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if p.Username == "" {
			return nil, fmt.Errorf("%w: join requires a username", ErrMalformedMessage)
		}
		return &Inbound{Type: TypeJoin, Join: &p}, nil

	case TypeMove:
		var p MovePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if p.GameID == "" {
			return nil, fmt.Errorf("%w: move requires a gameId", ErrMalformedMessage)
		}
		return &Inbound{Type: TypeMove, Move: &p}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, probe.Type)
	}
}

// Waiting tells a queued player that matchmaking is in progress.
type Waiting struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewWaiting(message string) Waiting {
	return Waiting{Type: TypeWaiting, Message: message}
}

// GameStart announces a new match to one participant.
type GameStart struct {
	Type        MessageType  `json:"type"`
	GameID      string       `json:"gameId"`
	Opponent    string       `json:"opponent"`
	YourSide    engine.Cell  `json:"yourSide"`
	Board       engine.Board `json:"board"`
	CurrentSide engine.Cell  `json:"currentSide"`
}

func NewGameStart(gameID, opponent string, yourSide engine.Cell, board engine.Board, currentSide engine.Cell) GameStart {
	return GameStart{
		Type:        TypeGameStart,
		GameID:      gameID,
		Opponent:    opponent,
		YourSide:    yourSide,
		Board:       board,
		CurrentSide: currentSide,
	}
}

// MoveMade broadcasts a successful placement to both participants.
type MoveMade struct {
	Type        MessageType  `json:"type"`
	Column      int          `json:"column"`
	Row         int          `json:"row"`
	Side        engine.Cell  `json:"side"`
	Board       engine.Board `json:"board"`
	CurrentSide engine.Cell  `json:"currentSide"`
}

func NewMoveMade(column, row int, side engine.Cell, board engine.Board, currentSide engine.Cell) MoveMade {
	return MoveMade{
		Type:        TypeMoveMade,
		Column:      column,
		Row:         row,
		Side:        side,
		Board:       board,
		CurrentSide: currentSide,
	}
}

// GameOver carries the personalized outcome for one identity.
type GameOver struct {
	Type     MessageType  `json:"type"`
	Winner   string       `json:"winner"`
	Board    engine.Board `json:"board"`
	Message  string       `json:"message"`
	YourSide engine.Cell  `json:"yourSide"`
}

func NewGameOver(winner string, board engine.Board, message string, yourSide engine.Cell) GameOver {
	return GameOver{
		Type:     TypeGameOver,
		Winner:   winner,
		Board:    board,
		Message:  message,
		YourSide: yourSide,
	}
}

// Reconnected restores a returning player's view of their session.
type Reconnected struct {
	Type        MessageType  `json:"type"`
	GameID      string       `json:"gameId"`
	Board       engine.Board `json:"board"`
	CurrentSide engine.Cell  `json:"currentSide"`
	YourSide    engine.Cell  `json:"yourSide"`
}

func NewReconnected(gameID string, board engine.Board, currentSide, yourSide engine.Cell) Reconnected {
	return Reconnected{
		Type:        TypeReconnected,
		GameID:      gameID,
		Board:       board,
		CurrentSide: currentSide,
		YourSide:    yourSide,
	}
}

// ErrorMessage relays a recoverable failure to the offending caller only.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// Disconnected notifies remaining connections that the peer dropped.
type Disconnected struct {
	Type MessageType `json:"type"`
}

func NewDisconnected() Disconnected {
	return Disconnected{Type: TypeDisconnected}
}
