/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"encoding/json"
	"fmt"
)

// Inbound message types
const (
	MsgPlayerJoined  = "player_joined" // roster changed
	MsgPlayerLeft    = "player_left"
	MsgGameStarted   = "game_started"
	MsgTaskAssigned  = "task_assigned"
	MsgStepSubmitted = "step_submitted" // a peer handed in a step
	MsgRevealAll     = "reveal_all"
	MsgChat          = "chat"
	MsgChainRated    = "chain_rated"
	MsgRoomReset     = "room_reset"
	MsgError         = "error"
)

// Outbound message types
const (
	MsgJoin          = "join"
	MsgStartGame     = "start_game"
	MsgRestart       = "restart"
	MsgSubmitWord    = "submit_word"
	MsgSubmitDrawing = "submit_drawing"
	MsgRateChain     = "rate_chain"
)

// Step is a single contribution within a chain.
type Step struct {
	Index           int      `json:"index"`
	FromPlayerIndex int      `json:"fromPlayerIndex"`
	ToPlayerIndex   int      `json:"toPlayerIndex"`
	Type            StepKind `json:"type"`
	Word            string   `json:"word,omitempty"`
	DrawingID       string   `json:"drawingId,omitempty"` // self-contained data URL
}

// Content is the word for word steps and the encoded image for drawing steps.
func (s Step) Content() string {
	if s.Type == KindDrawing {
		return s.DrawingID
	}
	return s.Word
}

// Chain is one play-through's ordered sequence of steps.
type Chain struct {
	ChainID    string `json:"chainId"`
	OwnerIndex int    `json:"ownerIndex"`
	Steps      []Step `json:"steps"`
}

// ServerMessage is every record the server pushes. Only the fields
// relevant to Type are populated.
type ServerMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`

	Players  []Player `json:"players,omitempty"`  // player_joined
	Name     string   `json:"name,omitempty"`     // player_left
	PlayerID string   `json:"playerId,omitempty"` // player_left

	PlayerCount int `json:"playerCount,omitempty"` // game_started
	MaxSteps    int `json:"maxSteps,omitempty"`    // game_started

	ChainID         string   `json:"chainId,omitempty"`         // task_assigned / step_submitted / chain_rated
	StepIndex       int      `json:"stepIndex,omitempty"`       // task_assigned / step_submitted
	TaskType        StepKind `json:"taskType,omitempty"`        // task_assigned
	PrevStepType    StepKind `json:"prevStepType,omitempty"`    // task_assigned
	PrevWord        string   `json:"prevWord,omitempty"`        // task_assigned
	PrevDrawingID   string   `json:"prevDrawingId,omitempty"`   // task_assigned
	FromPlayerIndex int      `json:"fromPlayerIndex,omitempty"` // task_assigned / step_submitted
	StepType        StepKind `json:"stepType,omitempty"`        // step_submitted

	Chains []Chain `json:"chains,omitempty"` // reveal_all

	PlayerName string `json:"playerName,omitempty"` // chat
	Content    string `json:"content,omitempty"`    // chat
	Timestamp  int64  `json:"timestamp,omitempty"`  // chat

	OkCount      int  `json:"okCount,omitempty"`      // chain_rated
	BadCount     int  `json:"badCount,omitempty"`     // chain_rated
	TotalPlayers int  `json:"totalPlayers,omitempty"` // chain_rated
	Finished     bool `json:"finished,omitempty"`     // chain_rated

	Message string `json:"message,omitempty"` // error
}

// DecodeServerMessage parses one inbound text frame. Frames that are not
// a JSON object or carry no type are rejected with ErrMalformedFrame.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if msg.Type == "" {
		return ServerMessage{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return msg, nil
}

// ClientMessage is every record the client sends.
type ClientMessage struct {
	Type      string `json:"type"`                // see Msg* outbound constants
	Name      string `json:"name,omitempty"`      // join
	Content   string `json:"content,omitempty"`   // chat
	ChainID   string `json:"chainId,omitempty"`   // submit_word / submit_drawing / rate_chain
	Word      string `json:"word,omitempty"`      // submit_word
	DrawingID string `json:"drawingId,omitempty"` // submit_drawing
	IsOk      *bool  `json:"isOk,omitempty"`      // rate_chain
}

func joinMessage(name string) ClientMessage {
	return ClientMessage{Type: MsgJoin, Name: name}
}

func chatMessage(content string) ClientMessage {
	return ClientMessage{Type: MsgChat, Content: content}
}

func submitWordMessage(chainID, word string) ClientMessage {
	return ClientMessage{Type: MsgSubmitWord, ChainID: chainID, Word: word}
}

func submitDrawingMessage(chainID, dataURL string) ClientMessage {
	return ClientMessage{Type: MsgSubmitDrawing, ChainID: chainID, DrawingID: dataURL}
}

func rateChainMessage(chainID string, ok bool) ClientMessage {
	return ClientMessage{Type: MsgRateChain, ChainID: chainID, IsOk: &ok}
}
