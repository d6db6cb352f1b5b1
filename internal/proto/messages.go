package proto

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

// Message types.
const (
	TypeJoin    = "join"
	TypeMove    = "move"
	TypeRestart = "restart"
	TypeLeave   = "leave"
	TypePing    = "ping"

	TypeAssigned = "assigned"
	TypeStart    = "start"
	TypeState    = "state"
	TypeResult   = "result"
	TypeError    = "error"
	TypePong     = "pong"
)

// Error codes.
const (
	CodeBadMessage   = "bad_message"
	CodeNotYourTurn  = "not_your_turn"
	CodeInvalidPos   = "invalid_position"
	CodeCellTaken    = "cell_taken"
	CodeOutOfOrder   = "out_of_order"
	CodeTerminal     = "game_over"
	CodeInvalidState = "invalid_state"
	CodeNoMoves      = "no_moves"
	CodeInternal     = "internal"
)

// ---- Client -> Server ----
type ClientMsg struct {
	Type      string         `json:"type"`                // "join" | "move" | "restart" | "leave" | "ping"
	Position  *int           `json:"position,omitempty"`  // for "move"
	MsgID     string         `json:"msgId,omitempty"`     // idempotency
	ClientSeq int            `json:"clientSeq,omitempty"` // ordering
	Contents  map[string]any `json:"contents,omitempty"`  // type specific payload
}

// JoinRequest is the contents of "join" and "restart" against the computer.
type JoinRequest struct {
	// First is "human" or "computer".
	First string `mapstructure:"first"`
}

func (j JoinRequest) HumanFirst() bool { return j.First != "computer" }

// DecodeContents decodes a free-form contents object into out. Scalars are
// converted where it makes sense ("1" into an int, 1 into "1").
func DecodeContents(contents map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(contents); err != nil {
		return fmt.Errorf("decode contents: %w", err)
	}
	return nil
}

// ---- Server -> Client ----
type Assigned struct {
	Type     string      `json:"type"` // "assigned"
	You      engine.Mark `json:"you"`
	RoomID   string      `json:"room,omitempty"`
	PlayerID string      `json:"player,omitempty"` // reconnect with ?player=
}

type Start struct {
	Type     string    `json:"type"` // "start"
	Board    [9]string `json:"board"`
	YourTurn bool      `json:"your_turn"`
}

type State struct {
	Type      string      `json:"type"` // "state"
	Board     [9]string   `json:"board"`
	NextTurn  engine.Mark `json:"next_turn"`
	LastMove  *MoveInfo   `json:"last_move,omitempty"`
	ServerSeq int         `json:"serverSeq"`
	Status    string      `json:"status"`
}

type MoveInfo struct {
	By  engine.Mark `json:"by"`
	Pos int         `json:"pos"`
}

type Result struct {
	Type   string      `json:"type"` // "result"
	Status string      `json:"status"`
	Winner engine.Mark `json:"winner,omitempty"`
}

type Error struct {
	Type   string `json:"type"` // "error"
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

type Pong struct {
	Type string `json:"type"` // "pong"
}

func NewStart(s engine.State, you engine.Mark) Start {
	return Start{Type: TypeStart, Board: s.Board.Strings(), YourTurn: s.NextTurn == you && !s.Terminal()}
}

func NewState(s engine.State) State {
	out := State{
		Type:      TypeState,
		Board:     s.Board.Strings(),
		NextTurn:  s.NextTurn,
		ServerSeq: s.ServerSeq,
		Status:    s.Status.String(),
	}
	if s.LastMove != nil {
		out.LastMove = &MoveInfo{By: s.LastMove.By, Pos: s.LastMove.Pos}
	}
	return out
}

func NewResult(o engine.Outcome) Result {
	return Result{Type: TypeResult, Status: o.String(), Winner: o.Winner()}
}

func NewError(code string, err error) Error {
	e := Error{Type: TypeError, Code: code}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}
