package proto

import (
	"errors"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/search"
)

// MoveRequest asks for the best move for Mark on Board.
type MoveRequest struct {
	Board [9]string `json:"board"`
	Mark  string    `json:"mark"`
}

type MoveResponse struct {
	Position int   `json:"position"`
	Row      int   `json:"row"`
	Col      int   `json:"col"`
	Score    int   `json:"score"`
	Nodes    int64 `json:"nodes"`
}

type OutcomeRequest struct {
	Board [9]string `json:"board"`
}

type OutcomeResponse struct {
	Status   string      `json:"status"`
	Terminal bool        `json:"terminal"`
	Winner   engine.Mark `json:"winner,omitempty"`
}

// ErrorCode maps engine and search errors to wire codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, engine.ErrInvalidPosition):
		return CodeInvalidPos
	case errors.Is(err, engine.ErrCellTaken):
		return CodeCellTaken
	case errors.Is(err, engine.ErrOutOfOrder):
		return CodeOutOfOrder
	case errors.Is(err, engine.ErrTerminal):
		return CodeTerminal
	case errors.Is(err, engine.ErrInvalidState), errors.Is(err, search.ErrInvalidMark):
		return CodeInvalidState
	case errors.Is(err, search.ErrNoMoves):
		return CodeNoMoves
	}
	return CodeInternal
}
