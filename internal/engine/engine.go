package engine

import "errors"

type Outcome int

const (
	InProgress Outcome = iota
	XWins
	OWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case XWins:
		return "X_WINS"
	case OWins:
		return "O_WINS"
	case Draw:
		return "DRAW"
	}
	return "IN_PROGRESS"
}

// Winner returns the winning mark, or Empty for draws and unfinished games.
func (o Outcome) Winner() Mark {
	switch o {
	case XWins:
		return X
	case OWins:
		return O
	}
	return Empty
}

// WinFor is the outcome in which m wins.
func WinFor(m Mark) Outcome {
	switch m {
	case X:
		return XWins
	case O:
		return OWins
	}
	return InProgress
}

var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidPosition = errors.New("invalid position")
	ErrCellTaken       = errors.New("cell already taken")
	ErrOutOfOrder      = errors.New("out of order client seq")
	ErrTerminal        = errors.New("game already finished")
)

type Move struct {
	PlayerID  string
	Position  int
	MsgID     string
	ClientSeq int
	Mark      Mark
}

type MoveInfo struct {
	By  Mark
	Pos int
}

type State struct {
	Board     Board
	NextTurn  Mark
	Status    Outcome
	ServerSeq int
	LastMove  *MoveInfo
}

// Terminal reports whether the game in s is over, by result or forfeit.
func (s State) Terminal() bool { return s.Status != InProgress }

type Engine interface {
	NewGame() State
	ApplyMove(s State, m Move) (State, error)
	Outcome(b Board) Outcome
}

type engine struct{}

// NewEngine returns the standard rules: X opens, marks alternate, three in a
// line wins.
func NewEngine() Engine { return engine{} }

func (engine) NewGame() State {
	return State{NextTurn: X, Status: InProgress}
}

func (e engine) ApplyMove(s State, m Move) (State, error) {
	if s.Status != InProgress {
		return s, ErrTerminal
	}
	if m.Mark != s.NextTurn {
		return s, ErrNotYourTurn
	}
	if m.ClientSeq != s.ServerSeq+1 {
		return s, ErrOutOfOrder
	}
	if m.Position < 0 || m.Position >= Cells {
		return s, ErrInvalidPosition
	}
	if s.Board[m.Position] != Empty {
		return s, ErrCellTaken
	}

	// State holds the board by value, so ns never aliases s.
	ns := s
	ns.Board[m.Position] = m.Mark
	ns.NextTurn = m.Mark.Opponent()
	ns.ServerSeq = s.ServerSeq + 1
	ns.LastMove = &MoveInfo{By: m.Mark, Pos: m.Position}
	ns.Status = e.Outcome(ns.Board)
	return ns, nil
}

func (engine) Outcome(b Board) Outcome {
	switch {
	case HasWinner(b, X):
		return XWins
	case HasWinner(b, O):
		return OWins
	case IsFull(b):
		return Draw
	}
	return InProgress
}
