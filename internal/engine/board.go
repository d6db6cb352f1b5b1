package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned for boards that alternating play cannot reach.
var ErrInvalidState = errors.New("invalid board state")

// Cells is the number of cells on the grid.
const Cells = 9

type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

// Opponent returns the other player's mark. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	}
	return Empty
}

func (m Mark) Valid() bool { return m == X || m == O }

// Board is row-major: index i is row i/3, column i%3.
type Board [Cells]Mark

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// HasWinner reports whether m holds any full row, column or diagonal.
func HasWinner(b Board, m Mark) bool {
	if m == Empty {
		return false
	}
	for _, l := range lines {
		if b[l[0]] == m && b[l[1]] == m && b[l[2]] == m {
			return true
		}
	}
	return false
}

func IsFull(b Board) bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// IsTerminal reports whether either side has won or no cell is left.
func IsTerminal(b Board) bool {
	return HasWinner(b, X) || HasWinner(b, O) || IsFull(b)
}

func (b Board) IsFree(pos int) bool {
	return pos >= 0 && pos < Cells && b[pos] == Empty
}

// EmptyCells lists the free indices in ascending order.
func (b Board) EmptyCells() []int {
	free := make([]int, 0, Cells)
	for i, c := range b {
		if c == Empty {
			free = append(free, i)
		}
	}
	return free
}

func (b Board) Count(m Mark) int {
	n := 0
	for _, c := range b {
		if c == m {
			n++
		}
	}
	return n
}

// Strings converts the board to its wire form ("", "X", "O").
func (b Board) Strings() [Cells]string {
	var out [Cells]string
	for i, c := range b {
		out[i] = string(c)
	}
	return out
}

// ParseBoard is the inverse of Strings. Lower-case marks are accepted.
func ParseBoard(cells [Cells]string) (Board, error) {
	var b Board
	for i, c := range cells {
		switch c {
		case "", " ", "-", "_":
			b[i] = Empty
		case "X", "x":
			b[i] = X
		case "O", "o":
			b[i] = O
		default:
			return Board{}, fmt.Errorf("cell %d: unknown mark %q: %w", i, c, ErrInvalidState)
		}
	}
	return b, nil
}

// Validate checks that b can be reached by alternating play with X moving
// first. It does not check whose turn it is.
func Validate(b Board) error {
	x, o := b.Count(X), b.Count(O)
	if d := x - o; d != 0 && d != 1 {
		return fmt.Errorf("%w: %d X against %d O", ErrInvalidState, x, o)
	}
	xWon, oWon := HasWinner(b, X), HasWinner(b, O)
	switch {
	case xWon && oWon:
		return fmt.Errorf("%w: both sides have a line", ErrInvalidState)
	case xWon && x == o:
		return fmt.Errorf("%w: O moved after X won", ErrInvalidState)
	case oWon && x != o:
		return fmt.Errorf("%w: X moved after O won", ErrInvalidState)
	}
	return nil
}
