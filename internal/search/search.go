// Package search picks the game-theoretically optimal move for one side of a
// tic-tac-toe position by exhaustive minimax with alpha-beta pruning.
//
// Scores are always taken from the point of view of the mark being searched
// for: +1 is a forced win, -1 a forced loss, 0 a draw. Wins are not
// discounted by depth, so a slow win ties with a fast one and the
// lowest-indexed cell decides.
package search

import (
	"math"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

const (
	Loss = -1
	Draw = 0
	Win  = 1
)

// maxDepth bounds the recursion; on a 3x3 grid the board fills first.
const maxDepth = engine.Cells

const (
	minusInf = math.MinInt
	plusInf  = math.MaxInt
)

type stats struct {
	nodes int64
}

// Evaluate scores b for me with the side to move given by maximizing: true
// means me moves next. The board is not modified.
func Evaluate(b engine.Board, me engine.Mark, maximizing bool) int {
	var st stats
	return evaluate(b, me, 0, minusInf, plusInf, maximizing, &st)
}

// Minimax is Evaluate without pruning. It visits the full game tree and
// exists as a reference for Evaluate.
func Minimax(b engine.Board, me engine.Mark, maximizing bool) int {
	var st stats
	return minimax(b, me, 0, maximizing, &st)
}

// evaluate receives b by value; each ply places its mark on a fresh copy so
// no undo is needed and the caller's board stays untouched.
func evaluate(b engine.Board, me engine.Mark, depth, alpha, beta int, maximizing bool, st *stats) int {
	st.nodes++
	if engine.HasWinner(b, me) {
		return Win
	}
	opp := me.Opponent()
	if engine.HasWinner(b, opp) {
		return Loss
	}
	if engine.IsFull(b) || depth >= maxDepth {
		return Draw
	}

	if maximizing {
		best := minusInf
		for i := range b {
			if b[i] != engine.Empty {
				continue
			}
			next := b
			next[i] = me
			best = max(best, evaluate(next, me, depth+1, alpha, beta, false, st))
			alpha = max(alpha, best)
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := plusInf
	for i := range b {
		if b[i] != engine.Empty {
			continue
		}
		next := b
		next[i] = opp
		best = min(best, evaluate(next, me, depth+1, alpha, beta, true, st))
		beta = min(beta, best)
		if beta <= alpha {
			break
		}
	}
	return best
}

func minimax(b engine.Board, me engine.Mark, depth int, maximizing bool, st *stats) int {
	st.nodes++
	if engine.HasWinner(b, me) {
		return Win
	}
	opp := me.Opponent()
	if engine.HasWinner(b, opp) {
		return Loss
	}
	if engine.IsFull(b) || depth >= maxDepth {
		return Draw
	}

	mark, best := opp, plusInf
	if maximizing {
		mark, best = me, minusInf
	}
	for i := range b {
		if b[i] != engine.Empty {
			continue
		}
		next := b
		next[i] = mark
		score := minimax(next, me, depth+1, !maximizing, st)
		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}
	return best
}
