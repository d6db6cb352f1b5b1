package engine_test

import (
	"errors"
	"testing"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

func TestHasWinner_AllLines(t *testing.T) {
	lines := [][3]int{
		{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
		{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
		{0, 4, 8}, {2, 4, 6},
	}
	for _, l := range lines {
		for _, m := range []engine.Mark{x, o} {
			var b engine.Board
			for _, i := range l {
				b[i] = m
			}
			if !engine.HasWinner(b, m) {
				t.Fatalf("line %v for %s not detected", l, m)
			}
			if engine.HasWinner(b, m.Opponent()) {
				t.Fatalf("line %v for %s credited to opponent", l, m)
			}
			if !engine.IsTerminal(b) {
				t.Fatalf("board with line %v should be terminal", l)
			}
		}
	}
}

func TestHasWinner_NoLine(t *testing.T) {
	b := engine.Board{
		x, o, x,
		x, o, o,
		o, x, x,
	}
	if engine.HasWinner(b, x) || engine.HasWinner(b, o) {
		t.Fatalf("no line expected on %v", b)
	}
	if engine.HasWinner(engine.Board{}, engine.Empty) {
		t.Fatalf("empty cells never form a line")
	}
	if !engine.IsFull(b) || !engine.IsTerminal(b) {
		t.Fatalf("full board should be terminal")
	}
}

func TestIsTerminal_EmptyAndPartial(t *testing.T) {
	if engine.IsTerminal(engine.Board{}) {
		t.Fatalf("empty board is not terminal")
	}
	b := engine.Board{x, o, e, e, x, e, e, e, e}
	if engine.IsFull(b) || engine.IsTerminal(b) {
		t.Fatalf("partial board without line is not terminal")
	}
}

func TestBoard_CellsAndCounts(t *testing.T) {
	b := engine.Board{x, e, o, e, x, e, e, e, o}
	got := b.EmptyCells()
	want := []int{1, 3, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if b.Count(x) != 2 || b.Count(o) != 2 || b.Count(e) != 5 {
		t.Fatalf("unexpected counts on %v", b)
	}
	if !b.IsFree(1) || b.IsFree(0) || b.IsFree(-1) || b.IsFree(9) {
		t.Fatalf("IsFree mismatch")
	}
}

func TestParseBoard_RoundTripAndReject(t *testing.T) {
	b := engine.Board{x, e, o, e, x, e, e, e, o}
	back, err := engine.ParseBoard(b.Strings())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back != b {
		t.Fatalf("expected %v, got %v", b, back)
	}

	_, err = engine.ParseBoard([9]string{"X", "Z"})
	if !errors.Is(err, engine.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		board engine.Board
		ok    bool
	}{
		{"empty", engine.Board{}, true},
		{"x opened", engine.Board{x}, true},
		{"o opened", engine.Board{o}, false},
		{"x one ahead", engine.Board{x, x, e, o}, true},
		{"x three ahead", engine.Board{x, x, x, e, e, e, e, e, e}, false},
		{"both won", engine.Board{x, x, x, o, o, o, x, e, e}, false},
		{"o moved after x won", engine.Board{x, x, x, o, o, e, o, e, e}, false},
		{"x won fairly", engine.Board{x, x, x, o, o, e, e, e, e}, true},
		{"o won fairly", engine.Board{o, o, o, x, x, e, x, e, e}, true},
		{"x moved after o won", engine.Board{o, o, o, x, x, x, x, e, e}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Validate(tt.board)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, engine.ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState, got %v", err)
			}
		})
	}
}
