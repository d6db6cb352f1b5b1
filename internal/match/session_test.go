package match_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/match"
	"github.com/kushgupta-hiver/tttengine/internal/search"
)

func newSession(humanFirst bool) *match.Session {
	return match.NewSession("s1", engine.NewEngine(), search.NewSearcher(search.Options{}), match.SessionOptions{HumanFirst: humanFirst})
}

func TestSession_HumanFirst(t *testing.T) {
	s := newSession(true)
	if s.Human() != engine.X || s.Computer() != engine.O {
		t.Fatalf("human moving first should play X, got human=%s computer=%s", s.Human(), s.Computer())
	}

	turn, err := s.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(turn.Moves) != 0 {
		t.Fatalf("computer should wait for the human, got %+v", turn.Moves)
	}

	turn, err = s.Play(4)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(turn.Moves) != 2 {
		t.Fatalf("expected human move and computer reply, got %+v", turn.Moves)
	}
	if turn.Moves[0] != (engine.MoveInfo{By: engine.X, Pos: 4}) || turn.Moves[1].By != engine.O {
		t.Fatalf("unexpected moves %+v", turn.Moves)
	}
	// Centre opening: every corner holds, the lowest one is 0.
	if turn.Moves[1].Pos != 0 {
		t.Fatalf("expected computer to answer in corner 0, got %d", turn.Moves[1].Pos)
	}
	if turn.State.NextTurn != engine.X || turn.State.ServerSeq != 2 {
		t.Fatalf("unexpected state %+v", turn.State)
	}
}

func TestSession_ComputerFirstOpens(t *testing.T) {
	s := newSession(false)
	if s.Computer() != engine.X {
		t.Fatalf("computer moving first should play X")
	}
	turn, err := s.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(turn.Moves) != 1 || turn.Moves[0].By != engine.X {
		t.Fatalf("expected computer opening, got %+v", turn.Moves)
	}

	again, err := s.Start()
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(again.Moves) != 0 || again.State.ServerSeq != 1 {
		t.Fatalf("start should be a no-op once the computer has moved, got %+v", again)
	}
}

func TestSession_RejectsBadMoves(t *testing.T) {
	s := newSession(true)
	if _, err := s.Play(4); err != nil {
		t.Fatalf("play: %v", err)
	}
	taken := s.State().LastMove.Pos
	if _, err := s.Play(taken); !errors.Is(err, engine.ErrCellTaken) {
		t.Fatalf("expected ErrCellTaken, got %v", err)
	}
	if _, err := s.Play(9); !errors.Is(err, engine.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestSession_ComputerNeverLoses(t *testing.T) {
	// Human plays the lowest free cell every turn; the computer must not lose.
	for _, humanFirst := range []bool{true, false} {
		s := newSession(humanFirst)
		turn, err := s.Start()
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for !turn.State.Terminal() {
			free := turn.State.Board.EmptyCells()
			turn, err = s.Play(free[0])
			if err != nil {
				t.Fatalf("play %d: %v", free[0], err)
			}
		}
		if turn.State.Status == engine.WinFor(s.Human()) {
			t.Fatalf("computer lost: %+v", turn.State)
		}
		if _, err := s.Play(0); !errors.Is(err, engine.ErrTerminal) {
			t.Fatalf("expected ErrTerminal after game over, got %v", err)
		}
	}
}

func TestSession_Restart(t *testing.T) {
	s := newSession(true)
	if _, err := s.Play(0); err != nil {
		t.Fatalf("play: %v", err)
	}
	turn, err := s.Restart(false)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.Games() != 2 {
		t.Fatalf("expected 2 games, got %d", s.Games())
	}
	if s.Human() != engine.O {
		t.Fatalf("human should play O after choosing to go second")
	}
	if turn.State.ServerSeq != 1 || turn.State.Board.Count(engine.X) != 1 {
		t.Fatalf("expected a fresh board with the computer's opening, got %+v", turn.State)
	}
}

func TestSession_RestartIsAtomic(t *testing.T) {
	s := newSession(false)
	if _, err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The human always plays O here, so a Play racing a Restart must never
	// see the empty board that is still waiting for the computer's opening.
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 30; i++ {
				if (g+i)%2 == 0 {
					turn, err := s.Restart(false)
					if err != nil {
						errs <- err
						return
					}
					if len(turn.Moves) != 1 || turn.State.ServerSeq != 1 {
						errs <- fmt.Errorf("restart did not include the opening: %+v", turn)
						return
					}
					continue
				}
				if _, err := s.Play((g + i) % engine.Cells); errors.Is(err, engine.ErrNotYourTurn) {
					errs <- err
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent restart: %v", err)
	}
}
