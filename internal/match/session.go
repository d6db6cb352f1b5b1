package match

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/search"
)

// Turn is what a single call on a Session changed: the moves applied, in
// order, and the resulting state.
type Turn struct {
	Moves []engine.MoveInfo
	State engine.State
}

type SessionOptions struct {
	HumanFirst bool
	Logger     *zap.Logger
}

// Session is one human playing the computer. The first mover plays X; the
// computer's replies come from the searcher, which holds no game state.
type Session struct {
	id  string
	eng engine.Engine
	ai  *search.Searcher
	log *zap.Logger

	mu       sync.Mutex
	human    engine.Mark
	computer engine.Mark
	state    engine.State
	games    int
}

func NewSession(id string, eng engine.Engine, ai *search.Searcher, opts SessionOptions) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		id:  id,
		eng: eng,
		ai:  ai,
		log: log.With(zap.String("session", id)),
	}
	s.resetLocked(opts.HumanFirst)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Human() engine.Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.human
}

func (s *Session) Computer() engine.Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computer
}

func (s *Session) State() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Games counts the games started in this session, the current one included.
func (s *Session) Games() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games
}

// Start lets the computer open when it plays X. It does nothing otherwise
// and is safe to call more than once.
func (s *Session) Start() (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Session) startLocked() (Turn, error) {
	t := Turn{State: s.state}
	if s.state.Terminal() || s.state.NextTurn != s.computer {
		return t, nil
	}
	err := s.computerMoveLocked(&t)
	return t, err
}

// Play applies the human's move at pos and, unless that ended the game, the
// computer's reply.
func (s *Session) Play(pos int) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Turn{State: s.state}
	if err := s.applyLocked(&t, s.human, pos); err != nil {
		return t, err
	}
	if s.state.Terminal() {
		return t, nil
	}
	err := s.computerMoveLocked(&t)
	return t, err
}

// Restart clears the board and swaps in the new order of play. The
// computer's opening move, if any, is part of the returned turn.
func (s *Session) Restart(humanFirst bool) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(humanFirst)
	return s.startLocked()
}

func (s *Session) resetLocked(humanFirst bool) {
	s.human, s.computer = engine.O, engine.X
	if humanFirst {
		s.human, s.computer = engine.X, engine.O
	}
	s.state = s.eng.NewGame()
	s.games++
	s.log.Info("game started",
		zap.Int("game", s.games), zap.String("human", string(s.human)), zap.String("computer", string(s.computer)))
}

func (s *Session) computerMoveLocked(t *Turn) error {
	res, err := s.ai.Analyze(s.state.Board, s.computer)
	if err != nil {
		return err
	}
	s.log.Debug("computer move",
		zap.Int("position", res.Position), zap.Int("score", res.Score), zap.Int64("nodes", res.Nodes))
	return s.applyLocked(t, s.computer, res.Position)
}

func (s *Session) applyLocked(t *Turn, by engine.Mark, pos int) error {
	ns, err := s.eng.ApplyMove(s.state, engine.Move{
		PlayerID:  string(by),
		Position:  pos,
		ClientSeq: s.state.ServerSeq + 1,
		Mark:      by,
	})
	if err != nil {
		return err
	}
	s.state = ns
	t.Moves = append(t.Moves, engine.MoveInfo{By: by, Pos: pos})
	t.State = ns
	if ns.Terminal() {
		s.log.Info("game over", zap.Int("game", s.games), zap.Stringer("status", ns.Status))
	}
	return nil
}
