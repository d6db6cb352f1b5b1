package search

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

var (
	ErrNoMoves     = errors.New("no legal moves")
	ErrInvalidMark = errors.New("mark must be X or O")
)

type Options struct {
	// RandomOpening plays a uniformly random cell on an empty board instead
	// of searching. Every opening draws against perfect defence.
	RandomOpening bool

	// Validate rejects boards unreachable by alternating play.
	Validate bool

	// Parallel scores the root candidates concurrently, one goroutine and
	// one board copy per candidate.
	Parallel bool

	// DisablePruning scores candidates with plain minimax.
	DisablePruning bool

	// Seed for opening and fallback randomness; 0 seeds from the clock.
	Seed uint64

	Logger *zap.Logger
}

type Result struct {
	Position int
	Score    int
	Nodes    int64

	// Opening is set when the random opening shortcut chose the move.
	Opening bool
	// Fallback is set when no candidate scored and a random cell was used.
	Fallback bool
}

// Searcher selects moves. It keeps no game state between calls, so one
// Searcher can serve any number of games concurrently.
type Searcher struct {
	opts Options
	log  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSearcher(opts Options) *Searcher {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Searcher{
		opts: opts,
		log:  log,
		rng:  rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

var defaultSearcher = NewSearcher(Options{})

// SelectMove returns the best cell for me on b using default options.
func SelectMove(b engine.Board, me engine.Mark) (int, error) {
	return defaultSearcher.SelectMove(b, me)
}

func (s *Searcher) SelectMove(b engine.Board, me engine.Mark) (int, error) {
	res, err := s.Analyze(b, me)
	if err != nil {
		return -1, err
	}
	return res.Position, nil
}

// Analyze searches every empty cell of b in ascending order and returns the
// first one with the highest score for me.
func (s *Searcher) Analyze(b engine.Board, me engine.Mark) (Result, error) {
	if !me.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMark, me)
	}
	if s.opts.Validate {
		if err := engine.Validate(b); err != nil {
			return Result{}, err
		}
	}
	if engine.IsTerminal(b) {
		return Result{}, ErrNoMoves
	}

	free := b.EmptyCells()
	if s.opts.RandomOpening && len(free) == engine.Cells {
		res := Result{Position: s.randomCell(free), Score: Draw, Opening: true}
		s.log.Debug("opening move", zap.String("mark", string(me)), zap.Int("position", res.Position))
		return res, nil
	}

	var (
		scores [engine.Cells]int
		nodes  int64
	)
	if s.opts.Parallel {
		nodes = s.scoreParallel(b, me, free, &scores)
	} else {
		var st stats
		for _, i := range free {
			scores[i] = s.scoreCandidate(b, me, i, &st)
		}
		nodes = st.nodes
	}

	res := Result{Position: -1, Score: minusInf, Nodes: nodes}
	for _, i := range free {
		if scores[i] > res.Score {
			res.Position, res.Score = i, scores[i]
		}
	}
	if res.Position < 0 {
		res.Position, res.Score, res.Fallback = s.randomCell(free), Draw, true
		s.log.Error("no candidate scored, playing random cell",
			zap.String("mark", string(me)),
			zap.Strings("board", boardFields(b)),
			zap.Int("position", res.Position))
		return res, nil
	}

	s.log.Debug("move selected",
		zap.String("mark", string(me)),
		zap.Int("position", res.Position),
		zap.Int("score", res.Score),
		zap.Int64("nodes", res.Nodes),
		zap.Bool("parallel", s.opts.Parallel))
	return res, nil
}

func (s *Searcher) scoreCandidate(b engine.Board, me engine.Mark, pos int, st *stats) int {
	next := b
	next[pos] = me
	if s.opts.DisablePruning {
		return minimax(next, me, 1, false, st)
	}
	return evaluate(next, me, 1, minusInf, plusInf, false, st)
}

func (s *Searcher) scoreParallel(b engine.Board, me engine.Mark, free []int, scores *[engine.Cells]int) int64 {
	var (
		g     errgroup.Group
		nodes [engine.Cells]stats
	)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, i := range free {
		g.Go(func() error {
			// Each goroutine owns scores[i] and nodes[i]; b is copied per call.
			scores[i] = s.scoreCandidate(b, me, i, &nodes[i])
			return nil
		})
	}
	_ = g.Wait()

	var total int64
	for _, st := range nodes {
		total += st.nodes
	}
	return total
}

func (s *Searcher) randomCell(free []int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return free[s.rng.IntN(len(free))]
}

func boardFields(b engine.Board) []string {
	cells := b.Strings()
	return cells[:]
}
