package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrMarkTaken    = errors.New("mark already taken")
	ErrInvalidSeat  = errors.New("seat mark must be X or O")
	ErrNoSuchPlayer = errors.New("player not in room")
)

type Player struct {
	ID   string
	Mark engine.Mark
}

type Options struct {
	GracePeriod time.Duration // 0 = immediate forfeit on leave

	// OnForfeit runs after a departed player's grace period runs out and the
	// game was decided by forfeit. It is called without the room lock held.
	OnForfeit func(roomID string, s engine.State)

	Logger *zap.Logger
}

type Room interface {
	ID() string
	Join(ctx context.Context, p Player) error
	Submit(ctx context.Context, m engine.Move) (engine.State, error)
	Leave(ctx context.Context, playerID string) error
	State() engine.State
}

type room struct {
	id   string
	eng  engine.Engine
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	state engine.State

	players map[string]engine.Mark  // playerID -> mark
	marks   map[engine.Mark]string  // mark -> playerID
	hist    map[string]engine.State // msgID -> state (idempotency)
	away    map[string]*time.Timer  // playerID -> pending forfeit
}

func NewRoom(id string, eng engine.Engine, opts Options) Room {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &room{
		id:      id,
		eng:     eng,
		opts:    opts,
		log:     log.With(zap.String("room", id)),
		state:   eng.NewGame(),
		players: make(map[string]engine.Mark, 2),
		marks:   make(map[engine.Mark]string, 2),
		hist:    make(map[string]engine.State, 8),
		away:    make(map[string]*time.Timer, 2),
	}
}

func (r *room) ID() string { return r.id }

func (r *room) Join(_ context.Context, p Player) error {
	if !p.Mark.Valid() {
		return ErrInvalidSeat
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if mk, ok := r.players[p.ID]; ok {
		if mk != p.Mark {
			return ErrMarkTaken
		}
		// Rejoin: cancel a pending forfeit.
		if t, ok := r.away[p.ID]; ok {
			t.Stop()
			delete(r.away, p.ID)
			r.log.Info("player rejoined", zap.String("player", p.ID))
		}
		return nil
	}

	if owner, ok := r.marks[p.Mark]; ok && owner != p.ID {
		return ErrMarkTaken
	}
	if len(r.players) >= 2 {
		return ErrRoomFull
	}

	r.players[p.ID] = p.Mark
	r.marks[p.Mark] = p.ID
	r.log.Debug("player joined", zap.String("player", p.ID), zap.String("mark", string(p.Mark)))
	return nil
}

func (r *room) Submit(_ context.Context, m engine.Move) (engine.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.MsgID != "" {
		if s, ok := r.hist[m.MsgID]; ok {
			return s, nil
		}
	}

	// The submitted mark must match the player's seat.
	mk, ok := r.players[m.PlayerID]
	if !ok || mk != m.Mark {
		return r.state, engine.ErrNotYourTurn
	}

	ns, err := r.eng.ApplyMove(r.state, m)
	if err != nil {
		return r.state, err
	}

	r.state = ns
	if m.MsgID != "" {
		r.hist[m.MsgID] = ns
	}
	if ns.Terminal() {
		r.log.Info("game over", zap.Stringer("status", ns.Status), zap.Int("seq", ns.ServerSeq))
	}
	return ns, nil
}

func (r *room) Leave(_ context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mark, ok := r.players[playerID]
	if !ok {
		return ErrNoSuchPlayer
	}
	if r.state.Terminal() {
		return nil
	}

	if r.opts.GracePeriod <= 0 {
		r.forfeitLocked(mark)
		return nil
	}
	if _, pending := r.away[playerID]; pending {
		return nil
	}
	r.away[playerID] = time.AfterFunc(r.opts.GracePeriod, func() { r.expire(playerID) })
	r.log.Info("player left, grace period started",
		zap.String("player", playerID), zap.Duration("grace", r.opts.GracePeriod))
	return nil
}

func (r *room) expire(playerID string) {
	r.mu.Lock()
	if _, pending := r.away[playerID]; !pending || r.state.Terminal() {
		r.mu.Unlock()
		return
	}
	delete(r.away, playerID)
	r.forfeitLocked(r.players[playerID])
	s := r.state
	r.mu.Unlock()

	if r.opts.OnForfeit != nil {
		r.opts.OnForfeit(r.id, s)
	}
}

// forfeitLocked ends the game in favour of the leaver's opponent. ServerSeq
// is left as is since no move was played.
func (r *room) forfeitLocked(leaver engine.Mark) {
	r.state.Status = engine.WinFor(leaver.Opponent())
	r.log.Info("game forfeited", zap.String("leaver", string(leaver)), zap.Stringer("status", r.state.Status))
}

func (r *room) State() engine.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
