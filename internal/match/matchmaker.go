package match

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

type RoomCreatedEvent struct {
	RoomID string
	X      Player
	O      Player
}

type Matchmaker interface {
	Enqueue(ctx context.Context, p Player) error
	Close() error
}

type matchmaker struct {
	q      chan Player
	done   chan struct{}
	once   sync.Once
	onRoom func(RoomCreatedEvent)
	log    *zap.Logger
}

// NewMatchmaker pairs queued players in arrival order and reports each pair
// through onRoom, which runs on the matchmaker goroutine.
func NewMatchmaker(onRoom func(RoomCreatedEvent), log *zap.Logger) Matchmaker {
	if log == nil {
		log = zap.NewNop()
	}
	m := &matchmaker{
		q:      make(chan Player, 1024),
		done:   make(chan struct{}),
		onRoom: onRoom,
		log:    log,
	}
	go m.loop()
	return m
}

func (m *matchmaker) Enqueue(ctx context.Context, p Player) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return context.Canceled
	case m.q <- p:
		return nil
	}
}

func (m *matchmaker) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *matchmaker) loop() {
	var pending *Player

	for {
		select {
		case <-m.done:
			return
		case p := <-m.q:
			if pending == nil {
				pp := p
				pending = &pp
				continue
			}
			if pending.ID == p.ID {
				// same player queued twice; keep one entry
				continue
			}

			// first in queue plays X
			ev := RoomCreatedEvent{
				RoomID: "room-" + uuid.NewString(),
				X:      Player{ID: pending.ID, Mark: engine.X},
				O:      Player{ID: p.ID, Mark: engine.O},
			}
			m.log.Debug("players paired",
				zap.String("room", ev.RoomID), zap.String("x", ev.X.ID), zap.String("o", ev.O.ID))
			m.onRoom(ev)
			pending = nil
		}
	}
}
