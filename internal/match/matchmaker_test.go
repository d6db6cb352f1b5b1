package match_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/match"
)

func TestAutoMatch_TwoPlayers_CreateRoom(t *testing.T) {
	events := make(chan match.RoomCreatedEvent, 1)
	mm := match.NewMatchmaker(func(ev match.RoomCreatedEvent) { events <- ev }, nil)
	defer mm.Close()

	ctx := context.Background()
	if err := mm.Enqueue(ctx, match.Player{ID: "p1"}); err != nil {
		t.Fatalf("enqueue p1: %v", err)
	}
	if err := mm.Enqueue(ctx, match.Player{ID: "p2"}); err != nil {
		t.Fatalf("enqueue p2: %v", err)
	}

	select {
	case ev := <-events:
		if ev.X.ID != "p1" || ev.O.ID != "p2" {
			t.Fatalf("expected first queued player as X, got %+v", ev)
		}
		if ev.X.Mark != engine.X || ev.O.Mark != engine.O {
			t.Fatalf("unexpected marks: %+v", ev)
		}
		if !strings.HasPrefix(ev.RoomID, "room-") {
			t.Fatalf("unexpected room id %q", ev.RoomID)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected a room to be created")
	}
}

func TestMatchmaker_SixtyPlayers_CreateThirtyRooms(t *testing.T) {
	events := make(chan match.RoomCreatedEvent, 64)
	mm := match.NewMatchmaker(func(ev match.RoomCreatedEvent) { events <- ev }, nil)
	defer mm.Close()

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		id := "p" + strconv.Itoa(i)
		if err := mm.Enqueue(ctx, match.Player{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	rooms := make(map[string]bool)
	timeout := time.After(time.Second)
	for len(rooms) < 30 {
		select {
		case ev := <-events:
			if rooms[ev.RoomID] {
				t.Fatalf("duplicate room id %s", ev.RoomID)
			}
			rooms[ev.RoomID] = true
		case <-timeout:
			t.Fatalf("expected 30 rooms, got %d", len(rooms))
		}
	}
}

func TestMatchmaker_DuplicateEnqueueNotPairedWithItself(t *testing.T) {
	events := make(chan match.RoomCreatedEvent, 2)
	mm := match.NewMatchmaker(func(ev match.RoomCreatedEvent) { events <- ev }, nil)
	defer mm.Close()

	ctx := context.Background()
	for _, id := range []string{"p1", "p1", "p2"} {
		if err := mm.Enqueue(ctx, match.Player{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	select {
	case ev := <-events:
		if ev.X.ID == ev.O.ID {
			t.Fatalf("player paired with itself: %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected a room to be created")
	}
}

func TestMatchmaker_EnqueueAfterClose(t *testing.T) {
	mm := match.NewMatchmaker(func(match.RoomCreatedEvent) {}, nil)
	if err := mm.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mm.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// The buffered queue may still accept; a cancelled context must not.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := mm.Enqueue(ctx, match.Player{ID: "late"})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
}
