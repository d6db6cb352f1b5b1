package proto_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/proto"
	"github.com/kushgupta-hiver/tttengine/internal/search"
)

func TestDecodeContents_JoinRequest(t *testing.T) {
	var msg proto.ClientMsg
	if err := json.Unmarshal([]byte(`{"type":"join","contents":{"first":"computer"}}`), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var join proto.JoinRequest
	if err := proto.DecodeContents(msg.Contents, &join); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if join.HumanFirst() {
		t.Fatalf("expected computer to move first, got %+v", join)
	}

	var empty proto.JoinRequest
	if err := proto.DecodeContents(nil, &empty); err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if !empty.HumanFirst() {
		t.Fatalf("human moves first by default")
	}
}

func TestDecodeContents_WeakTyping(t *testing.T) {
	var out struct {
		First string `mapstructure:"first"`
		Games int    `mapstructure:"games"`
	}
	err := proto.DecodeContents(map[string]any{"first": 1, "games": "3"}, &out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.First != "1" || out.Games != 3 {
		t.Fatalf("unexpected %+v", out)
	}

	err = proto.DecodeContents(map[string]any{"games": map[string]any{"n": 1}}, &out)
	if err == nil {
		t.Fatalf("expected error for an object where an int belongs")
	}
}

func TestNewState_WireShape(t *testing.T) {
	eng := engine.NewEngine()
	s, err := eng.ApplyMove(eng.NewGame(), engine.Move{Position: 4, ClientSeq: 1, Mark: engine.X})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	data, err := json.Marshal(proto.NewState(s))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"state","board":["","","","","X","","","",""],"next_turn":"O","last_move":{"by":"X","pos":4},"serverSeq":1,"status":"IN_PROGRESS"}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}

	start := proto.NewStart(s, engine.O)
	if !start.YourTurn || start.Type != proto.TypeStart {
		t.Fatalf("unexpected start %+v", start)
	}
}

func TestNewResult(t *testing.T) {
	r := proto.NewResult(engine.OWins)
	if r.Type != proto.TypeResult || r.Status != "O_WINS" || r.Winner != engine.O {
		t.Fatalf("unexpected %+v", r)
	}
	if d := proto.NewResult(engine.Draw); d.Winner != engine.Empty {
		t.Fatalf("draw has no winner, got %+v", d)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{engine.ErrCellTaken, proto.CodeCellTaken},
		{fmt.Errorf("wrapped: %w", engine.ErrInvalidState), proto.CodeInvalidState},
		{search.ErrNoMoves, proto.CodeNoMoves},
		{search.ErrInvalidMark, proto.CodeInvalidState},
		{engine.ErrTerminal, proto.CodeTerminal},
		{errors.New("boom"), proto.CodeInternal},
	}
	for _, tt := range tests {
		if got := proto.ErrorCode(tt.err); got != tt.code {
			t.Fatalf("%v: expected %s, got %s", tt.err, tt.code, got)
		}
	}
}
