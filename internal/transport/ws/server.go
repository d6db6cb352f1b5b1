package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/match"
	"github.com/kushgupta-hiver/tttengine/internal/proto"
	"github.com/kushgupta-hiver/tttengine/internal/search"
)

// computerRoute is the path segment under /ws that plays against the engine.
const computerRoute = "computer"

const writeTimeout = 5 * time.Second

const (
	codeNotStarted = "not_started"
	codeRoomFull   = "room_full"
)

type Config struct {
	OriginPatterns     []string
	InsecureSkipVerify bool

	// GracePeriod lets a disconnected player reconnect to a named room with
	// the same ?player= id before the game is forfeited.
	GracePeriod time.Duration

	Searcher *search.Searcher
	Logger   *zap.Logger
}

// Server is an HTTP handler that upgrades to WebSocket.
//
//	/ws            pair with the next waiting player
//	/ws/<room>     meet another player in a named room
//	/ws/computer   play the engine
type Server interface {
	http.Handler
	Close() error
}

type server struct {
	cfg Config
	eng engine.Engine
	ai  *search.Searcher
	log *zap.Logger
	mm  match.Matchmaker

	mu      sync.Mutex
	waiting map[string]*client   // auto-match queue, by player id
	named   map[string]*client   // named room id -> first arrival
	rooms   map[string]*liveRoom // rooms with both seats assigned
}

func NewServer(cfg Config, eng engine.Engine) Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ai := cfg.Searcher
	if ai == nil {
		ai = search.NewSearcher(search.Options{Logger: log})
	}
	s := &server{
		cfg:     cfg,
		eng:     eng,
		ai:      ai,
		log:     log,
		waiting: make(map[string]*client),
		named:   make(map[string]*client),
		rooms:   make(map[string]*liveRoom),
	}
	s.mm = match.NewMatchmaker(s.onRoom, log)
	return s
}

func (s *server) Close() error { return s.mm.Close() }

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws"), "/")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     s.cfg.OriginPatterns,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{id: playerID(r), conn: conn, ready: make(chan seat, 1)}
	log := s.log.With(zap.String("player", c.id), zap.String("route", route))
	log.Info("client connected")
	defer log.Info("client disconnected")

	msgs := make(chan proto.ClientMsg)
	go c.readLoop(ctx, msgs)

	if route == computerRoute {
		s.serveComputer(ctx, c, msgs, log)
		return
	}
	s.serveHuman(ctx, c, route, msgs, log)
}

// playerID honours a well-formed ?player= id so that a client can reclaim
// its seat after reconnecting.
func playerID(r *http.Request) string {
	if id := r.URL.Query().Get("player"); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

// ---- human vs human ----

func (s *server) serveHuman(ctx context.Context, c *client, roomID string, msgs <-chan proto.ClientMsg, log *zap.Logger) {
	if err := s.enter(ctx, c, roomID); err != nil {
		code := proto.CodeInternal
		if errors.Is(err, match.ErrRoomFull) {
			code = codeRoomFull
		}
		_ = c.send(proto.NewError(code, err))
		return
	}

	var st seat
wait:
	for {
		select {
		case st = <-c.ready:
			break wait
		case m, ok := <-msgs:
			if !ok {
				s.abandon(c, roomID)
				return
			}
			if m.Type == proto.TypePing {
				_ = c.send(proto.Pong{Type: proto.TypePong})
				continue
			}
			_ = c.send(proto.NewError(codeNotStarted, nil))
		case <-ctx.Done():
			s.abandon(c, roomID)
			return
		}
	}

	lr := st.room
	log = log.With(zap.String("room", lr.id), zap.String("mark", string(st.mark)))
	state := lr.room.State()
	_ = c.send(proto.Assigned{Type: proto.TypeAssigned, You: st.mark, RoomID: lr.id, PlayerID: c.id})
	_ = c.send(proto.NewStart(state, st.mark))
	if state.Terminal() {
		// back after the game was decided, e.g. by a grace forfeit
		_ = c.send(proto.NewResult(state.Status))
	}

	for m := range msgs {
		switch m.Type {
		case proto.TypePing:
			_ = c.send(proto.Pong{Type: proto.TypePong})
		case proto.TypeMove:
			if !lr.holds(st.mark, c) {
				return
			}
			if m.Position == nil {
				_ = c.send(proto.NewError(proto.CodeBadMessage, errors.New("move without position")))
				continue
			}
			ns, err := lr.room.Submit(ctx, engine.Move{
				PlayerID:  c.id,
				Position:  *m.Position,
				MsgID:     m.MsgID,
				ClientSeq: m.ClientSeq,
				Mark:      st.mark,
			})
			if err != nil {
				log.Debug("move rejected", zap.Error(err))
				_ = c.send(proto.NewError(proto.ErrorCode(err), err))
				continue
			}
			lr.broadcast(proto.NewState(ns))
			if ns.Terminal() {
				lr.broadcast(proto.NewResult(ns.Status))
			}
		case proto.TypeLeave:
			s.leave(lr, c, log)
			return
		default:
			_ = c.send(proto.NewError(proto.CodeBadMessage, errors.New("unknown type "+m.Type)))
		}
	}
	s.leave(lr, c, log)
}

// enter queues c for auto-match, parks it in a named room, or seats it again
// in a running room it already belongs to.
func (s *server) enter(ctx context.Context, c *client, roomID string) error {
	if roomID == "" {
		s.mu.Lock()
		s.waiting[c.id] = c
		s.mu.Unlock()
		if err := s.mm.Enqueue(ctx, match.Player{ID: c.id}); err != nil {
			s.mu.Lock()
			delete(s.waiting, c.id)
			s.mu.Unlock()
			return err
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if lr, ok := s.rooms[roomID]; ok {
		return lr.rejoin(ctx, c)
	}
	if first, ok := s.named[roomID]; ok && first.id != c.id {
		delete(s.named, roomID)
		s.startRoomLocked(roomID, first, c)
		return nil
	}
	s.named[roomID] = c
	return nil
}

// abandon removes a client that left before it was seated. A seat that
// arrived in the meantime is given up.
func (s *server) abandon(c *client, roomID string) {
	s.mu.Lock()
	if roomID == "" {
		delete(s.waiting, c.id)
	} else if s.named[roomID] == c {
		delete(s.named, roomID)
	}
	s.mu.Unlock()

	select {
	case st := <-c.ready:
		s.leave(st.room, c, s.log)
	default:
	}
}

func (s *server) onRoom(ev match.RoomCreatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cx, co := s.waiting[ev.X.ID], s.waiting[ev.O.ID]
	delete(s.waiting, ev.X.ID)
	delete(s.waiting, ev.O.ID)
	if cx == nil || co == nil {
		// One side hung up while queued; put the other back in line.
		for _, c := range []*client{cx, co} {
			if c == nil {
				continue
			}
			s.waiting[c.id] = c
			go func(id string) {
				if err := s.mm.Enqueue(context.Background(), match.Player{ID: id}); err != nil {
					s.log.Warn("requeue failed", zap.String("player", id), zap.Error(err))
				}
			}(c.id)
		}
		return
	}
	s.startRoomLocked(ev.RoomID, cx, co)
}

func (s *server) startRoomLocked(id string, cx, co *client) {
	lr := &liveRoom{
		id: id,
		room: match.NewRoom(id, s.eng, match.Options{
			GracePeriod: s.cfg.GracePeriod,
			OnForfeit:   s.onForfeit,
			Logger:      s.log,
		}),
		clients: map[engine.Mark]*client{engine.X: cx, engine.O: co},
		ids:     map[engine.Mark]string{engine.X: cx.id, engine.O: co.id},
	}
	for mark, c := range lr.clients {
		if err := lr.room.Join(context.Background(), match.Player{ID: c.id, Mark: mark}); err != nil {
			s.log.Error("seat player", zap.String("room", id), zap.Error(err))
		}
	}
	s.rooms[id] = lr
	s.log.Info("room started", zap.String("room", id), zap.String("x", cx.id), zap.String("o", co.id))

	cx.ready <- seat{room: lr, mark: engine.X}
	co.ready <- seat{room: lr, mark: engine.O}
}

func (s *server) leave(lr *liveRoom, c *client, log *zap.Logger) {
	if !lr.detach(c) {
		// replaced by a newer connection for the same player
		return
	}
	before := lr.room.State()
	if err := lr.room.Leave(context.Background(), c.id); err != nil {
		log.Warn("leave room", zap.Error(err))
	}
	after := lr.room.State()
	if !before.Terminal() && after.Terminal() {
		lr.broadcast(proto.NewResult(after.Status))
	}
	if after.Terminal() && lr.empty() {
		s.mu.Lock()
		delete(s.rooms, lr.id)
		s.mu.Unlock()
	}
}

func (s *server) onForfeit(roomID string, st engine.State) {
	s.mu.Lock()
	lr := s.rooms[roomID]
	if lr != nil && lr.empty() {
		// Nobody is left to tell; free the name for a new game.
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()
	if lr != nil {
		lr.broadcast(proto.NewResult(st.Status))
	}
}

// ---- human vs computer ----

func (s *server) serveComputer(ctx context.Context, c *client, msgs <-chan proto.ClientMsg, log *zap.Logger) {
	var sess *match.Session

	for m := range msgs {
		switch m.Type {
		case proto.TypePing:
			_ = c.send(proto.Pong{Type: proto.TypePong})

		case proto.TypeJoin, proto.TypeRestart:
			var req proto.JoinRequest
			if err := proto.DecodeContents(m.Contents, &req); err != nil {
				_ = c.send(proto.NewError(proto.CodeBadMessage, err))
				continue
			}
			var (
				turn match.Turn
				err  error
			)
			if sess == nil {
				sess = match.NewSession(c.id, s.eng, s.ai, match.SessionOptions{HumanFirst: req.HumanFirst(), Logger: log})
				turn, err = sess.Start()
			} else {
				turn, err = sess.Restart(req.HumanFirst())
			}
			if err != nil {
				_ = c.send(proto.NewError(proto.ErrorCode(err), err))
				continue
			}
			_ = c.send(proto.Assigned{Type: proto.TypeAssigned, You: sess.Human(), RoomID: sess.ID(), PlayerID: c.id})
			_ = c.send(proto.NewStart(turn.State, sess.Human()))

		case proto.TypeMove:
			if sess == nil {
				_ = c.send(proto.NewError(codeNotStarted, errors.New("send join first")))
				continue
			}
			if m.Position == nil {
				_ = c.send(proto.NewError(proto.CodeBadMessage, errors.New("move without position")))
				continue
			}
			turn, err := sess.Play(*m.Position)
			if err != nil {
				_ = c.send(proto.NewError(proto.ErrorCode(err), err))
				continue
			}
			_ = c.send(proto.NewState(turn.State))
			if turn.State.Terminal() {
				_ = c.send(proto.NewResult(turn.State.Status))
			}

		case proto.TypeLeave:
			return

		default:
			_ = c.send(proto.NewError(proto.CodeBadMessage, errors.New("unknown type "+m.Type)))
		}
	}
}

// ---- connections ----

type client struct {
	id    string
	conn  *websocket.Conn
	ready chan seat
}

type seat struct {
	room *liveRoom
	mark engine.Mark
}

func (c *client) send(v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, v)
}

// readLoop decodes client messages onto out until the connection fails.
// Malformed JSON is answered with an error instead of closing the socket.
func (c *client) readLoop(ctx context.Context, out chan<- proto.ClientMsg) {
	defer close(out)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var m proto.ClientMsg
		if err := json.Unmarshal(data, &m); err != nil {
			_ = c.send(proto.NewError(proto.CodeBadMessage, err))
			continue
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

type liveRoom struct {
	id   string
	room match.Room

	mu      sync.Mutex
	clients map[engine.Mark]*client // nil once the seat's connection is gone
	ids     map[engine.Mark]string
}

func (lr *liveRoom) rejoin(ctx context.Context, c *client) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	for mark, id := range lr.ids {
		if id != c.id {
			continue
		}
		if err := lr.room.Join(ctx, match.Player{ID: c.id, Mark: mark}); err != nil {
			return err
		}
		if old := lr.clients[mark]; old != nil && old != c {
			go func() { _ = old.conn.Close(websocket.StatusPolicyViolation, "replaced by a newer connection") }()
		}
		lr.clients[mark] = c
		c.ready <- seat{room: lr, mark: mark}
		return nil
	}
	return match.ErrRoomFull
}

// holds reports whether c is the current connection for mark.
func (lr *liveRoom) holds(mark engine.Mark, c *client) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.clients[mark] == c
}

func (lr *liveRoom) detach(c *client) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	for mark, cur := range lr.clients {
		if cur == c {
			lr.clients[mark] = nil
			return true
		}
	}
	return false
}

func (lr *liveRoom) empty() bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	for _, c := range lr.clients {
		if c != nil {
			return false
		}
	}
	return true
}

func (lr *liveRoom) broadcast(v any) {
	lr.mu.Lock()
	targets := make([]*client, 0, len(lr.clients))
	for _, c := range lr.clients {
		if c != nil {
			targets = append(targets, c)
		}
	}
	lr.mu.Unlock()

	for _, c := range targets {
		_ = c.send(v)
	}
}
