// Package httpapi serves the stateless move and outcome endpoints and mounts
// the WebSocket game server.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/proto"
	"github.com/kushgupta-hiver/tttengine/internal/search"
)

const maxBody = 4 << 10

type Options struct {
	Logger *zap.Logger

	// WS, when set, is mounted at /ws and /ws/*.
	WS http.Handler
}

type api struct {
	eng engine.Engine
	ai  *search.Searcher
	log *zap.Logger
}

func NewRouter(eng engine.Engine, ai *search.Searcher, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &api{eng: eng, ai: ai, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Tic-tac-toe server.\n" +
			"  ws://<host>/ws            auto-match\n" +
			"  ws://<host>/ws/<room>     named room\n" +
			"  ws://<host>/ws/computer   play the engine\n" +
			"  POST /api/v1/move         best move for a board\n" +
			"  POST /api/v1/outcome      status of a board\n"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/move", a.move)
		r.Post("/outcome", a.outcome)
	})

	if opts.WS != nil {
		r.Handle("/ws", opts.WS)
		r.Handle("/ws/*", opts.WS)
	}
	return r
}

func (a *api) move(w http.ResponseWriter, r *http.Request) {
	var req proto.MoveRequest
	if !a.decode(w, r, &req) {
		return
	}
	b, ok := a.board(w, r, req.Board)
	if !ok {
		return
	}
	mark := engine.Mark(strings.ToUpper(strings.TrimSpace(req.Mark)))
	if !mark.Valid() {
		a.fail(w, r, fmt.Errorf("%w: %q", search.ErrInvalidMark, req.Mark))
		return
	}

	res, err := a.ai.Analyze(b, mark)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proto.MoveResponse{
		Position: res.Position,
		Row:      res.Position / 3,
		Col:      res.Position % 3,
		Score:    res.Score,
		Nodes:    res.Nodes,
	})
}

func (a *api) outcome(w http.ResponseWriter, r *http.Request) {
	var req proto.OutcomeRequest
	if !a.decode(w, r, &req) {
		return
	}
	b, ok := a.board(w, r, req.Board)
	if !ok {
		return
	}
	o := a.eng.Outcome(b)
	writeJSON(w, http.StatusOK, proto.OutcomeResponse{
		Status:   o.String(),
		Terminal: o != engine.InProgress,
		Winner:   o.Winner(),
	})
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.log.Debug("bad request body", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, proto.NewError(proto.CodeBadMessage, err))
		return false
	}
	return true
}

func (a *api) board(w http.ResponseWriter, r *http.Request, cells [engine.Cells]string) (engine.Board, bool) {
	b, err := engine.ParseBoard(cells)
	if err == nil {
		err = engine.Validate(b)
	}
	if err != nil {
		a.fail(w, r, err)
		return b, false
	}
	return b, true
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := proto.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case proto.CodeInvalidState:
		status = http.StatusBadRequest
	case proto.CodeNoMoves:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
	}
	writeJSON(w, status, proto.NewError(code, err))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// requestLogger logs one line per request with zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					// hijacked (WebSocket) or nothing written
					status = http.StatusSwitchingProtocols
					if !isUpgrade(r) {
						status = http.StatusOK
					}
				}
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
