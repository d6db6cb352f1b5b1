// Command ttt plays tic-tac-toe against the engine in a terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/kushgupta-hiver/tttengine/internal/config"
	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/match"
	"github.com/kushgupta-hiver/tttengine/internal/search"
	"github.com/kushgupta-hiver/tttengine/internal/termui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	first := flag.String("first", "ask", "who opens each game: human, computer or ask")
	selfPlay := flag.Bool("selfplay", false, "let the engine play itself once and exit")
	logLevel := flag.String("log-level", "", "log level, overrides config and LOG_LEVEL")
	flag.Parse()

	// Keep the board readable unless config or the environment ask for more.
	base := config.Default()
	base.Log.Level = "warn"
	base.Log.Development = true

	cfg, err := config.LoadFrom(base, *configPath)
	if err == nil && *logLevel != "" {
		cfg.Log.Level = *logLevel
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ui := termui.New(os.Stdin, os.Stdout, termenv.EnvColorProfile())
	ai := search.NewSearcher(cfg.SearchOptions(log))

	if *selfPlay {
		err = playSelf(ui, engine.NewEngine(), ai)
	} else {
		err = play(ui, engine.NewEngine(), ai, *first, log)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		log.Error("game aborted", zap.Error(err))
		os.Exit(1)
	}
}

func play(ui *termui.UI, eng engine.Engine, ai *search.Searcher, first string, log *zap.Logger) error {
	var sess *match.Session
	for {
		humanFirst, err := whoOpens(ui, first)
		if err != nil {
			return err
		}

		var turn match.Turn
		if sess == nil {
			sess = match.NewSession(uuid.NewString(), eng, ai, match.SessionOptions{HumanFirst: humanFirst, Logger: log})
			turn, err = sess.Start()
		} else {
			turn, err = sess.Restart(humanFirst)
		}
		if err != nil {
			return err
		}
		ui.Printf("You play %s.\n", sess.Human())
		announce(ui, turn, sess.Computer())
		ui.Board(turn.State.Board)

		for !turn.State.Terminal() {
			pos, err := ui.AskCell(turn.State.Board.IsFree)
			if err != nil {
				return err
			}
			next, err := sess.Play(pos)
			if err != nil {
				ui.Error(err)
				continue
			}
			turn = next
			announce(ui, turn, sess.Computer())
			ui.Board(turn.State.Board)
		}
		ui.Outcome(turn.State.Status, sess.Human())

		again, err := ui.AskYesNo("Play again?")
		if err != nil || !again {
			return err
		}
	}
}

func whoOpens(ui *termui.UI, first string) (bool, error) {
	switch first {
	case "human":
		return true, nil
	case "computer":
		return false, nil
	}
	return ui.AskYesNo("Do you want to play first?")
}

func announce(ui *termui.UI, t match.Turn, computer engine.Mark) {
	for _, m := range t.Moves {
		if m.By == computer {
			ui.Printf("Computer plays %d.\n", m.Pos+1)
		}
	}
}

func playSelf(ui *termui.UI, eng engine.Engine, ai *search.Searcher) error {
	s := eng.NewGame()
	for !s.Terminal() {
		pos, err := ai.SelectMove(s.Board, s.NextTurn)
		if err != nil {
			return err
		}
		s, err = eng.ApplyMove(s, engine.Move{
			PlayerID:  string(s.NextTurn),
			Position:  pos,
			ClientSeq: s.ServerSeq + 1,
			Mark:      s.NextTurn,
		})
		if err != nil {
			return err
		}
		ui.Printf("%s plays %d.\n", s.LastMove.By, s.LastMove.Pos+1)
		ui.Board(s.Board)
	}
	ui.Printf("Result: %s\n", s.Status)
	return nil
}
