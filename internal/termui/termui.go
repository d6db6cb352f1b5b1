// Package termui draws boards and reads moves for the terminal client.
package termui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/kushgupta-hiver/tttengine/internal/engine"
)

var (
	ErrBadCell   = errors.New("enter a cell number from 1 to 9")
	ErrBadAnswer = errors.New("answer y or n")
)

type UI struct {
	out *termenv.Output
	in  *bufio.Scanner
}

// New writes to out with the given colour profile. Pass termenv.Ascii for
// plain text.
func New(in io.Reader, out io.Writer, profile termenv.Profile) *UI {
	return &UI{
		out: termenv.NewOutput(out, termenv.WithProfile(profile)),
		in:  bufio.NewScanner(in),
	}
}

// RenderBoard lays out the board in three rows. Free cells show the number
// a player types to take them.
func (u *UI) RenderBoard(b engine.Board) string {
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		if r > 0 {
			sb.WriteString("---+---+---\n")
		}
		for c := 0; c < 3; c++ {
			if c > 0 {
				sb.WriteString("|")
			}
			sb.WriteString(" " + u.cell(b, r*3+c) + " ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (u *UI) cell(b engine.Board, pos int) string {
	switch b[pos] {
	case engine.X:
		return u.out.String("X").Foreground(u.out.Color("1")).Bold().String()
	case engine.O:
		return u.out.String("O").Foreground(u.out.Color("4")).Bold().String()
	}
	return u.out.String(strconv.Itoa(pos + 1)).Faint().String()
}

func (u *UI) Board(b engine.Board) {
	fmt.Fprint(u.out, "\n"+u.RenderBoard(b)+"\n")
}

func (u *UI) Printf(format string, args ...any) {
	fmt.Fprintf(u.out, format, args...)
}

func (u *UI) Error(err error) {
	fmt.Fprintln(u.out, u.out.String(err.Error()).Foreground(u.out.Color("3")).String())
}

// Outcome announces the result from the point of view of the human mark.
func (u *UI) Outcome(o engine.Outcome, human engine.Mark) {
	var msg termenv.Style
	switch o.Winner() {
	case engine.Empty:
		msg = u.out.String("It's a draw.")
	case human:
		msg = u.out.String("You win!").Foreground(u.out.Color("2")).Bold()
	default:
		msg = u.out.String("The computer wins.").Foreground(u.out.Color("1")).Bold()
	}
	fmt.Fprintln(u.out, msg.String())
}

// AskCell prompts until a free cell is entered and returns it zero-based.
// It returns io.EOF when input runs out.
func (u *UI) AskCell(free func(pos int) bool) (int, error) {
	for {
		line, err := u.prompt("Your move (1-9): ")
		if err != nil {
			return 0, err
		}
		pos, err := ParseCell(line)
		if err != nil {
			u.Error(err)
			continue
		}
		if !free(pos) {
			u.Error(fmt.Errorf("cell %d is taken", pos+1))
			continue
		}
		return pos, nil
	}
}

// AskYesNo prompts until a yes or no answer is given.
func (u *UI) AskYesNo(question string) (bool, error) {
	for {
		line, err := u.prompt(question + " [y/n]: ")
		if err != nil {
			return false, err
		}
		yes, err := ParseYesNo(line)
		if err != nil {
			u.Error(err)
			continue
		}
		return yes, nil
	}
}

func (u *UI) prompt(p string) (string, error) {
	fmt.Fprint(u.out, p)
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(u.in.Text()), nil
}

// ParseCell maps "1".."9" to a zero-based position.
func ParseCell(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > engine.Cells {
		return 0, ErrBadCell
	}
	return n - 1, nil
}

func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, ErrBadAnswer
}
