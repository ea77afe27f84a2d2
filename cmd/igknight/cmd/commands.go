package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errEmptyCommand = errors.New("empty command")

// command is one parsed line of play input.
type command struct {
	name string
	args []string
	// index is the 0-based move for "show".
	index int
}

const playHelp = `commands:
  e2e4            move (click origin, then destination)
  click <sq>      click a square
  drag <sq>       start dragging from a square
  drop <sq>       drop the dragged piece
  cancel          cancel a drag
  prev | next     step through history
  show <n>        show the position after move n (1-based)
  live            return to the live position
  resign          resign the session
  say <text>      send a chat line
  board           redraw
  png <file>      write the current board as PNG
  quit            leave`

// parseCommand reads one input line. Bare coordinates such as "e2e4" or
// "e7e8q" are moves.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return command{}, errEmptyCommand
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "click", "drag", "drop":
		if len(args) != 1 || !isSquare(args[0]) {
			return command{}, fmt.Errorf("%s needs one square, e.g. %s e2", name, name)
		}
		return command{name: name, args: []string{strings.ToLower(args[0])}}, nil
	case "show":
		if len(args) != 1 {
			return command{}, errors.New("show needs a move number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("invalid move number %q", args[0])
		}
		return command{name: name, index: n - 1}, nil
	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if text == "" {
			return command{}, errors.New("say needs some text")
		}
		return command{name: name, args: []string{text}}, nil
	case "png":
		if len(args) != 1 {
			return command{}, errors.New("png needs a file name")
		}
		return command{name: name, args: args}, nil
	case "cancel", "prev", "next", "live", "resign", "board", "help", "quit", "exit":
		if name == "exit" {
			name = "quit"
		}
		return command{name: name}, nil
	}

	if len(args) == 0 && (len(name) == 4 || len(name) == 5) && isSquare(name[0:2]) && isSquare(name[2:4]) {
		if len(name) == 5 && name[4] != 'q' {
			return command{}, errors.New("only queen promotion is available")
		}
		return command{name: "move", args: []string{name[0:2], name[2:4]}}, nil
	}
	return command{}, fmt.Errorf("unknown command %q (try help)", fields[0])
}

func isSquare(s string) bool {
	if len(s) != 2 {
		return false
	}
	s = strings.ToLower(s)
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
