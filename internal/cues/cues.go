// Package cues picks audible/visual feedback tags from structured move
// and status data.
package cues

import "github.com/park285/IgKnight-client/internal/session"

type Cue string

const (
	Start     Cue = "start"
	Move      Cue = "move"
	Capture   Cue = "capture"
	Castle    Cue = "castle"
	Promotion Cue = "promotion"
	Check     Cue = "check"
	Checkmate Cue = "checkmate"
	End       Cue = "end"
	Error     Cue = "error"
)

// ForMove returns the primary cue followed by a check cue when the move
// gives check without mate.
func ForMove(m session.Move) []Cue {
	var out []Cue
	switch {
	case m.Checkmate:
		return []Cue{Checkmate}
	case m.Capture:
		out = append(out, Capture)
	case m.Castle:
		out = append(out, Castle)
	case m.Promoted:
		out = append(out, Promotion)
	default:
		out = append(out, Move)
	}
	if m.Check {
		out = append(out, Check)
	}
	return out
}

// ForStatus returns the cue for a status transition, if any.
func ForStatus(prev, next session.Status) (Cue, bool) {
	if prev == next {
		return "", false
	}
	switch {
	case next == session.StatusInProgress && prev == session.StatusAwaiting:
		return Start, true
	case next.Terminal() && !prev.Terminal():
		return End, true
	}
	return "", false
}
