// Package session keeps the single authoritative copy of a session's
// state and funnels every inbound message through one ordered path.
package session

import (
	"strings"
	"time"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// Status is the lifecycle of a session.
type Status string

const (
	StatusUnknown    Status = ""
	StatusAwaiting   Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCheckmate  Status = "CHECKMATE"
	StatusStalemate  Status = "STALEMATE"
	StatusResigned   Status = "RESIGNED"
	StatusTimeout    Status = "TIMEOUT"
	StatusDraw       Status = "DRAW"
)

// ParseStatus maps wire spellings onto Status. Draw variants collapse to
// StatusDraw; the specific reason is returned separately.
func ParseStatus(s string) (Status, string) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case v == "WAITING":
		return StatusAwaiting, ""
	case v == "IN_PROGRESS" || v == "ACTIVE":
		return StatusInProgress, ""
	case v == "CHECKMATE":
		return StatusCheckmate, ""
	case v == "STALEMATE":
		return StatusStalemate, ""
	case v == "RESIGNATION" || v == "RESIGNED":
		return StatusResigned, ""
	case v == "TIMEOUT":
		return StatusTimeout, ""
	case v == "DRAW":
		return StatusDraw, ""
	case strings.HasPrefix(v, "DRAW_"):
		return StatusDraw, strings.ToLower(strings.TrimPrefix(v, "DRAW_"))
	}
	return StatusUnknown, ""
}

// Terminal reports whether no further moves can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusCheckmate, StatusStalemate, StatusResigned, StatusTimeout, StatusDraw:
		return true
	}
	return false
}

func (s Status) rank() int {
	switch {
	case s == StatusAwaiting:
		return 1
	case s == StatusInProgress:
		return 2
	case s.Terminal():
		return 3
	}
	return 0
}

// Player is one participant.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Move is one applied move. Ply is 1-based.
type Move struct {
	Ply               int    `json:"ply"`
	Origin            string `json:"origin"`
	Destination       string `json:"destination"`
	Promotion         string `json:"promotion,omitempty"`
	Piece             string `json:"piece,omitempty"`
	Notation          string `json:"notation,omitempty"`
	ResultingPosition string `json:"resultingPosition,omitempty"`
	Check             bool   `json:"check"`
	Checkmate         bool   `json:"checkmate"`
	Capture           bool   `json:"capture"`
	Castle            bool   `json:"castle"`
	Promoted          bool   `json:"promoted"`
}

// Mover is the side that played the move.
func (m Move) Mover() gamedto.Color {
	if m.Ply%2 == 1 {
		return gamedto.White
	}
	return gamedto.Black
}

// Remaining holds both clocks as last reported.
type Remaining struct {
	White time.Duration `json:"white"`
	Black time.Duration `json:"black"`
	Known bool          `json:"known"`
}

// State is the full session state.
type State struct {
	ID         string        `json:"id"`
	White      *Player       `json:"white,omitempty"`
	Black      *Player       `json:"black,omitempty"`
	Position   string        `json:"position"`
	SideToMove gamedto.Color `json:"sideToMove"`
	Status     Status        `json:"status"`
	DrawReason string        `json:"drawReason,omitempty"`
	Winner     string        `json:"winner,omitempty"`
	Resigned   string        `json:"resigned,omitempty"`
	Check      bool          `json:"check"`
	Rated      bool          `json:"rated"`
	Timed      bool          `json:"timed"`
	BaseTime   time.Duration `json:"baseTime"`
	Increment  time.Duration `json:"increment"`
	Remaining  Remaining     `json:"remaining"`
	Moves      []Move        `json:"moves"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	EndedAt    time.Time     `json:"endedAt"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	if s.White != nil {
		w := *s.White
		cp.White = &w
	}
	if s.Black != nil {
		b := *s.Black
		cp.Black = &b
	}
	cp.Moves = append([]Move(nil), s.Moves...)
	return &cp
}

// ColorOf returns the seat held by userID, or "" for spectators.
func (s *State) ColorOf(userID string) gamedto.Color {
	if s == nil || userID == "" {
		return ""
	}
	if s.White != nil && s.White.ID == userID {
		return gamedto.White
	}
	if s.Black != nil && s.Black.ID == userID {
		return gamedto.Black
	}
	return ""
}

// LastMove returns the newest move, if any.
func (s *State) LastMove() (Move, bool) {
	if s == nil || len(s.Moves) == 0 {
		return Move{}, false
	}
	return s.Moves[len(s.Moves)-1], true
}
