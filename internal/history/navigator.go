// Package history lets a viewer inspect earlier positions while the live
// session keeps updating underneath.
package history

import (
	"errors"

	"github.com/park285/IgKnight-client/internal/session"
)

var ErrIndexOutOfRange = errors.New("history index out of range")

// Source is the live move list and position.
type Source interface {
	Moves() []session.Move
	Position() string
}

// Viewing is the inspected ply. Index is 0-based into the move list.
type Viewing struct {
	Index    int
	Position string
}

// Navigator is not safe for concurrent use.
type Navigator struct {
	src     Source
	viewing *Viewing
}

func NewNavigator(src Source) *Navigator {
	return &Navigator{src: src}
}

// Show fixes the display to the position after move i.
func (n *Navigator) Show(i int) error {
	moves := n.src.Moves()
	if i < 0 || i >= len(moves) {
		return ErrIndexOutOfRange
	}
	n.viewing = &Viewing{Index: i, Position: moves[i].ResultingPosition}
	return nil
}

// ReturnToLive clears the inspected ply.
func (n *Navigator) ReturnToLive() { n.viewing = nil }

// Reset is ReturnToLive for identity changes.
func (n *Navigator) Reset() { n.viewing = nil }

// Active reports whether a historical position is shown.
func (n *Navigator) Active() bool { return n.viewing != nil }

func (n *Navigator) Viewing() (Viewing, bool) {
	if n.viewing == nil {
		return Viewing{}, false
	}
	return *n.viewing, true
}

// DisplayPosition is the inspected position, or the live one.
func (n *Navigator) DisplayPosition() string {
	if n.viewing != nil {
		return n.viewing.Position
	}
	return n.src.Position()
}

// Prev steps one ply back. From live the newest move is already on screen,
// so it starts one before it.
func (n *Navigator) Prev() bool {
	moves := n.src.Moves()
	if n.viewing == nil {
		if len(moves) < 2 {
			return false
		}
		return n.Show(len(moves)-2) == nil
	}
	if n.viewing.Index == 0 {
		return false
	}
	return n.Show(n.viewing.Index-1) == nil
}

// Next steps one ply forward. Stepping past the newest move returns to live.
func (n *Navigator) Next() bool {
	if n.viewing == nil {
		return false
	}
	next := n.viewing.Index + 1
	if next >= len(n.src.Moves()) {
		n.ReturnToLive()
		return true
	}
	return n.Show(next) == nil
}
