// Package clock turns server time snapshots into a display that counts
// down locally between authoritative updates.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// DefaultTick is how often the displayed value is recomputed.
const DefaultTick = 500 * time.Millisecond

// Snapshot is an authoritative reading of both clocks captured at receipt.
type Snapshot struct {
	White      time.Duration
	Black      time.Duration
	Side       gamedto.Color
	CapturedAt time.Time
}

// Reading is what a frame shows. Known is false before any snapshot.
type Reading struct {
	White   time.Duration
	Black   time.Duration
	Known   bool
	Running gamedto.Color
}

// For returns the remaining time for side c.
func (r Reading) For(c gamedto.Color) time.Duration {
	if c == gamedto.Black {
		return r.Black
	}
	return r.White
}

// Reconciler holds the latest snapshot and derives the displayed value.
// It is not safe for concurrent use; the owning view serializes access.
type Reconciler struct {
	clock     clockwork.Clock
	snap      Snapshot
	hasSnap   bool
	active    bool
	displayed Reading
}

func NewReconciler(c clockwork.Clock) *Reconciler {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Reconciler{clock: c}
}

// Reset replaces the snapshot wholesale. No prior extrapolation survives.
func (r *Reconciler) Reset(s Snapshot) {
	if s.White < 0 {
		s.White = 0
	}
	if s.Black < 0 {
		s.Black = 0
	}
	if s.CapturedAt.IsZero() {
		s.CapturedAt = r.clock.Now()
	}
	r.snap = s
	r.hasSnap = true
	r.displayed = Reading{White: s.White, Black: s.Black, Known: true}
	if r.active {
		r.displayed = r.At(r.clock.Now())
	}
}

// SetActive toggles ticking. It follows the session being in progress.
func (r *Reconciler) SetActive(active bool) {
	r.active = active
	if !active {
		r.displayed.Running = ""
	}
}

// Clear forgets the snapshot, e.g. on identity change.
func (r *Reconciler) Clear() {
	r.snap = Snapshot{}
	r.hasSnap = false
	r.displayed = Reading{}
}

func (r *Reconciler) Active() bool { return r.active }

// At computes the display at now without mutating state. Only the side to
// move is decremented and it never drops below zero.
func (r *Reconciler) At(now time.Time) Reading {
	if !r.hasSnap {
		return Reading{}
	}
	out := Reading{White: r.snap.White, Black: r.snap.Black, Known: true}
	if !r.active {
		return out
	}
	elapsed := now.Sub(r.snap.CapturedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	switch r.snap.Side {
	case gamedto.White:
		out.White = clamp(r.snap.White - elapsed)
		out.Running = gamedto.White
	case gamedto.Black:
		out.Black = clamp(r.snap.Black - elapsed)
		out.Running = gamedto.Black
	}
	return out
}

// Tick recomputes the display at the clock's current instant. While
// inactive the last displayed value is kept.
func (r *Reconciler) Tick() Reading {
	if r.active && r.hasSnap {
		r.displayed = r.At(r.clock.Now())
	}
	return r.displayed
}

// Displayed returns the last computed value.
func (r *Reconciler) Displayed() Reading { return r.displayed }

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
