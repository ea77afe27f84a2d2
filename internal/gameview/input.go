package gameview

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/cues"
	"github.com/park285/IgKnight-client/internal/gameapi"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/session"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

type boardEnv struct{ v *View }

func (e boardEnv) Disabled() bool      { return e.v.disabled() }
func (e boardEnv) Position() string    { return e.v.store.Position() }
func (e boardEnv) Side() gamedto.Color { return e.v.seat() }

type querier struct{ v *View }

func (q querier) Query(square string, done func([]string, error)) {
	v := q.v
	id := v.cfg.SessionID
	v.run(func(ctx context.Context) func() {
		dests, err := v.api.LegalDestinations(ctx, id, square)
		return func() { done(dests, err) }
	})
}

type committer struct{ v *View }

func (c committer) Commit(m board.Move) {
	v := c.v
	eg := v.egress
	v.logger.Info("move_commit", zap.String("uci", m.UCI()))
	v.run(func(ctx context.Context) func() {
		g, err := eg.Move(ctx, m.Origin, m.Destination, m.Promotion)
		return func() {
			if err != nil {
				v.moveFailed(m, err)
				return
			}
			v.applyResponse(g)
		}
	})
}

// moveFailed surfaces a notice. The controller is already idle and the
// board shows the last server position, so there is nothing to undo.
func (v *View) moveFailed(m board.Move, err error) {
	data := map[string]any{"Move": m.UCI(), "Reason": ""}
	if errors.Is(err, gameapi.ErrMoveRejected) {
		var de gamedto.DomainError
		if errors.As(err, &de) {
			data["Reason"] = de.Message
		}
		v.logger.Info("move_rejected", zap.String("uci", m.UCI()), zap.Error(err))
		v.setNotice("notice.move_rejected", data)
	} else {
		v.logger.Warn("move_failed", zap.String("uci", m.UCI()), zap.Error(err))
		v.setNotice("notice.move_failed", data)
	}
	v.emit(Update{Cues: []cues.Cue{cues.Error}})
}

func (v *View) seat() gamedto.Color {
	st := v.store.Snapshot()
	return st.ColorOf(v.cfg.User.ID.String())
}

// disabled is true for spectators, outside in-progress play, off-turn,
// and while a historical position is displayed.
func (v *View) disabled() bool {
	if !v.store.Loaded() || v.store.Status() != session.StatusInProgress || v.nav.Active() {
		return true
	}
	seat := v.seat()
	return seat == "" || v.store.SideToMove() != seat
}

func (v *View) do(fn func()) {
	_ = v.call(context.Background(), func() {
		fn()
		v.emit(Update{})
	})
}

func (v *View) Click(square string)     { v.do(func() { v.ctrl.Click(square) }) }
func (v *View) DragStart(square string) { v.do(func() { v.ctrl.DragStart(square) }) }
func (v *View) Drop(square string)      { v.do(func() { v.ctrl.Drop(square) }) }
func (v *View) CancelDrag()             { v.do(func() { v.ctrl.CancelDrag() }) }

// Show displays the position after move i (0-based).
func (v *View) Show(i int) error {
	var err error
	if cerr := v.call(context.Background(), func() {
		err = v.nav.Show(i)
		if err == nil {
			v.ctrl.Reset()
			v.emit(Update{})
		}
	}); cerr != nil {
		return cerr
	}
	return err
}

func (v *View) ReturnToLive() { v.do(func() { v.nav.ReturnToLive() }) }

// Prev steps one move back and reports whether the display moved.
func (v *View) Prev() bool { return v.step(v.nav.Prev) }

// Next steps forward; past the newest move it returns to live.
func (v *View) Next() bool { return v.step(v.nav.Next) }

func (v *View) step(fn func() bool) bool {
	var moved bool
	v.do(func() {
		moved = fn()
		if moved {
			v.ctrl.Reset()
		}
	})
	return moved
}

// Resign sends a resignation for the acting player.
func (v *View) Resign(ctx context.Context) error {
	var eg livefeed.Egress
	var playing bool
	if err := v.call(ctx, func() {
		eg = v.egress
		playing = v.seat() != "" && !v.store.Status().Terminal()
	}); err != nil {
		return err
	}
	if !playing {
		return ErrNotPlaying
	}
	g, err := eg.Resign(ctx)
	if err != nil {
		v.logger.Warn("resign_failed", zap.Error(err))
		_ = v.call(ctx, func() { v.setNotice("notice.resign_failed", nil) })
		return err
	}
	if g != nil {
		return v.call(ctx, func() { v.applyResponse(g) })
	}
	return nil
}

// Chat sends a chat line. Only the push channel carries chat.
func (v *View) Chat(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var eg livefeed.Egress
	if err := v.call(ctx, func() { eg = v.egress }); err != nil {
		return err
	}
	if err := eg.Chat(ctx, text); err != nil {
		v.logger.Warn("chat_failed", zap.Error(err))
		_ = v.call(ctx, func() { v.setNotice("notice.chat_failed", nil) })
		return err
	}
	return nil
}
