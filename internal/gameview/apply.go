package gameview

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/cues"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/session"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

func (v *View) onEvent(ev livefeed.Event) {
	m := session.Message{Source: session.SourcePush, ReceivedAt: ev.ReceivedAt}
	switch ev.Kind {
	case livefeed.KindFullState:
		m.Kind, m.Full = session.KindFullState, ev.State
	case livefeed.KindMove:
		m.Kind, m.Move = session.KindMove, ev.Move
	case livefeed.KindEnd:
		m.Kind, m.End = session.KindEnd, ev.End
	case livefeed.KindStart:
		m.Kind, m.Start = session.KindStart, ev.Start
	case livefeed.KindPlayerJoined:
		m.Kind, m.Joined = session.KindPlayerJoined, ev.Joined
	case livefeed.KindChat:
		if ev.Chat != nil {
			v.onChat(*ev.Chat)
		}
		return
	default:
		return
	}
	v.apply(m)
}

func (v *View) onChat(c gamedto.ChatMessage) {
	v.chat = append(v.chat, c)
	if len(v.chat) > chatBacklog {
		v.chat = append([]gamedto.ChatMessage(nil), v.chat[len(v.chat)-chatBacklog:]...)
	}
	v.emit(Update{Chat: &c})
}

func (v *View) onConnState(s livefeed.State) {
	if s == v.conn {
		return
	}
	prev := v.conn
	v.conn = s
	switch s {
	case livefeed.StateConnected:
		v.connects++
		if v.connects > 1 {
			// events published while we were away are gone
			v.resync()
		}
		if prev == livefeed.StateReconnecting {
			v.setNotice("notice.live_connected", nil)
		}
	case livefeed.StateReconnecting:
		v.setNotice("notice.live_reconnecting", nil)
	}
	v.emit(Update{Connection: s})
}

func (v *View) applyResponse(g *gamedto.GameResponse) session.Result {
	if g == nil {
		return session.Result{}
	}
	return v.apply(session.Message{
		Kind:       session.KindFullState,
		Source:     session.SourceREST,
		ReceivedAt: v.clk.Now(),
		Full:       g,
	})
}

// apply is the only path from inbound data to the store.
func (v *View) apply(m session.Message) session.Result {
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = v.clk.Now()
	}
	res := v.store.Apply(m)
	if res.NeedsResync {
		v.setNotice("notice.resync", nil)
		v.resync()
	}
	if !res.Applied {
		return res
	}

	if res.Changes.Has(session.ChangeIdentity) {
		v.nav.Reset()
		v.ctrl.Reset()
		v.rec.Clear()
	} else if res.Changes.Has(session.ChangePosition) && v.ctrl.Phase() != board.Idle {
		v.ctrl.Reset()
	}

	v.rec.SetActive(res.Status == session.StatusInProgress)
	if res.Clock != nil {
		v.rec.Reset(*res.Clock)
	} else {
		v.rec.Tick()
	}
	if v.disabled() && v.ctrl.Phase() != board.Idle {
		v.ctrl.Reset()
	}

	var cs []cues.Cue
	if m.Source != session.SourceCache && !res.Changes.Has(session.ChangeIdentity) {
		for _, mv := range res.Appended {
			cs = append(cs, cues.ForMove(mv)...)
		}
	}
	if c, ok := cues.ForStatus(res.PrevStatus, res.Status); ok && !res.Changes.Has(session.ChangeIdentity) {
		cs = append(cs, c)
	}

	if m.Source != session.SourceCache && res.Changes&(session.ChangeIdentity|session.ChangeMoves|session.ChangeStatus|session.ChangePlayers) != 0 {
		v.save()
	}
	v.logger.Debug("session_applied",
		zap.String("kind", m.Kind.String()),
		zap.Uint16("changes", uint16(res.Changes)),
		zap.String("status", string(res.Status)),
	)
	v.emit(Update{Changes: res.Changes, Cues: cs})
	return res
}

// resync refetches the full state. Concurrent requests collapse into one.
func (v *View) resync() {
	if v.resyncing {
		return
	}
	v.resyncing = true
	id := v.cfg.SessionID
	v.run(func(ctx context.Context) func() {
		g, err := v.api.FetchSession(ctx, id)
		return func() {
			v.resyncing = false
			if err != nil {
				v.logger.Warn("session_resync_failed", zap.Error(err))
				return
			}
			v.applyResponse(g)
		}
	})
}

func (v *View) save() {
	if v.cache == nil {
		return
	}
	st := v.store.Snapshot()
	if st == nil {
		return
	}
	v.run(func(ctx context.Context) func() {
		if err := v.cache.Save(ctx, st); err != nil {
			v.logger.Debug("cache_save_failed", zap.Error(err))
		}
		return nil
	})
}
