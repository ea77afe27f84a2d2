package gameview

import (
	"context"
	"strings"

	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/clock"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/position"
	"github.com/park285/IgKnight-client/internal/session"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// Frame is an immutable picture of the view for presenters.
type Frame struct {
	SessionID string
	Loaded    bool

	// Position is the displayed FEN: live, or the historical one.
	Position     string
	Live         bool
	ViewingIndex int // -1 when live
	Orientation  gamedto.Color
	Seat         gamedto.Color // empty for spectators

	White, Black *session.Player
	Status       session.Status
	StatusText   string
	SideToMove   gamedto.Color
	Rated        bool
	Timed        bool
	BaseTime     string

	Clocks      clock.Reading
	Selection   board.Selection
	LastMove    *session.Move
	CheckSquare string
	Moves       []session.Move
	Disabled    bool

	Connection livefeed.State
	Notice     string
	Chat       []string
}

// Frame builds the current picture on the loop.
func (v *View) Frame(ctx context.Context) (Frame, error) {
	var f Frame
	err := v.call(ctx, func() { f = v.frame() })
	return f, err
}

func (v *View) frame() Frame {
	f := Frame{
		SessionID:    v.cfg.SessionID,
		ViewingIndex: -1,
		Live:         true,
		Orientation:  gamedto.White,
		Connection:   v.conn,
		Clocks:       v.rec.Displayed(),
		Selection:    v.ctrl.Selection(),
		Disabled:     v.disabled(),
	}
	if v.notice != "" && v.clk.Since(v.noticeAt) < noticeTTL {
		f.Notice = v.notice
	}
	for _, c := range v.chat {
		f.Chat = append(f.Chat, v.cat.Text("chat.line", map[string]any{"Author": c.Author(), "Text": c.Text}))
	}

	st := v.store.Snapshot()
	if st == nil {
		f.Position = position.StartFEN
		f.StatusText = v.cat.Text("status.unknown", nil)
		return f
	}
	f.Loaded = true
	f.White, f.Black = st.White, st.Black
	f.Status = st.Status
	f.SideToMove = st.SideToMove
	f.Rated, f.Timed = st.Rated, st.Timed
	if st.Timed {
		f.BaseTime = clock.Format(st.BaseTime)
	}
	f.Moves = st.Moves
	f.Seat = st.ColorOf(v.cfg.User.ID.String())
	if f.Seat == gamedto.Black {
		f.Orientation = gamedto.Black
	}
	f.StatusText = v.statusText(st, f.Seat)

	if view, ok := v.nav.Viewing(); ok {
		f.Live = false
		f.ViewingIndex = view.Index
		f.Position = view.Position
		mv := st.Moves[view.Index]
		f.LastMove = &mv
		f.Notice = v.cat.Text("notice.viewing", map[string]any{"Ply": view.Index + 1, "Total": len(st.Moves)})
		return f
	}
	f.Position = st.Position
	if last, ok := st.LastMove(); ok {
		f.LastMove = &last
	}
	if st.Check && (st.Status == session.StatusInProgress || st.Status == session.StatusCheckmate) {
		if p, err := position.Parse(st.Position); err == nil {
			if sq, ok := p.KingSquare(st.SideToMove); ok {
				f.CheckSquare = sq
			}
		}
	}
	return f
}

func colorName(c gamedto.Color) string {
	switch c {
	case gamedto.White:
		return "White"
	case gamedto.Black:
		return "Black"
	}
	return ""
}

func (v *View) statusText(st *session.State, seat gamedto.Color) string {
	side := colorName(st.SideToMove)
	switch st.Status {
	case session.StatusAwaiting:
		return v.cat.Text("status.waiting", nil)
	case session.StatusInProgress:
		switch {
		case st.Check:
			return v.cat.Text("status.check", map[string]any{"Color": side})
		case seat == "":
			return v.cat.Text("status.turn", map[string]any{"Color": side})
		case seat == st.SideToMove:
			return v.cat.Text("status.your_turn", map[string]any{"Color": side})
		default:
			return v.cat.Text("status.their_turn", map[string]any{"Player": playerName(st, st.SideToMove), "Color": side})
		}
	case session.StatusCheckmate:
		return v.cat.Text("status.checkmate", map[string]any{"Winner": winnerName(st, st.SideToMove.Opponent())})
	case session.StatusStalemate:
		return v.cat.Text("status.stalemate", nil)
	case session.StatusResigned:
		return v.cat.Text("status.resigned", map[string]any{"Winner": winnerName(st, "")})
	case session.StatusTimeout:
		return v.cat.Text("status.timeout", map[string]any{"Winner": winnerName(st, st.SideToMove.Opponent())})
	case session.StatusDraw:
		return v.cat.Text("status.draw", map[string]any{"Reason": strings.ReplaceAll(st.DrawReason, "_", " ")})
	}
	return v.cat.Text("status.unknown", nil)
}

func playerName(st *session.State, c gamedto.Color) string {
	p := st.White
	if c == gamedto.Black {
		p = st.Black
	}
	if p != nil && p.Username != "" {
		return p.Username
	}
	return colorName(c)
}

// winnerName resolves the winner id; fallback is used when the server sent none.
func winnerName(st *session.State, fallback gamedto.Color) string {
	switch {
	case st.Winner != "" && st.White != nil && st.White.ID == st.Winner:
		return playerName(st, gamedto.White)
	case st.Winner != "" && st.Black != nil && st.Black.ID == st.Winner:
		return playerName(st, gamedto.Black)
	case st.Resigned != "" && st.White != nil && st.White.ID == st.Resigned:
		return playerName(st, gamedto.Black)
	case st.Resigned != "" && st.Black != nil && st.Black.ID == st.Resigned:
		return playerName(st, gamedto.White)
	case fallback.Valid():
		return playerName(st, fallback)
	}
	return "?"
}
