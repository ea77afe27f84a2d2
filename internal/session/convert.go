package session

import (
	"strings"
	"time"

	"github.com/park285/IgKnight-client/internal/position"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// FromDTO builds a State from a full server snapshot.
func FromDTO(g *gamedto.GameResponse) *State {
	if g == nil {
		return nil
	}
	st := &State{
		ID:         g.ID.String(),
		White:      playerFrom(g.WhitePlayer),
		Black:      playerFrom(g.BlackPlayer),
		Position:   strings.TrimSpace(g.FENPosition),
		SideToMove: gamedto.ParseColor(g.CurrentTurn),
		Winner:     g.WinnerID.String(),
		Check:      g.IsCheck,
		Rated:      g.IsRated,
		CreatedAt:  g.CreatedAt.Time,
		UpdatedAt:  g.UpdatedAt.Time,
		EndedAt:    g.EndedAt.Time,
	}
	st.Status, st.DrawReason = ParseStatus(g.Status)
	if st.Position == "" {
		st.Position = position.StartFEN
	}
	if g.TimeControl != nil && *g.TimeControl > 0 {
		st.Timed = true
		st.BaseTime = seconds(*g.TimeControl)
	}
	if g.TimeIncrement != nil {
		st.Increment = seconds(*g.TimeIncrement)
	}
	if g.WhiteTimeRemaining != nil && g.BlackTimeRemaining != nil {
		st.Remaining = Remaining{White: seconds(*g.WhiteTimeRemaining), Black: seconds(*g.BlackTimeRemaining), Known: true}
	}
	if !st.SideToMove.Valid() {
		if p, err := position.Parse(st.Position); err == nil {
			st.SideToMove = p.Turn()
		}
	}
	prior := position.StartFEN
	st.Moves = make([]Move, 0, len(g.Moves))
	for i, m := range g.Moves {
		rec := Move{
			Ply:               i + 1,
			Origin:            strings.ToLower(m.From),
			Destination:       strings.ToLower(m.To),
			Promotion:         strings.ToUpper(m.Promotion),
			Piece:             m.Piece,
			Notation:          m.SAN,
			ResultingPosition: m.ResultingFEN,
			Check:             m.IsCheck || m.IsCheckmate,
			Checkmate:         m.IsCheckmate,
		}
		fillTags(&rec, prior, m.IsCapture, m.IsCastle, m.IsPromotion)
		if rec.ResultingPosition != "" {
			prior = rec.ResultingPosition
		}
		st.Moves = append(st.Moves, rec)
	}
	return st
}

// fillTags prefers structured flags from the server and falls back to
// decoding the move against the prior position.
func fillTags(rec *Move, prior string, capture, castle, promo *bool) {
	needDecode := prior != "" && (capture == nil || castle == nil || promo == nil || rec.Piece == "")
	var tags position.Tags
	decoded := false
	if needDecode {
		if t, err := position.DeriveTags(prior, rec.Origin, rec.Destination, strings.ToLower(rec.Promotion)); err == nil {
			tags = t
			decoded = true
		}
	}
	rec.Capture = pick(capture, tags.Capture)
	rec.Castle = pick(castle, tags.Castle || isCastleNotation(rec.Notation))
	rec.Promoted = pick(promo, tags.Promotion || rec.Promotion != "")
	if rec.Piece == "" && decoded {
		rec.Piece = tags.Piece
	}
}

func pick(flag *bool, fallback bool) bool {
	if flag != nil {
		return *flag
	}
	return fallback
}

func isCastleNotation(n string) bool {
	n = strings.TrimRight(n, "+#")
	return n == "O-O" || n == "O-O-O"
}

func playerFrom(p *gamedto.PlayerInfo) *Player {
	if p == nil || p.ID.IsZero() {
		return nil
	}
	return &Player{ID: p.ID.String(), Username: p.Username}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
