package framepresenter

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/dustin/go-humanize"

	"github.com/park285/IgKnight-client/internal/board"
	"github.com/park285/IgKnight-client/internal/clock"
	"github.com/park285/IgKnight-client/internal/cues"
	"github.com/park285/IgKnight-client/internal/gameview"
	"github.com/park285/IgKnight-client/internal/msgcat"
	"github.com/park285/IgKnight-client/internal/position"
	"github.com/park285/IgKnight-client/internal/session"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

const (
	recentMovesLimit = 8
	chatTail         = 5
)

// Formatter renders frames and listings as terminal text.
type Formatter struct {
	cat *msgcat.Catalog
	now func() time.Time
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Formatter{cat: cat, now: time.Now}
}

// Board draws the displayed position plus players, clocks and status.
//
// Square markers: [x] selected, (x) or · destination, <x> last move, !x! check.
func (f *Formatter) Board(fr gameview.Frame) string {
	var sb strings.Builder
	top, bottom := gamedto.Black, gamedto.White
	if fr.Orientation == gamedto.Black {
		top, bottom = gamedto.White, gamedto.Black
	}

	sb.WriteString(f.playerLine(fr, top))
	sb.WriteString("\n")
	f.writeGrid(&sb, fr)
	sb.WriteString(f.playerLine(fr, bottom))
	sb.WriteString("\n\n")

	sb.WriteString(fr.StatusText)
	if fr.Connection != 0 {
		sb.WriteString("  [")
		sb.WriteString(fr.Connection.String())
		sb.WriteString("]")
	}
	sb.WriteString("\n")
	if fr.Timed || fr.Rated {
		sb.WriteString("• ")
		sb.WriteString(formatControl(fr))
		sb.WriteString("\n")
	}
	sb.WriteString("• ")
	sb.WriteString(formatRecentMoves(fr.Moves, fr.ViewingIndex))
	sb.WriteString("\n")
	if fr.Notice != "" {
		sb.WriteString("» ")
		sb.WriteString(fr.Notice)
		sb.WriteString("\n")
	}
	chat := fr.Chat
	if len(chat) > chatTail {
		chat = chat[len(chat)-chatTail:]
	}
	for _, line := range chat {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Formatter) writeGrid(sb *strings.Builder, fr gameview.Frame) {
	pos, err := position.Parse(fr.Position)
	if err != nil {
		sb.WriteString("  (invalid position)\n")
		return
	}
	dests := make(map[string]bool, len(fr.Selection.Destinations))
	for _, d := range fr.Selection.Destinations {
		dests[d] = true
	}
	var last map[string]bool
	if fr.LastMove != nil {
		last = map[string]bool{fr.LastMove.Origin: true, fr.LastMove.Destination: true}
	}
	selected := ""
	if fr.Selection.Phase != board.Idle {
		selected = fr.Selection.Square
	}

	files := []byte("abcdefgh")
	ranks := []byte("87654321")
	if fr.Orientation == gamedto.Black {
		files = []byte("hgfedcba")
		ranks = []byte("12345678")
	}
	for _, r := range ranks {
		sb.WriteByte(r)
		sb.WriteByte(' ')
		for _, fl := range files {
			sq := string([]byte{fl, r})
			p, _ := pos.PieceAt(sq)
			glyph := pieceGlyph(p)
			switch {
			case sq == selected:
				sb.WriteString("[" + glyph + "]")
			case dests[sq] && glyph == "·":
				sb.WriteString(" * ")
			case dests[sq]:
				sb.WriteString("(" + glyph + ")")
			case sq == fr.CheckSquare:
				sb.WriteString("!" + glyph + "!")
			case last[sq]:
				sb.WriteString("<" + glyph + ">")
			default:
				sb.WriteString(" " + glyph + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  ")
	for _, fl := range files {
		sb.WriteString(" " + string(fl) + " ")
	}
	sb.WriteByte('\n')
}

func (f *Formatter) playerLine(fr gameview.Frame, c gamedto.Color) string {
	p := fr.White
	if c == gamedto.Black {
		p = fr.Black
	}
	name := f.cat.Text("listing.nobody", nil)
	if p != nil && p.Username != "" {
		name = p.Username
	}
	marker := "  "
	if fr.Clocks.Running == c {
		marker = "▶ "
	}
	line := fmt.Sprintf("%s%-16s %s", marker, name+" ("+strings.ToLower(string(c))+")", fr.Clocks.Text(c))
	if fr.Clocks.Known {
		if band := clock.BandFor(fr.Clocks.For(c)); band != clock.BandNormal {
			line += " " + bandBadge(band)
		}
	}
	if c == fr.Seat {
		line += "  (you)"
	}
	return line
}

func bandBadge(b clock.Band) string {
	switch b {
	case clock.BandCritical:
		return "‼"
	case clock.BandWarning:
		return "!"
	case clock.BandLow:
		return "·"
	}
	return ""
}

var glyphs = map[nchess.PieceType][2]string{
	nchess.King:   {"♔", "♚"},
	nchess.Queen:  {"♕", "♛"},
	nchess.Rook:   {"♖", "♜"},
	nchess.Bishop: {"♗", "♝"},
	nchess.Knight: {"♘", "♞"},
	nchess.Pawn:   {"♙", "♟"},
}

func pieceGlyph(p nchess.Piece) string {
	if p == nchess.NoPiece {
		return "·"
	}
	g, ok := glyphs[p.Type()]
	if !ok {
		return "?"
	}
	if p.Color() == nchess.Black {
		return g[1]
	}
	return g[0]
}

func formatControl(fr gameview.Frame) string {
	parts := make([]string, 0, 2)
	if fr.Timed {
		parts = append(parts, fr.BaseTime)
	} else {
		parts = append(parts, "untimed")
	}
	if fr.Rated {
		parts = append(parts, "rated")
	} else {
		parts = append(parts, "casual")
	}
	return strings.Join(parts, " | ")
}

// formatRecentMoves numbers the tail of the move list and brackets the
// ply on display when browsing history.
func formatRecentMoves(moves []session.Move, viewing int) string {
	if len(moves) == 0 {
		return "-"
	}
	start := 0
	if len(moves) > recentMovesLimit {
		start = len(moves) - recentMovesLimit
	}
	if viewing >= 0 && viewing < start {
		start = viewing
	}
	var parts []string
	if start > 0 {
		parts = append(parts, "…")
	}
	for i := start; i < len(moves); i++ {
		m := moves[i]
		text := m.Notation
		if text == "" {
			text = m.Origin + m.Destination
		}
		if m.Ply%2 == 1 {
			text = fmt.Sprintf("%d.%s", (m.Ply+1)/2, text)
		}
		if i == viewing {
			text = "[" + text + "]"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// Cues renders cue tags as a compact line, e.g. "♪ capture check".
func (f *Formatter) Cues(cs []cues.Cue) string {
	if len(cs) == 0 {
		return ""
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return "♪ " + strings.Join(parts, " ")
}

// Listing renders a session list, newest activity first as given.
func (f *Formatter) Listing(games []gamedto.GameResponse) string {
	var sb strings.Builder
	sb.WriteString(f.cat.Text("listing.header", map[string]any{"Count": len(games)}))
	sb.WriteString("\n")
	for _, g := range games {
		status, _ := session.ParseStatus(g.Status)
		sb.WriteString(f.cat.Text("listing.row", map[string]any{
			"ID":      g.ID.String(),
			"Status":  strings.ToLower(string(status)),
			"White":   f.name(g.WhitePlayer),
			"Black":   f.name(g.BlackPlayer),
			"Control": f.control(g),
			"Updated": f.when(g),
		}))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Formatter) name(p *gamedto.PlayerInfo) string {
	if p == nil || p.Username == "" {
		return f.cat.Text("listing.nobody", nil)
	}
	return p.Username
}

func (f *Formatter) control(g gamedto.GameResponse) string {
	if g.TimeControl == nil || *g.TimeControl <= 0 {
		return f.cat.Text("listing.untimed", nil)
	}
	inc := 0
	if g.TimeIncrement != nil {
		inc = *g.TimeIncrement
	}
	return f.cat.Text("listing.control", map[string]any{"Minutes": *g.TimeControl / 60, "Increment": inc})
}

func (f *Formatter) when(g gamedto.GameResponse) string {
	t := g.UpdatedAt.Time
	if t.IsZero() {
		t = g.CreatedAt.Time
	}
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, f.now(), "ago", "from now")
}
