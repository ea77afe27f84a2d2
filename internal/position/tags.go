package position

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Tags classifies a move for cue selection.
type Tags struct {
	Capture   bool
	Castle    bool
	Promotion bool
	Piece     string
}

// DeriveTags decodes the move from the prior position. It is the fallback
// for servers that do not send structured move flags.
func DeriveTags(priorFEN, from, to, promotion string) (Tags, error) {
	p, err := Parse(priorFEN)
	if err != nil {
		return Tags{}, err
	}
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
	mv, err := nchess.UCINotation{}.Decode(p.pos, uci)
	if err != nil {
		return Tags{}, err
	}
	t := Tags{
		Capture:   mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
		Castle:    mv.HasTag(nchess.KingSideCastle) || mv.HasTag(nchess.QueenSideCastle),
		Promotion: mv.Promo() != nchess.NoPieceType,
	}
	if pc, ok := p.PieceAt(from); ok {
		t.Piece = PieceName(pc.Type())
	}
	return t, nil
}

// PieceName spells a piece type the way the server does.
func PieceName(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "KING"
	case nchess.Queen:
		return "QUEEN"
	case nchess.Rook:
		return "ROOK"
	case nchess.Bishop:
		return "BISHOP"
	case nchess.Knight:
		return "KNIGHT"
	case nchess.Pawn:
		return "PAWN"
	}
	return ""
}
