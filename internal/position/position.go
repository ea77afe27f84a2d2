// Package position reads server-provided FEN strings for display and
// input decisions. It never decides legality; the server owns the rules.
package position

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// StartFEN is the standard initial arrangement.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position wraps a decoded FEN.
type Position struct {
	fen string
	pos *nchess.Position
}

// Parse decodes fen. An empty fen is treated as the start position.
func Parse(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		fen = StartFEN
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	game := nchess.NewGame(opt)
	return &Position{fen: fen, pos: game.Position()}, nil
}

// MustParse is Parse for constant inputs.
func MustParse(fen string) *Position {
	p, err := Parse(fen)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Position) FEN() string { return p.fen }

// Board exposes the underlying board for renderers.
func (p *Position) Board() *nchess.Board { return p.pos.Board() }

// Turn is the side to move encoded in the FEN.
func (p *Position) Turn() gamedto.Color {
	return FromLibColor(p.pos.Turn())
}

// PieceAt returns the piece on square, or false when empty or invalid.
func (p *Position) PieceAt(square string) (nchess.Piece, bool) {
	sq, err := ParseSquare(square)
	if err != nil {
		return nchess.NoPiece, false
	}
	pc := p.pos.Board().Piece(sq)
	if pc == nchess.NoPiece {
		return nchess.NoPiece, false
	}
	return pc, true
}

// Owns reports whether square holds a piece of color c.
func (p *Position) Owns(square string, c gamedto.Color) bool {
	pc, ok := p.PieceAt(square)
	if !ok {
		return false
	}
	return FromLibColor(pc.Color()) == c
}

// KingSquare locates the king of color c.
func (p *Position) KingSquare(c gamedto.Color) (string, bool) {
	want := ToLibColor(c)
	for sq, pc := range p.pos.Board().SquareMap() {
		if pc.Type() == nchess.King && pc.Color() == want {
			return sq.String(), true
		}
	}
	return "", false
}

// ParseSquare converts algebraic "e4" into a library square.
func ParseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

// IsFarthestRank reports whether square lies on the promotion rank for c.
func IsFarthestRank(c gamedto.Color, square string) bool {
	sq, err := ParseSquare(square)
	if err != nil {
		return false
	}
	switch c {
	case gamedto.White:
		return sq.Rank() == nchess.Rank8
	case gamedto.Black:
		return sq.Rank() == nchess.Rank1
	}
	return false
}

func FromLibColor(c nchess.Color) gamedto.Color {
	switch c {
	case nchess.White:
		return gamedto.White
	case nchess.Black:
		return gamedto.Black
	}
	return ""
}

func ToLibColor(c gamedto.Color) nchess.Color {
	switch c {
	case gamedto.White:
		return nchess.White
	case gamedto.Black:
		return nchess.Black
	}
	return nchess.NoColor
}
