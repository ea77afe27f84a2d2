package board

import (
	nchess "github.com/corentings/chess/v2"
	"github.com/park285/IgKnight-client/internal/position"
)

// PromotionPolicy chooses the promotion piece for a move, or "" if the
// move is not a promotion.
type PromotionPolicy interface {
	Promotion(piece nchess.Piece, destination string) string
}

// AutoQueen always promotes to a queen.
type AutoQueen struct{}

func (AutoQueen) Promotion(piece nchess.Piece, destination string) string {
	if piece.Type() != nchess.Pawn {
		return ""
	}
	if !position.IsFarthestRank(position.FromLibColor(piece.Color()), destination) {
		return ""
	}
	return "Q"
}
