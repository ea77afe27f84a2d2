package position

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

func TestParseEmptyIsStart(t *testing.T) {
	p, err := Parse("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Turn() != gamedto.White {
		t.Fatalf("turn=%s", p.Turn())
	}
	pc, ok := p.PieceAt("e2")
	if !ok || pc.Type() != nchess.Pawn || pc.Color() != nchess.White {
		t.Fatalf("e2 should hold a white pawn, got %v ok=%v", pc, ok)
	}
	if _, ok := p.PieceAt("e4"); ok {
		t.Fatalf("e4 should be empty")
	}
	if _, ok := p.PieceAt("z9"); ok {
		t.Fatalf("invalid square must report empty")
	}
}

func TestOwnsAndKingSquare(t *testing.T) {
	p := MustParse(StartFEN)
	if !p.Owns("g8", gamedto.Black) {
		t.Fatalf("g8 is black")
	}
	if p.Owns("g8", gamedto.White) {
		t.Fatalf("g8 is not white")
	}
	sq, ok := p.KingSquare(gamedto.Black)
	if !ok || sq != "e8" {
		t.Fatalf("black king at %q ok=%v", sq, ok)
	}
}

func TestIsFarthestRank(t *testing.T) {
	cases := []struct {
		c    gamedto.Color
		sq   string
		want bool
	}{
		{gamedto.White, "e8", true},
		{gamedto.White, "e1", false},
		{gamedto.Black, "a1", true},
		{gamedto.Black, "a8", false},
		{gamedto.White, "bad", false},
	}
	for _, tc := range cases {
		if got := IsFarthestRank(tc.c, tc.sq); got != tc.want {
			t.Fatalf("IsFarthestRank(%s,%s)=%v want %v", tc.c, tc.sq, got, tc.want)
		}
	}
}

func TestDeriveTags(t *testing.T) {
	tags, err := DeriveTags(StartFEN, "e2", "e4", "")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if tags.Capture || tags.Castle || tags.Promotion {
		t.Fatalf("quiet move tagged: %+v", tags)
	}
	if tags.Piece != "PAWN" {
		t.Fatalf("piece=%q", tags.Piece)
	}

	castle := "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	tags, err = DeriveTags(castle, "e1", "g1", "")
	if err != nil {
		t.Fatalf("derive castle: %v", err)
	}
	if !tags.Castle {
		t.Fatalf("expected castle tag")
	}

	promo := "8/4P3/8/8/8/8/k7/4K3 w - - 0 1"
	tags, err = DeriveTags(promo, "e7", "e8", "q")
	if err != nil {
		t.Fatalf("derive promo: %v", err)
	}
	if !tags.Promotion {
		t.Fatalf("expected promotion tag")
	}

	capture := "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2"
	tags, err = DeriveTags(capture, "e4", "d5", "")
	if err != nil {
		t.Fatalf("derive capture: %v", err)
	}
	if !tags.Capture {
		t.Fatalf("expected capture tag")
	}
}
