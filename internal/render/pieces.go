package render

import (
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed pieces/*.svg
var pieceFiles embed.FS

// piece colors substituted into the {fill}/{stroke} placeholders
var pieceInks = map[nchess.Color][2]string{
	nchess.White: {"#f8f8f4", "#1c1c1c"},
	nchess.Black: {"#2b2b2b", "#0a0a0a"},
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := pieceAssetName(piece.Type())
	if name == "" {
		return nil, fmt.Errorf("no asset for piece %v", piece)
	}
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	ink := pieceInks[piece.Color()]
	svg := strings.NewReplacer("{fill}", ink[0], "{stroke}", ink[1]).Replace(string(data))

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

func pieceAssetName(t nchess.PieceType) string {
	var s string
	switch t {
	case nchess.King:
		s = "K"
	case nchess.Queen:
		s = "Q"
	case nchess.Rook:
		s = "R"
	case nchess.Bishop:
		s = "B"
	case nchess.Knight:
		s = "N"
	case nchess.Pawn:
		s = "P"
	default:
		return ""
	}
	return "pieces/" + s + ".svg"
}
