// Package render draws a session frame as a PNG snapshot.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/IgKnight-client/internal/gameview"
	"github.com/park285/IgKnight-client/internal/position"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

const (
	squareSize   = 64
	boardSize    = squareSize * 8
	sideMargin   = 28
	topMargin    = 64
	bottomMargin = 48
	panelRadius  = 8
)

// Options describes one board picture independent of the view.
type Options struct {
	FEN         string
	Flip        bool
	LastFrom    string
	LastTo      string
	Selected    string
	Targets     []string
	CheckSquare string
	Header      string
	TopLabel    string
	BottomLabel string
}

type Renderer struct{}

func New() *Renderer { return &Renderer{} }

// RenderFrame maps a frame onto Options and renders it.
func (r *Renderer) RenderFrame(fr gameview.Frame) ([]byte, error) {
	opts := Options{
		FEN:         fr.Position,
		Flip:        fr.Orientation == gamedto.Black,
		Selected:    fr.Selection.Square,
		Targets:     fr.Selection.Destinations,
		CheckSquare: fr.CheckSquare,
		Header:      fr.StatusText,
	}
	if fr.LastMove != nil {
		opts.LastFrom, opts.LastTo = fr.LastMove.Origin, fr.LastMove.Destination
	}
	top, bottom := gamedto.Black, gamedto.White
	if opts.Flip {
		top, bottom = bottom, top
	}
	opts.TopLabel = playerLabel(fr, top)
	opts.BottomLabel = playerLabel(fr, bottom)
	return r.RenderPNG(context.Background(), opts)
}

func playerLabel(fr gameview.Frame, c gamedto.Color) string {
	p := fr.White
	if c == gamedto.Black {
		p = fr.Black
	}
	name := strings.ToLower(string(c))
	if p != nil && p.Username != "" {
		name = p.Username
	}
	return name + "  " + fr.Clocks.Text(c)
}

func (r *Renderer) RenderPNG(ctx context.Context, opts Options) ([]byte, error) {
	pos, err := position.Parse(opts.FEN)
	if err != nil {
		return nil, err
	}
	board := pos.Board()

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	drawHUD(img, opts, origin)
	drawSquares(img, origin, opts.Flip)
	if sq, ok := square(opts.LastFrom); ok {
		drawSquareOverlay(img, sq, origin, opts.Flip, lastMoveFill)
	}
	if sq, ok := square(opts.LastTo); ok {
		drawSquareOverlay(img, sq, origin, opts.Flip, lastMoveFill)
	}
	if sq, ok := square(opts.Selected); ok {
		drawSquareOverlay(img, sq, origin, opts.Flip, selectedFill)
	}
	if sq, ok := square(opts.CheckSquare); ok {
		drawSquareOverlay(img, sq, origin, opts.Flip, checkFill)
	}
	if err := drawPieces(img, board, origin, opts.Flip); err != nil {
		return nil, err
	}
	for _, t := range opts.Targets {
		sq, ok := square(t)
		if !ok {
			continue
		}
		rect := squareRect(sq, origin, opts.Flip)
		center := image.Point{X: rect.Min.X + squareSize/2, Y: rect.Min.Y + squareSize/2}
		radius := squareSize / 7
		if board.Piece(sq) != nchess.NoPiece {
			radius = squareSize / 4
		}
		drawDisc(img, center, radius, targetFill)
	}
	drawCoordinates(img, origin, opts.Flip)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor  = color.RGBA{24, 26, 38, 255}
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	lastMoveFill     = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	selectedFill     = color.NRGBA{R: 120, G: 200, B: 120, A: 150}
	checkFill        = color.NRGBA{R: 230, G: 60, B: 60, A: 170}
	targetFill       = color.NRGBA{R: 30, G: 30, B: 30, A: 110}
	hudPanelColor    = color.NRGBA{R: 36, G: 39, B: 56, A: 250}
	hudTextPrimary   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateColor  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func square(s string) (nchess.Square, bool) {
	if s == "" {
		return nchess.NoSquare, false
	}
	sq, err := position.ParseSquare(s)
	if err != nil {
		return nchess.NoSquare, false
	}
	return sq, true
}

func drawHUD(img *image.RGBA, opts Options, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}
	panel := image.Rect(origin.X, 8, origin.X+boardSize, 32)
	drawRoundedPanel(img, panel, panelRadius, hudPanelColor)
	drawCenteredString(drawer, panel, truncateWithEllipsis(face, opts.Header, panel.Dx()-16), hudTextPrimary)

	drawer.Src = image.NewUniform(hudTextSecondary)
	drawer.Dot = fixed.P(origin.X, topMargin-10)
	drawer.DrawString(opts.TopLabel)
	drawer.Dot = fixed.P(origin.X, topMargin+boardSize+bottomMargin-8)
	drawer.DrawString(opts.BottomLabel)
}

func drawSquares(dst imagedraw.Image, origin image.Point, flip bool) {
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		clr := lightSquare
		if (int(sq.File())+int(sq.Rank()))%2 == 0 {
			clr = darkSquare
		}
		imagedraw.Draw(dst, squareRect(sq, origin, flip), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point, flip bool) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin, flip), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, origin image.Point, flip bool, clr color.Color) {
	imagedraw.Draw(img, squareRect(sq, origin, flip), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(dst imagedraw.Image, origin image.Point, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		file := nchess.File(i)
		rank := nchess.Rank(i)
		fileRect := squareRect(nchess.NewSquare(file, nchess.Rank1), origin, flip)
		rankRect := squareRect(nchess.NewSquare(nchess.FileA, rank), origin, flip)
		drawCenteredText(drawer, file.String(), fileRect.Min.X+squareSize/2, origin.Y+boardSize+ascent+2)
		drawCenteredText(drawer, rank.String(), origin.X-sideMargin/2, rankRect.Min.Y+squareSize/2+ascent/2)
	}
}

// squareRect maps sq to pixels; flip puts rank 1 at the top.
func squareRect(sq nchess.Square, origin image.Point, flip bool) image.Rectangle {
	col, row := int(sq.File()), 7-int(sq.Rank())
	if flip {
		col, row = 7-col, 7-row
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if limit := min(rect.Dx(), rect.Dy()) / 2; radius > limit {
		radius = limit
	}
	fill := image.NewUniform(clr)
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, c, radius, clr, rect)
	}
}

// drawQuarterDisc fills only the corner pixels outside the rectangles
// already painted, so translucent colors do not stack.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, clr color.Color, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	sides := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			p := image.Point{X: center.X + x, Y: center.Y + y}
			if x*x+y*y > r2 || !p.In(rect) || p.In(inner) || p.In(sides) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

// blendPixel composites clr over the pixel at (x, y).
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	a := float64(sa) / 65535.0
	dst := img.RGBAAt(x, y)
	mix := func(s uint32, d uint8) uint8 {
		return floatToUint8(float64(s)/257.0 + float64(d)*(1-a))
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: floatToUint8(a*255 + float64(dst.A)*(1-a)),
	})
}

func floatToUint8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, v+0.5)))
}
