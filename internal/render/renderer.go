// Package render draws match snapshots as PNG images.
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

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/match"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type BoardRenderer interface {
	RenderPNG(ctx context.Context, snap match.Snapshot) ([]byte, error)
}

type svgBoardRenderer struct {
	squareSize int
}

// NewSVGBoardRenderer returns a renderer with 72px squares.
func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{squareSize: 72}
}

const (
	sideMargin   = 36
	topMargin    = 64
	bottomMargin = 36
	panelHeight  = 32
	gapToBoard   = 14
	panelRadius  = 10
	panelPadding = 20
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, snap match.Snapshot) ([]byte, error) {
	squareSize := r.squareSize
	boardSize := squareSize * bonk.Size
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, hudText(snap), boardRect)
	drawSquares(img, squareSize, origin)
	drawHighlight(img, snap, squareSize, origin)
	if err := drawPieces(img, &snap.Board, squareSize, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, origin)

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
	backgroundColor     = color.RGBA{R: 24, G: 26, B: 38, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlight  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	bonkedSquareColor   = color.NRGBA{R: 230, G: 70, B: 60, A: 120}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudShadowColor      = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func hudText(snap match.Snapshot) string {
	name := func(p *match.PlayerView) string {
		if p == nil || strings.TrimSpace(p.Username) == "" {
			return "?"
		}
		return p.Username
	}
	players := name(snap.White) + " vs " + name(snap.Black)
	switch {
	case snap.GameOver && snap.Winner.Valid():
		return fmt.Sprintf("%s | %s wins (%s)", players, snap.Winner, snap.Reason)
	case snap.GameOver:
		return fmt.Sprintf("%s | %s", players, snap.Reason)
	case snap.Status == match.StatusWaiting:
		return players + " | waiting"
	default:
		return fmt.Sprintf("%s | %s to move", players, snap.CurrentTurn)
	}
}

func squareColor(row, col int) color.Color {
	if (row+col)%2 == 1 {
		return darkSquare
	}
	return lightSquare
}

func squareRect(sq bonk.Square, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + sq.Col*squareSize
	y := origin.Y + sq.Row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst *image.RGBA, squareSize int, origin image.Point) {
	for row := 0; row < bonk.Size; row++ {
		for col := 0; col < bonk.Size; col++ {
			rect := squareRect(bonk.Square{Row: row, Col: col}, squareSize, origin)
			imagedraw.Draw(dst, rect, image.NewUniform(squareColor(row, col)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst *image.RGBA, board *bonk.Board, squareSize int, origin image.Point) error {
	for row := 0; row < bonk.Size; row++ {
		for col := 0; col < bonk.Size; col++ {
			sq := bonk.Square{Row: row, Col: col}
			p := board.At(sq)
			if p.Empty() {
				continue
			}
			img, err := renderPieceImage(p, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(sq, squareSize, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawHighlight marks the last move and any squares it bonked clear.
func drawHighlight(img *image.RGBA, snap match.Snapshot, squareSize int, origin image.Point) {
	if len(snap.MoveHistory) == 0 {
		return
	}
	last := snap.MoveHistory[len(snap.MoveHistory)-1]
	for _, rm := range last.Removed {
		drawSquareOverlay(img, rm.Square, squareSize, origin, bonkedSquareColor)
	}
	if last.Color == bonk.Black {
		drawArrow(img, last.From, last.To, squareSize, origin, blackMoveArrow)
		return
	}
	drawSquareOverlay(img, last.From, squareSize, origin, whiteMoveHighlight)
	drawSquareOverlay(img, last.To, squareSize, origin, whiteMoveHighlight)
}

func drawHUD(img *image.RGBA, text string, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	width := drawer.MeasureString(text).Round() + panelPadding*2
	if width > boardRect.Dx() {
		width = boardRect.Dx()
		text = truncateWithEllipsis(face, text, width-panelPadding*2)
	}
	bottom := boardRect.Min.Y - gapToBoard
	left := boardRect.Min.X + (boardRect.Dx()-width)/2
	rect := image.Rect(left, bottom-panelHeight, left+width, bottom)

	drawRoundedPanel(img, rect.Add(image.Pt(0, 4)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
	drawCenteredString(drawer, rect, text, hudTextPrimary)
}

func drawCoordinates(dst *image.RGBA, squareSize int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + bonk.Size*squareSize

	for i := 0; i < bonk.Size; i++ {
		center := i*squareSize + squareSize/2
		drawCenteredText(drawer, bonk.RankName(i), origin.X-sideMargin/2, origin.Y+center+ascent/2)
		drawCenteredText(drawer, bonk.FileName(i), origin.X+center, boardEndY+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
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
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawSquareOverlay(img *image.RGBA, sq bonk.Square, squareSize int, origin image.Point, clr color.Color) {
	if !sq.OnBoard() {
		return
	}
	imagedraw.Draw(img, squareRect(sq, squareSize, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if r := min(rect.Dx(), rect.Dy()) / 2; radius > r {
		radius = r
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc paints the part of a disc that lies in the corner region
// outside the three rectangles already drawn.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			px, py := center.X+x, center.Y+y
			if x*x+y*y > rSquared {
				continue
			}
			inCore := px >= rect.Min.X+radius && px < rect.Max.X-radius
			inSides := py >= rect.Min.Y+radius && py < rect.Max.Y-radius
			if inCore || inSides || !(image.Point{X: px, Y: py}).In(rect) {
				continue
			}
			blendPixel(img, px, py, clr)
		}
	}
}

func drawArrow(img *image.RGBA, from, to bonk.Square, squareSize int, origin image.Point, clr color.Color) {
	if from == to || !from.OnBoard() || !to.OnBoard() {
		return
	}
	startRect := squareRect(from, squareSize, origin)
	endRect := squareRect(to, squareSize, origin)
	sx := float64(startRect.Min.X + squareSize/2)
	sy := float64(startRect.Min.Y + squareSize/2)
	ex := float64(endRect.Min.X + squareSize/2)
	ey := float64(endRect.Min.Y + squareSize/2)

	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32
	baseX, baseY := sx+dirX*baseLength, sy+dirY*baseLength

	fillQuad(img,
		pointF{sx - perpX*halfWidth, sy - perpY*halfWidth},
		pointF{sx + perpX*halfWidth, sy + perpY*halfWidth},
		pointF{baseX + perpX*halfWidth, baseY + perpY*halfWidth},
		pointF{baseX - perpX*halfWidth, baseY - perpY*halfWidth},
		clr)
	fillTriangleF(img,
		pointF{ex, ey},
		pointF{baseX - perpX*headWidth/2, baseY - perpY*headWidth/2},
		pointF{baseX + perpX*headWidth/2, baseY + perpY*headWidth/2},
		clr)
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

// blendPixel composites clr over the pixel at (x, y) with source-over.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	// RGBA() is alpha-premultiplied; RGBA pixels are premultiplied too.
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}
