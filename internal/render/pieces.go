package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const svgHead = `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`

// Piece outlines on a 45x45 grid.
var pieceTemplates = map[bonk.Kind]string{
	bonk.Pawn: svgHead + `<g fill="{{fill}}" stroke="{{stroke}}" stroke-width="1.5">
<circle cx="22.5" cy="13" r="5"/>
<path d="M 17,22 L 28,22 L 31,33 L 14,33 Z"/>
<path d="M 11,38 L 34,38 L 34,34 L 11,34 Z"/>
</g></svg>`,
	bonk.Knight: svgHead + `<g fill="{{fill}}" stroke="{{stroke}}" stroke-width="1.5">
<path d="M 22,10 C 32,11 38,18 37,38 L 15,38 C 15,29 25,32 23,18 L 17,24 L 12,26 L 9,21 L 17,12 Z"/>
<circle cx="15" cy="18" r="1.2" fill="{{detail}}"/>
</g></svg>`,
	bonk.Bishop: svgHead + `<g fill="{{fill}}" stroke="{{stroke}}" stroke-width="1.5">
<circle cx="22.5" cy="8" r="2.5"/>
<ellipse cx="22.5" cy="20" rx="7.5" ry="9"/>
<path d="M 15,30 L 30,30 L 30,33 L 15,33 Z"/>
<path d="M 9,38 L 36,38 L 36,35 L 9,35 Z"/>
<path d="M 20,20 L 25,20 M 22.5,17.5 L 22.5,22.5" stroke="{{detail}}"/>
</g></svg>`,
	bonk.Rook: svgHead + `<g fill="{{fill}}" stroke="{{stroke}}" stroke-width="1.5">
<path d="M 9,39 L 36,39 L 36,36 L 9,36 Z"/>
<path d="M 12,36 L 12,32 L 33,32 L 33,36 Z"/>
<path d="M 11,14 L 11,9 L 15,9 L 15,11 L 20,11 L 20,9 L 25,9 L 25,11 L 30,11 L 30,9 L 34,9 L 34,14 Z"/>
<path d="M 14,29.5 L 31,29.5 L 31,17 L 14,17 Z"/>
<path d="M 14,29.5 L 12,32 L 33,32 L 31,29.5 Z"/>
<path d="M 11,14 L 34,14 L 31,17 L 14,17 Z"/>
</g></svg>`,
	bonk.Queen: svgHead + `<g fill="{{fill}}" stroke="{{stroke}}" stroke-width="1.5">
<circle cx="6" cy="12" r="2.5"/>
<circle cx="14" cy="9" r="2.5"/>
<circle cx="22.5" cy="8" r="2.5"/>
<circle cx="31" cy="9" r="2.5"/>
<circle cx="39" cy="12" r="2.5"/>
<path d="M 9,26 C 17.5,24.5 30,24.5 36,26 L 38.5,13.5 L 31,25 L 30.7,10.9 L 25.5,24.5 L 22.5,10 L 19.5,24.5 L 14.3,10.9 L 14,25 L 6.5,13.5 Z"/>
<path d="M 9,26 C 9,28 10.5,28 11.5,30 C 12.5,31.5 12.5,31 12,33.5 C 10.5,34.5 11,36 11,36 C 9.5,37.5 11,38.5 11,38.5 C 17.5,39.5 27.5,39.5 34,38.5 C 34,38.5 35.5,37.5 34,36 C 34,36 34.5,34.5 33,33.5 C 32.5,31 32.5,31.5 33.5,30 C 34.5,28 36,28 36,26 C 27.5,24.5 17.5,24.5 9,26 Z"/>
</g></svg>`,
	bonk.King: svgHead + `<g fill="{{fill}}" stroke="{{stroke}}" stroke-width="1.5">
<path d="M 22.5,11.6 L 22.5,6 M 20,8 L 25,8" fill="none"/>
<path d="M 22.5,25 C 22.5,25 27,17.5 25.5,14.5 C 25.5,14.5 24.5,12 22.5,12 C 20.5,12 19.5,14.5 19.5,14.5 C 18,17.5 22.5,25 22.5,25"/>
<path d="M 12.5,37 C 18,40.5 27,40.5 32.5,37 L 32.5,30 C 32.5,30 41.5,25.5 38.5,19.5 C 34.5,13 25,16 22.5,23.5 L 22.5,27 L 22.5,23.5 C 20,16 10.5,13 6.5,19.5 C 3.5,25.5 12.5,30 12.5,30 L 12.5,37"/>
<path d="M 12.5,30 C 18,27 27,27 32.5,30 M 12.5,33.5 C 18,30.5 27,30.5 32.5,33.5" fill="none" stroke="{{detail}}"/>
</g></svg>`,
}

type pieceCacheKey struct {
	kind  bonk.Kind
	color bonk.Color
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(p bonk.Piece) ([]byte, error) {
	tmpl, ok := pieceTemplates[p.Kind]
	if !ok {
		return nil, fmt.Errorf("no artwork for piece kind %q", p.Kind)
	}
	if p.Color == bonk.White {
		return paint(tmpl, "#ffffff", "#000000", "#000000"), nil
	}
	return paint(tmpl, "#000000", "#000000", "#ececec"), nil
}

func renderPieceImage(p bonk.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{kind: p.Kind, color: p.Color, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
