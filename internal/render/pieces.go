package render

import (
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

// Piece outlines on a 45x45 canvas. %[1]s is the body fill, %[2]s the outline.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="14" r="5.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M 17 21 L 28 21 L 31 33 L 14 33 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="11" y="33" width="23" height="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Rook: `<path d="M 11 9 L 15 9 L 15 12 L 20 12 L 20 9 L 25 9 L 25 12 L 30 12 L 30 9 L 34 9 L 34 16 L 11 16 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="14" y="16" width="17" height="16" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="10" y="32" width="25" height="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Knight: `<path d="M 14 38 L 14 30 C 14 24 20 22 21 18 L 15 22 L 11 19 L 18 10 L 20 7 L 23 10 C 30 10 34 17 33 26 L 32 38 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="20" cy="14" r="1.3" fill="%[2]s"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="8" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<ellipse cx="22.5" cy="20" rx="7" ry="9" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M 16 29 L 29 29 L 30 33 L 15 33 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="10" y="33" width="25" height="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.Queen: `<path d="M 9 14 L 14 28 L 17 12 L 22.5 27 L 28 12 L 31 28 L 36 14 L 33 33 L 12 33 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="9" cy="12" r="2.2" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<circle cx="17" cy="10" r="2.2" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<circle cx="28" cy="10" r="2.2" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<circle cx="36" cy="12" r="2.2" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<rect x="11" y="33" width="23" height="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	nchess.King: `<path d="M 21 4 L 24 4 L 24 8 L 28 8 L 28 11 L 24 11 L 24 15 L 21 15 L 21 11 L 17 11 L 17 8 L 21 8 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.2"/>
<path d="M 12 20 C 12 15 33 15 33 20 L 30 33 L 15 33 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="11" y="33" width="23" height="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(piece nchess.Piece) (string, error) {
	shape, ok := pieceShapes[piece.Type()]
	if !ok {
		return "", fmt.Errorf("no shape for piece %v", piece.Type())
	}
	fill, stroke := "#f8f8f8", "#1a1a1a"
	if piece.Color() == nchess.Black {
		fill, stroke = "#1a1a1a", "#e0e0e0"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	fmt.Fprintf(&b, shape, fill, stroke)
	b.WriteString(`</svg>`)
	return b.String(), nil
}

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
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

// pieceLetter is the FEN letter of piece: upper case for white.
func pieceLetter(piece nchess.Piece) byte {
	var c byte
	switch piece.Type() {
	case nchess.King:
		c = 'k'
	case nchess.Queen:
		c = 'q'
	case nchess.Rook:
		c = 'r'
	case nchess.Bishop:
		c = 'b'
	case nchess.Knight:
		c = 'n'
	case nchess.Pawn:
		c = 'p'
	default:
		return '.'
	}
	if piece.Color() == nchess.White {
		c -= 'a' - 'A'
	}
	return c
}

// PieceCode returns the two-letter code (wP, bN, ...) of the piece on square sq, or ""
// when the square is empty or the position cannot be read.
func PieceCode(position, sq string) string {
	board, err := parseBoard(position)
	if err != nil || len(sq) != 2 {
		return ""
	}
	file := nchess.File(strings.ToLower(sq)[0] - 'a')
	rank := nchess.Rank(sq[1] - '1')
	if file < nchess.FileA || file > nchess.FileH || rank < nchess.Rank1 || rank > nchess.Rank8 {
		return ""
	}
	piece := board.Piece(nchess.NewSquare(file, rank))
	if piece == nchess.NoPiece {
		return ""
	}
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}
	return prefix + strings.ToUpper(string(pieceLetter(piece)))
}
