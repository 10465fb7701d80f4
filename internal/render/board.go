package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrEmptyPosition = errors.New("empty position")

// Options controls the HUD and orientation of a rendered board.
type Options struct {
	WhiteBottom bool
	White       string // player names
	Black       string
	WhiteClock  string
	BlackClock  string
	WhiteToMove bool
}

// Renderer turns a FEN position into a PNG.
type Renderer struct {
	squareSize int
}

func NewRenderer(squareSize int) *Renderer {
	if squareSize < 16 {
		squareSize = 48
	}
	return &Renderer{squareSize: squareSize}
}

func (r *Renderer) RenderPNG(ctx context.Context, position string, opts Options) ([]byte, error) {
	board, err := parseBoard(position)
	if err != nil {
		return nil, err
	}

	const (
		margin    = 20
		hudHeight = 26
	)
	boardSize := r.squareSize * 8
	totalWidth := boardSize + margin*2
	totalHeight := boardSize + margin*2 + hudHeight*2
	origin := image.Point{X: margin, Y: margin + hudHeight}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, r.squareSize, origin, opts.WhiteBottom)
	if err := drawPieces(img, board, r.squareSize, origin, opts.WhiteBottom); err != nil {
		return nil, err
	}
	drawCoordinates(img, r.squareSize, origin, margin, opts.WhiteBottom)

	// the player at the bottom of the board gets the bottom HUD line
	topName, topClock, topToMove := opts.Black, opts.BlackClock, !opts.WhiteToMove
	bottomName, bottomClock, bottomToMove := opts.White, opts.WhiteClock, opts.WhiteToMove
	if !opts.WhiteBottom {
		topName, topClock, topToMove, bottomName, bottomClock, bottomToMove =
			bottomName, bottomClock, bottomToMove, topName, topClock, topToMove
	}
	drawHUDLine(img, ClockLabel(topName, topClock), topToMove, image.Pt(margin, margin+hudHeight-8))
	drawHUDLine(img, ClockLabel(bottomName, bottomClock), bottomToMove, image.Pt(margin, origin.Y+boardSize+hudHeight-4))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

// ClockLabel formats a clock as "<name>: <seconds>".
func ClockLabel(name, seconds string) string {
	if strings.TrimSpace(name) == "" {
		return seconds
	}
	return name + ": " + seconds
}

// ASCII draws position as an 8x8 text grid with rank and file labels.
func ASCII(position string, whiteBottom bool) (string, error) {
	board, err := parseBoard(position)
	if err != nil {
		return "", err
	}
	squares := board.SquareMap()
	ranks, files := orderedAxes(whiteBottom)

	var b strings.Builder
	for _, rank := range ranks {
		b.WriteString(rank.String())
		b.WriteByte(' ')
		for _, file := range files {
			piece := squares[nchess.NewSquare(file, rank)]
			b.WriteByte(' ')
			if piece == nchess.NoPiece {
				b.WriteByte('.')
			} else {
				b.WriteByte(pieceLetter(piece))
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("  ")
	for _, file := range files {
		b.WriteByte(' ')
		b.WriteString(file.String())
	}
	b.WriteByte('\n')
	return b.String(), nil
}

func parseBoard(position string) (*nchess.Board, error) {
	position = strings.TrimSpace(position)
	if position == "" {
		return nil, ErrEmptyPosition
	}
	option, err := nchess.FEN(position)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", position, err)
	}
	game := nchess.NewGame(option)
	return game.Position().Board(), nil
}

var (
	backgroundColor  = color.RGBA{36, 39, 52, 255}
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	coordinateColor  = color.RGBA{8, 214, 120, 255}
	hudTextColor     = color.RGBA{204, 210, 236, 255}
	hudActiveColor   = color.RGBA{255, 228, 120, 255}
	activeMarkerFill = color.RGBA{255, 228, 120, 255}
)

func orderedAxes(whiteBottom bool) ([]nchess.Rank, []nchess.File) {
	ranks := []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files := []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
	if !whiteBottom {
		for i, j := 0, 7; i < j; i, j = i+1, j-1 {
			ranks[i], ranks[j] = ranks[j], ranks[i]
			files[i], files[j] = files[j], files[i]
		}
	}
	return ranks, files
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point, whiteBottom bool) {
	ranks, files := orderedAxes(whiteBottom)
	for row, rank := range ranks {
		for col, file := range files {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			clr := squareColor(nchess.NewSquare(file, rank))
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point, whiteBottom bool) error {
	boardMap := board.SquareMap()
	ranks, files := orderedAxes(whiteBottom)
	for row, rank := range ranks {
		for col, file := range files {
			piece := boardMap[nchess.NewSquare(file, rank)]
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int, whiteBottom bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()
	ranks, files := orderedAxes(whiteBottom)

	boardEndY := origin.Y + len(ranks)*squareSize
	for row, rank := range ranks {
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, baseline)
	}
	for col, file := range files {
		center := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), center, boardEndY+ascent+2)
	}
}

func drawHUDLine(dst *image.RGBA, text string, active bool, baseline image.Point) {
	clr := hudTextColor
	if active {
		clr = hudActiveColor
		marker := image.Rect(baseline.X-12, baseline.Y-9, baseline.X-4, baseline.Y-1)
		imagedraw.Draw(dst, marker, image.NewUniform(activeMarkerFill), image.Point{}, imagedraw.Src)
	}
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13, Src: image.NewUniform(clr)}
	drawer.Dot = fixed.P(baseline.X, baseline.Y)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
