package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Canvas is the RGBA output of one render. It is not touched by the renderer
// after Render returns; ownership passes to the caller.
type Canvas struct {
	img     *image.NRGBA
	painted int
	step    int
}

// NewCanvas allocates a fully transparent canvas.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Image exposes the underlying bitmap.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// Pix returns the width*height*4 RGBA bytes, row major.
func (c *Canvas) Pix() []byte { return c.img.Pix }

// At returns the pixel at (x, y).
func (c *Canvas) At(x, y int) color.NRGBA { return c.img.NRGBAAt(x, y) }

// Painted returns the number of step blocks that were filled.
func (c *Canvas) Painted() int { return c.painted }

// Step returns the pixel step used for the render, 0 for a blank canvas.
func (c *Canvas) Step() int { return c.step }

// Transparent reports whether no pixel has any alpha.
func (c *Canvas) Transparent() bool {
	pix := c.img.Pix
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 {
			return false
		}
	}
	return true
}

// fill paints a size x size block at (x, y) clipped to the canvas.
func (c *Canvas) fill(x, y, size int, col color.NRGBA) {
	w, h := c.Width(), c.Height()
	for dy := 0; dy < size && y+dy < h; dy++ {
		off := c.img.PixOffset(x, y+dy)
		for dx := 0; dx < size && x+dx < w; dx++ {
			i := off + dx*4
			c.img.Pix[i], c.img.Pix[i+1], c.img.Pix[i+2], c.img.Pix[i+3] = col.R, col.G, col.B, col.A
		}
	}
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// PNG returns the PNG encoding of the canvas.
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ANSI renders a terminal preview cols characters wide. Each character samples
// the pixel at the center of its cell; terminal cells are about twice as tall
// as wide so rows are halved.
func (c *Canvas) ANSI(cols int) string {
	w, h := c.Width(), c.Height()
	if cols <= 0 || w == 0 || h == 0 {
		return ""
	}
	if cols > w {
		cols = w
	}
	rows := max(1, cols*h/w/2)
	cellW := float64(w) / float64(cols)
	cellH := float64(h) / float64(rows)

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			px := c.At(int((float64(col)+0.5)*cellW), int((float64(r)+0.5)*cellH))
			if px.A == 0 {
				sb.WriteByte(' ')
				continue
			}
			hex := fmt.Sprintf("#%02x%02x%02x", px.R, px.G, px.B)
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("█"))
		}
		if r < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
