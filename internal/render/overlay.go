// Package render draws debug overlays: detected panels tinted by
// confidence with their reading-order position, for eyeballing what the
// detector saw on a page.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/panelworks/panel-detect/internal/detect"
)

const borderThickness = 3

// Overlay renders the page image with every panel outlined in a color
// derived from its confidence (red at 0, green at 1) and labeled with
// its reading-order position.
func Overlay(img image.Image, res detect.PageResult) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	position := make(map[string]int, len(res.Order))
	for i, id := range res.Order {
		position[id] = i + 1
	}

	for _, p := range res.Panels {
		c := confidenceColor(p.Confidence)
		drawBox(out, p.BBox.X, p.BBox.Y, p.BBox.R(), p.BBox.B(), c)

		label := strconv.Itoa(position[p.ID])
		drawLabel(out, p.BBox.X+borderThickness+2, p.BBox.Y+borderThickness+2,
			label, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
	}
	return out
}

// Save writes the overlay to disk; the format follows the extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

// confidenceColor maps [0, 1] onto a red-to-green ramp, blended in HCL
// so the midpoint reads as amber instead of muddy brown.
func confidenceColor(conf float64) color.RGBA {
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	low := colorful.Hcl(30, 0.8, 0.55)  // red
	high := colorful.Hcl(135, 0.7, 0.7) // green
	r, g, b := low.BlendHcl(high, conf).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawBox outlines the rectangle (x0, y0)-(x1, y1) with a fixed border
// thickness, clipped to the image.
func drawBox(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for t := 0; t < borderThickness; t++ {
		for x := x0; x <= x1; x++ {
			setClipped(img, x, y0+t, c)
			setClipped(img, x, y1-t, c)
		}
		for y := y0; y <= y1; y++ {
			setClipped(img, x0+t, y, c)
			setClipped(img, x1-t, y, c)
		}
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	b := img.Bounds()
	if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
		img.Set(x, y, c)
	}
}

// drawLabel draws a small digit label with a 3x5 pixel font. Good enough
// for order numbers; a font library would be overkill here.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	const charWidth = 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
