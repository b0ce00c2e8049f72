package vision

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Intensity is a single-channel luminance raster with values in [0, 255].
type Intensity struct {
	Pix []float64
	W   int
	H   int
}

// At returns the intensity at (x, y). Out-of-range coordinates are clamped
// to the nearest edge pixel.
func (in Intensity) At(x, y int) float64 {
	x = clamp(x, 0, in.W-1)
	y = clamp(y, 0, in.H-1)
	return in.Pix[y*in.W+x]
}

// NewIntensity converts an image to a luminance raster. When denoise is
// set, a Gaussian blur is applied first to suppress halftone textures and
// scanner noise.
func NewIntensity(img image.Image, denoise bool) Intensity {
	src := img
	if denoise {
		src = blur.Gaussian(img, 1.0)
	}
	gray := effect.Grayscale(src)

	bounds := gray.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	in := Intensity{Pix: make([]float64, w*h), W: w, H: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := gray.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			in.Pix[y*w+x] = float64(r >> 8)
		}
	}
	return in
}

// Downscale resizes an image so its larger dimension does not exceed
// maxDim, returning the working image and the applied scale factor. A
// maxDim of 0 disables downscaling. The scale factor maps working
// coordinates to original coordinates by division.
func Downscale(img image.Image, maxDim int) (image.Image, float64) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img, 1.0
	}
	scale := float64(maxDim) / float64(max(w, h))
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	return imaging.Resize(img, newW, newH, imaging.Lanczos), scale
}

// SampleLine returns intensity values along the segment from (x0, y0) to
// (x1, y1) using Bresenham traversal.
func (in Intensity) SampleLine(x0, y0, x1, y1 int) []float64 {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy

	samples := make([]float64, 0, max(dx, dy)+1)
	x, y := x0, y0
	for {
		samples = append(samples, in.At(x, y))
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
	return samples
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
