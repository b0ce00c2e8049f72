package vision

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/panelworks/panel-detect/internal/geometry"
)

// GradientMap is a gradient-magnitude raster with values in [0, 255].
type GradientMap struct {
	Mag []float64
	W   int
	H   int
}

// At returns the magnitude at (x, y), clamped to the nearest edge pixel.
func (g GradientMap) At(x, y int) float64 {
	x = clamp(x, 0, g.W-1)
	y = clamp(y, 0, g.H-1)
	return g.Mag[y*g.W+x]
}

var sobelX = [3][3]float64{
	{-1, 0, 1},
	{-2, 0, 2},
	{-1, 0, 1},
}

var sobelY = [3][3]float64{
	{-1, -2, -1},
	{0, 0, 0},
	{1, 2, 1},
}

// SobelGradient computes a gradient-magnitude map by combining the
// absolute horizontal and vertical Sobel responses with the given weights.
// Weights of 0.5/0.5 reproduce the standard balanced combination. The
// result is clamped to [0, 255].
func SobelGradient(in Intensity, weightX, weightY float64) GradientMap {
	g := GradientMap{Mag: make([]float64, in.W*in.H), W: in.W, H: in.H}
	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := in.At(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			mag := weightX*math.Abs(gx) + weightY*math.Abs(gy)
			if mag > 255 {
				mag = 255
			}
			g.Mag[y*in.W+x] = mag
		}
	}
	return g
}

// CannyGradient computes a binary edge map (0 or 255) using gradient
// magnitude, non-maximum suppression and hysteresis thresholding.
func CannyGradient(in Intensity, thresholdLow, thresholdHigh float64) GradientMap {
	w, h := in.W, in.H
	magnitude := make([]float64, w*h)
	direction := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := in.At(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y*w+x] = math.Hypot(gx, gy)
			direction[y*w+x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression: keep only local maxima along the gradient
	// direction, thinning edges to single-pixel width.
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			angle := direction[y*w+x]
			mag := magnitude[y*w+x]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[y*w+x-1]
				n2 = magnitude[y*w+x+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[(y-1)*w+x+1]
				n2 = magnitude[(y+1)*w+x-1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[(y-1)*w+x]
				n2 = magnitude[(y+1)*w+x]
			default:
				n1 = magnitude[(y-1)*w+x-1]
				n2 = magnitude[(y+1)*w+x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y*w+x] = mag
			}
		}
	}

	// Hysteresis: strong edges always kept, weak edges kept only when
	// adjacent to a strong edge.
	g := GradientMap{Mag: make([]float64, w*h), W: w, H: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			val := suppressed[y*w+x]
			if val >= thresholdHigh {
				g.Mag[y*w+x] = 255
				continue
			}
			if val < thresholdLow {
				continue
			}
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, h-1)
					px := clamp(x+kx, 0, w-1)
					if suppressed[py*w+px] >= thresholdHigh {
						g.Mag[y*w+x] = 255
					}
				}
			}
		}
	}
	return g
}

// MorphologicalClose applies a grayscale 3x3 closing (dilation followed by
// erosion) to bridge small gaps in the edge map.
func MorphologicalClose(g GradientMap) GradientMap {
	dilated := morphFilter(g, math.Max, 0)
	return morphFilter(dilated, math.Min, 255)
}

func morphFilter(g GradientMap, pick func(a, b float64) float64, seed float64) GradientMap {
	out := GradientMap{Mag: make([]float64, g.W*g.H), W: g.W, H: g.H}
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := seed
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v = pick(v, g.At(x+kx, y+ky))
				}
			}
			out.Mag[y*g.W+x] = v
		}
	}
	return out
}

// OtsuThreshold binarizes the gradient map using Otsu's method over a
// 256-bin histogram. Degenerate histograms (a single populated bin) fall
// back to a fixed threshold of 100.
func OtsuThreshold(g GradientMap) []bool {
	var hist [256]int
	for _, v := range g.Mag {
		bin := int(v)
		if bin > 255 {
			bin = 255
		}
		if bin < 0 {
			bin = 0
		}
		hist[bin]++
	}

	total := len(g.Mag)
	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	threshold := -1
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = i
		}
	}
	if threshold < 0 {
		threshold = 100
	}

	mask := make([]bool, len(g.Mag))
	for i, v := range g.Mag {
		mask[i] = v > float64(threshold)
	}
	return mask
}

// MeanAlongBox returns the mean gradient magnitude sampled along the
// border of the given box. Strong values indicate a drawn panel frame.
func MeanAlongBox(g GradientMap, b geometry.BBox) float64 {
	if b.Empty() {
		return 0
	}
	var sum float64
	var n int
	for x := b.X; x <= b.R(); x++ {
		sum += g.At(x, b.Y) + g.At(x, b.B())
		n += 2
	}
	for y := b.Y + 1; y < b.B(); y++ {
		sum += g.At(b.X, y) + g.At(b.R(), y)
		n += 2
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// VarianceAlongLine returns the variance of intensity values sampled along
// a segment. Real gutters are flat background, so a low variance separates
// them from split lines that would cut through artwork.
func VarianceAlongLine(in Intensity, s geometry.Segment) float64 {
	samples := in.SampleLine(s.A.X, s.A.Y, s.B.X, s.B.Y)
	if len(samples) < 2 {
		return 0
	}
	return stat.Variance(samples, nil)
}
