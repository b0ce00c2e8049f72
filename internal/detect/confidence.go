package detect

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/panelworks/panel-detect/internal/geometry"
	"github.com/panelworks/panel-detect/internal/vision"
)

// Per-panel factor weights. Gutter separation is the strongest signal a
// region is a real panel; split quality only applies to split-produced
// panels and is advisory.
const (
	weightAspect = 1.0
	weightSize   = 1.0
	weightRect   = 0.8
	weightGutter = 1.2
	weightEdge   = 0.7
	weightSplit  = 0.5
)

// scorePanels assigns a confidence to every panel. Each score is a
// weighted average of geometric and photometric factors in [0, 1]; the
// piecewise constants below are part of the scoring contract and must
// not drift between releases, or the escalation threshold changes
// meaning silently.
func scorePanels(panels []Panel, ctx pageContext) []Panel {
	boxes := make([]geometry.BBox, len(panels))
	for i, p := range panels {
		boxes[i] = p.BBox
	}
	pageArea := ctx.w * ctx.h

	for i := range panels {
		p := &panels[i]

		factors := []float64{
			aspectScore(p.BBox),
			sizeScore(p.BBox, pageArea),
			rectangularityScore(*p),
			gutterQualityScore(i, boxes, ctx.w, ctx.h),
			edgeStrengthScore(ctx.gradient, p.BBox),
		}
		weights := []float64{weightAspect, weightSize, weightRect, weightGutter, weightEdge}

		if cov, ok := p.SplitCoverage(); ok {
			factors = append(factors, clamp01(cov))
			weights = append(weights, weightSplit)
		}

		var sum, wsum float64
		for k := range factors {
			sum += factors[k] * weights[k]
			wsum += weights[k]
		}
		p.Confidence = clamp01(sum / wsum)
	}
	return panels
}

// aspectScore penalizes extreme width/height ratios. Ratios between 0.4
// and 2.5 are normal comic panels; past 0.2 or 5.0 the region is almost
// certainly a border strip or a speech-balloon tail. The falloff between
// the bands is linear so near-misses are not punished like outliers.
func aspectScore(b geometry.BBox) float64 {
	if b.H == 0 || b.W == 0 {
		return 0.2
	}
	aspect := float64(b.W) / float64(b.H)
	switch {
	case aspect >= 0.4 && aspect <= 2.5:
		return 1.0
	case aspect >= 0.2 && aspect < 0.4:
		return 0.6 + 0.4*(aspect-0.2)/0.2
	case aspect > 2.5 && aspect <= 5.0:
		return 0.6 + 0.4*(5.0-aspect)/2.5
	case aspect < 0.2:
		return math.Max(0.2, 0.6*aspect/0.2)
	default:
		return math.Max(0.2, 0.6*5.0/aspect)
	}
}

// sizeScore rates the panel's share of the page area. The sweet spot is
// 5% to 50%, ramping down linearly on both sides; a full-page splash
// bottoms out at 0.4 rather than zero.
func sizeScore(b geometry.BBox, pageArea int) float64 {
	if pageArea == 0 {
		return 0.5
	}
	frac := float64(b.Area()) / float64(pageArea)
	switch {
	case frac >= 0.05 && frac <= 0.50:
		return 1.0
	case frac >= 0.03 && frac < 0.05:
		return 0.7 + 0.3*(frac-0.03)/0.02
	case frac >= 0.01 && frac < 0.03:
		return 0.4 + 0.3*(frac-0.01)/0.02
	case frac < 0.01:
		return math.Max(0.2, 0.4*frac/0.01)
	case frac <= 0.70:
		return 0.7 + 0.3*(0.70-frac)/0.20
	case frac <= 0.90:
		return 0.4 + 0.3*(0.90-frac)/0.20
	default:
		return 0.4
	}
}

// rectangularityScore compares the polygon area with the bbox area.
// Panels without polygon detail (grouped or synthesized) get a neutral
// 0.9 rather than a perfect score; a degenerate polygon gets 0.5.
func rectangularityScore(p Panel) float64 {
	if len(p.Polygon) < 3 {
		return 0.9
	}
	polyArea := p.Polygon.Area()
	bboxArea := float64(p.BBox.Area())
	if polyArea <= 0 || bboxArea <= 0 {
		return 0.5
	}
	fill := polyArea / bboxArea
	switch {
	case fill >= 0.90:
		return 1.0
	case fill >= 0.75:
		return 0.7 + 0.3*(fill-0.75)/0.15
	case fill >= 0.50:
		return 0.4 + 0.3*(fill-0.50)/0.25
	default:
		return math.Max(0.2, 0.4*fill/0.50)
	}
}

// gutterQualityScore averages the gap quality toward each neighboring
// panel. A lone panel scores 0.7 (nothing to assess); a panel with no
// neighbors on any side scores 0.75.
func gutterQualityScore(i int, boxes []geometry.BBox, pageW, pageH int) float64 {
	if len(boxes) <= 1 {
		return 0.7
	}
	b := boxes[i]
	var scores []float64
	if n := geometry.LeftNeighbor(i, boxes); n >= 0 {
		scores = append(scores, gapScore(b.X-boxes[n].R(), pageW))
	}
	if n := geometry.RightNeighbor(i, boxes); n >= 0 {
		scores = append(scores, gapScore(boxes[n].X-b.R(), pageW))
	}
	if n := geometry.TopNeighbor(i, boxes); n >= 0 {
		scores = append(scores, gapScore(b.Y-boxes[n].B(), pageH))
	}
	if n := geometry.BottomNeighbor(i, boxes); n >= 0 {
		scores = append(scores, gapScore(boxes[n].Y-b.B(), pageH))
	}
	if len(scores) == 0 {
		return 0.75
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// gapScore rates one gutter. The ideal width is 0.5% to 5% of the page
// dimension; negative gaps are overlaps and penalized hard, and very
// large gaps usually mean a panel went undetected in between.
func gapScore(gap, dimension int) float64 {
	if dimension == 0 {
		return 0.5
	}
	r := float64(gap) / float64(dimension)
	switch {
	case r < 0:
		return math.Max(0.1, 0.5+r*5)
	case r < 0.005:
		return 0.7 + 0.3*r/0.005
	case r <= 0.05:
		return 1.0
	case r <= 0.10:
		return 0.7 + 0.3*(0.10-r)/0.05
	default:
		return math.Max(0.3, 0.7*0.10/r)
	}
}

// edgeStrengthScore measures how strongly the gradient map supports the
// panel border. Mean magnitudes above 64 saturate the score; an ideal
// black border on white paper sits far above that.
func edgeStrengthScore(g vision.GradientMap, b geometry.BBox) float64 {
	m := vision.MeanAlongBox(g, b)
	return clamp01(0.4 + 0.6*math.Min(1, m/64))
}

// pageConfidence aggregates per-panel confidences into the page score:
// the fourth root of the product of the area-weighted mean confidence, a
// panel-count factor, a coverage factor and a gutter-variance factor.
// The root keeps a single soft factor from dragging an otherwise clean
// page under the escalation threshold.
func pageConfidence(panels []Panel, pageW, pageH int) float64 {
	if len(panels) == 0 {
		return clamp01(math.Pow(0.1, 0.25))
	}

	var weighted, areaSum float64
	boxes := make([]geometry.BBox, len(panels))
	for i, p := range panels {
		a := float64(p.BBox.Area())
		weighted += p.Confidence * a
		areaSum += a
		boxes[i] = p.BBox
	}
	mean := 0.0
	if areaSum > 0 {
		mean = weighted / areaSum
	}

	pageArea := float64(pageW * pageH)
	coverage := 0.0
	if pageArea > 0 {
		coverage = areaSum / pageArea
	}

	xs, ys := collectGutters(boxes)
	product := mean *
		countFactor(len(panels)) *
		coverageFactor(coverage) *
		gutterVarianceFactor(xs, ys)
	return clamp01(math.Pow(product, 0.25))
}

// countFactor encodes panel-count priors: two to twelve panels is the
// normal comic range, a single panel is a plausible splash page, and
// more than twelve usually means over-segmentation.
func countFactor(n int) float64 {
	switch {
	case n == 0:
		return 0.1
	case n == 1:
		return 0.7
	case n <= 12:
		return 1.0
	default:
		return 0.5
	}
}

// coverageFactor expects panels to cover 70% to 95% of the page; pages
// outside that band are suspicious but not condemned.
func coverageFactor(c float64) float64 {
	if c >= 0.70 && c <= 0.95 {
		return 1.0
	}
	return 0.8
}

// gutterVarianceFactor penalizes irregular gutter widths. Real layouts
// use consistent gutters; wildly varying gaps suggest the panel borders
// were hallucinated from artwork. With fewer than two gaps on both axes
// there is nothing to measure and the factor is neutral.
func gutterVarianceFactor(xs, ys []int) float64 {
	cv, n := 0.0, 0
	for _, gaps := range [][]int{xs, ys} {
		if len(gaps) < 2 {
			continue
		}
		vals := make([]float64, len(gaps))
		for i, g := range gaps {
			vals[i] = float64(g)
		}
		m := stat.Mean(vals, nil)
		if m <= 0 {
			continue
		}
		cv += math.Sqrt(stat.Variance(vals, nil)) / m
		n++
	}
	if n == 0 {
		return 1.0
	}
	cv /= float64(n)
	f := 1.0 - 0.5*math.Min(cv, 1.0)
	return math.Max(0.5, f)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
