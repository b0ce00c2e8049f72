package vision

import (
	"math"
	"sort"

	"github.com/panelworks/panel-detect/internal/geometry"
)

// SegmentOptions controls straight-line-segment extraction.
type SegmentOptions struct {
	// MinLength is the minimum segment length in pixels. Shorter segments
	// are discarded as noise.
	MinLength float64

	// MaxSegments caps the number of returned segments, keeping the
	// highest-scoring ones.
	MaxSegments int

	// PreferAxisAligned boosts horizontal and vertical segments, which are
	// the typical orientation of comic gutters.
	PreferAxisAligned bool

	// UseQualityScore additionally weights segments by their accumulator
	// support, favoring cleanly detected lines over marginal ones.
	UseQualityScore bool
}

type scoredSegment struct {
	score float64
	seg   geometry.Segment
}

// DetectSegments extracts straight line segments from a binary edge mask
// using a Hough transform. Peaks in the accumulator are traced back to
// actual endpoint extents in the mask, filtered by MinLength, scored, and
// capped at MaxSegments. Output order is deterministic: descending score,
// ties broken by position.
func DetectSegments(edges []bool, w, h int, opts SegmentOptions) []geometry.Segment {
	maxDist := int(math.Sqrt(float64(w*w + h*h)))
	const numAngles = 180
	accumulator := make([][]int, maxDist*2)
	for i := range accumulator {
		accumulator[i] = make([]int, numAngles)
	}

	var sin, cos [numAngles]float64
	for theta := 0; theta < numAngles; theta++ {
		angle := float64(theta) * math.Pi / 180.0
		sin[theta] = math.Sin(angle)
		cos[theta] = math.Cos(angle)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges[y*w+x] {
				continue
			}
			for theta := 0; theta < numAngles; theta++ {
				rho := float64(x)*cos[theta] + float64(y)*sin[theta]
				rhoIdx := int(rho) + maxDist
				if rhoIdx >= 0 && rhoIdx < maxDist*2 {
					accumulator[rhoIdx][theta]++
				}
			}
		}
	}

	type peak struct {
		rho   int
		theta int
		votes int
	}
	threshold := int(opts.MinLength / 2)
	if threshold < 2 {
		threshold = 2
	}
	var peaks []peak
	for rhoIdx := 0; rhoIdx < maxDist*2; rhoIdx++ {
		for theta := 0; theta < numAngles; theta++ {
			votes := accumulator[rhoIdx][theta]
			if votes < threshold {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := rhoIdx + dr
					nt := (theta + dt + numAngles) % numAngles
					if nr >= 0 && nr < maxDist*2 && accumulator[nr][nt] > votes {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: rhoIdx - maxDist, theta: theta, votes: votes})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].votes != peaks[j].votes {
			return peaks[i].votes > peaks[j].votes
		}
		if peaks[i].rho != peaks[j].rho {
			return peaks[i].rho < peaks[j].rho
		}
		return peaks[i].theta < peaks[j].theta
	})

	minDim := float64(min(w, h))
	var scored []scoredSegment
	for _, pk := range peaks {
		seg, ok := traceSegment(edges, w, h, pk.rho, cos[pk.theta], sin[pk.theta], opts.MinLength)
		if !ok {
			continue
		}

		length := seg.Length()
		score := length / minDim
		if opts.PreferAxisAligned {
			score *= 1.0 + axisAlignment(seg)
		}
		if opts.UseQualityScore {
			support := float64(pk.votes) / math.Max(length, 1)
			score *= math.Max(0.5, math.Min(2.0, support))
		}
		scored = append(scored, scoredSegment{score: score, seg: seg})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if opts.MaxSegments > 0 && len(scored) > opts.MaxSegments {
		scored = scored[:opts.MaxSegments]
	}

	segments := make([]geometry.Segment, len(scored))
	for i, s := range scored {
		segments[i] = s.seg
	}
	return segments
}

// traceSegment finds the extreme edge pixels lying on the line
// (rho, theta) and returns them as a segment when enough support exists.
func traceSegment(edges []bool, w, h, rho int, cosA, sinA, minLength float64) (geometry.Segment, bool) {
	var start, end geometry.Point
	minProj := math.MaxFloat64
	maxProj := -math.MaxFloat64
	count := 0

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges[y*w+x] {
				continue
			}
			dist := math.Abs(float64(x)*cosA + float64(y)*sinA - float64(rho))
			if dist >= 2.0 {
				continue
			}
			count++
			// project onto the line direction to find endpoints
			proj := float64(x)*(-sinA) + float64(y)*cosA
			if proj < minProj {
				minProj = proj
				start = geometry.Point{X: x, Y: y}
			}
			if proj > maxProj {
				maxProj = proj
				end = geometry.Point{X: x, Y: y}
			}
		}
	}

	if count < int(minLength) {
		return geometry.Segment{}, false
	}
	seg := geometry.Segment{A: start, B: end}
	if seg.Length() < minLength {
		return geometry.Segment{}, false
	}
	return seg, true
}

// axisAlignment scores how axis-aligned a segment is: 1.0 for perfectly
// horizontal or vertical, 0.0 for 45 degrees.
func axisAlignment(s geometry.Segment) float64 {
	deg := s.AngleDegrees()
	if deg <= 45 {
		return 1.0 - deg/45.0
	}
	return (deg - 45) / 45.0
}
