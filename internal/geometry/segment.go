package geometry

import "math"

// Segment is a straight line segment between two pixel coordinates.
//
// Segments carry the raw evidence for panel borders. Only segments that are
// close to horizontal or vertical (AxisAligned) are treated as gutter
// evidence; diagonal segments are typically motion or speed lines inside
// the artwork.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Length returns the Euclidean distance between the endpoints.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.B.X-s.A.X), float64(s.B.Y-s.A.Y))
}

// DistX returns the absolute horizontal extent.
func (s Segment) DistX() int { return abs(s.B.X - s.A.X) }

// DistY returns the absolute vertical extent.
func (s Segment) DistY() int { return abs(s.B.Y - s.A.Y) }

// Angle returns the segment angle in radians within [0, pi/2], measured
// from the horizontal axis.
func (s Segment) Angle() float64 {
	dx := s.DistX()
	if dx == 0 {
		return math.Pi / 2
	}
	return math.Atan(float64(s.DistY()) / float64(dx))
}

// AngleDegrees returns the angle in degrees within [0, 90].
func (s Segment) AngleDegrees() float64 { return s.Angle() * 180 / math.Pi }

// AxisAligned reports whether the segment is within tolDeg degrees of
// horizontal or vertical.
func (s Segment) AxisAligned(tolDeg float64) bool {
	deg := s.AngleDegrees()
	return deg <= tolDeg || deg >= 90-tolDeg
}

// Horizontal reports whether the segment is within tolDeg of horizontal.
func (s Segment) Horizontal(tolDeg float64) bool { return s.AngleDegrees() <= tolDeg }

// Vertical reports whether the segment is within tolDeg of vertical.
func (s Segment) Vertical(tolDeg float64) bool { return s.AngleDegrees() >= 90-tolDeg }

// Left returns the smaller X coordinate.
func (s Segment) Left() int { return min(s.A.X, s.B.X) }

// Top returns the smaller Y coordinate.
func (s Segment) Top() int { return min(s.A.Y, s.B.Y) }

// Right returns the larger X coordinate.
func (s Segment) Right() int { return max(s.A.X, s.B.X) }

// Bottom returns the larger Y coordinate.
func (s Segment) Bottom() int { return max(s.A.Y, s.B.Y) }

// Bounds returns the segment's axis-aligned bounding box.
func (s Segment) Bounds() BBox {
	return FromXYRB(s.Left(), s.Top(), s.Right(), s.Bottom())
}

// Center returns the segment midpoint.
func (s Segment) Center() Point {
	return Point{X: s.Left() + s.DistX()/2, Y: s.Top() + s.DistY()/2}
}

// angleBetween returns the absolute angle difference in degrees.
func angleBetween(a, b Segment) float64 {
	d := math.Abs(a.Angle()-b.Angle()) * 180 / math.Pi
	return d
}

// nearlyParallel reports whether two segments differ by less than 10
// degrees in orientation.
func nearlyParallel(a, b Segment) bool {
	d := angleBetween(a, b)
	return d < 10 || math.Abs(d-180) < 10
}

// Project returns the projection of p onto the infinite line through the
// segment. Degenerate segments return their own start point.
func (s Segment) Project(p Point) Point {
	ax, ay := float64(s.A.X), float64(s.A.Y)
	abx := float64(s.B.X - s.A.X)
	aby := float64(s.B.Y - s.A.Y)
	if abx == 0 && aby == 0 {
		return s.A
	}
	apx := float64(p.X) - ax
	apy := float64(p.Y) - ay
	t := (apx*abx + apy*aby) / (abx*abx + aby*aby)
	return Point{
		X: int(math.Round(ax + t*abx)),
		Y: int(math.Round(ay + t*aby)),
	}
}

// Intersect returns the overlapping portion of two nearly parallel, nearby
// segments. The tolerance for lateral distance and endpoint gaps is 5% of
// the longer segment. Returns false when the segments are not parallel,
// too far apart, or disjoint along their direction.
func (s Segment) Intersect(o Segment) (Segment, bool) {
	gutter := math.Max(s.Length(), o.Length()) * 0.05

	if !nearlyParallel(s, o) {
		return Segment{}, false
	}

	// apart along either axis
	if float64(s.Right()) < float64(o.Left())-gutter ||
		float64(s.Left()) > float64(o.Right())+gutter ||
		float64(s.Bottom()) < float64(o.Top())-gutter ||
		float64(s.Top()) > float64(o.Bottom())+gutter {
		return Segment{}, false
	}

	pa := s.Project(o.A)
	pb := s.Project(o.B)
	da := math.Hypot(float64(o.A.X-pa.X), float64(o.A.Y-pa.Y))
	db := math.Hypot(float64(o.B.X-pb.X), float64(o.B.Y-pb.Y))
	if (da+db)/2 > gutter {
		return Segment{}, false
	}

	// middle two endpoints along the shared direction form the overlap
	dots := []Point{s.A, s.B, o.A, o.B}
	sortPointsByProjection(dots)
	return Segment{A: dots[1], B: dots[2]}, true
}

// sortPointsByProjection orders points by x+y, which is monotone along any
// direction in the first quadrant and stable enough for near-parallel
// overlap resolution.
func sortPointsByProjection(pts []Point) {
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j].X+pts[j].Y < pts[j-1].X+pts[j-1].Y; j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}

// Union merges two overlapping parallel segments into their combined span.
// Returns false when the segments do not intersect.
func (s Segment) Union(o Segment) (Segment, bool) {
	if _, ok := s.Intersect(o); !ok {
		return Segment{}, false
	}
	dots := []Point{s.A, s.B, o.A, o.B}
	sortPointsByProjection(dots)
	return Segment{A: dots[0], B: dots[3]}, true
}

// UnionAll iteratively merges overlapping parallel segments until no more
// merges are possible.
func UnionAll(segments []Segment) []Segment {
	segs := append([]Segment(nil), segments...)
	merged := true
	for merged {
		merged = false
		out := make([]Segment, 0, len(segs))
		used := make([]bool, len(segs))
		for i := range segs {
			if used[i] {
				continue
			}
			s := segs[i]
			for j := i + 1; j < len(segs); j++ {
				if used[j] {
					continue
				}
				if u, ok := s.Union(segs[j]); ok {
					s = u
					used[j] = true
					merged = true
				}
			}
			used[i] = true
			out = append(out, s)
		}
		segs = out
	}
	return segs
}

// CoveredLength returns the total length of the given segments that
// overlaps s, after merging overlapping evidence. This measures how much
// of a proposed split line is backed by detected segments.
func (s Segment) CoveredLength(segments []Segment) float64 {
	var matches []Segment
	for _, o := range segments {
		if m, ok := s.Intersect(o); ok {
			matches = append(matches, m)
		}
	}
	var covered float64
	for _, m := range UnionAll(matches) {
		covered += m.Length()
	}
	return covered
}
