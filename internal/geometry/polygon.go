package geometry

import (
	"math"
	"sort"
)

// Polygon is an ordered sequence of vertices. A valid polygon has at least
// three vertices and is expected not to self-intersect.
type Polygon []Point

// Bounds returns the tight axis-aligned enclosure of the polygon's vertices.
func (p Polygon) Bounds() BBox {
	if len(p) == 0 {
		return BBox{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := p[0].X, p[0].Y
	for _, pt := range p[1:] {
		minX = min(minX, pt.X)
		minY = min(minY, pt.Y)
		maxX = max(maxX, pt.X)
		maxY = max(maxY, pt.Y)
	}
	return FromXYRB(minX, minY, maxX, maxY)
}

// Area returns the polygon area via the shoelace formula.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += float64(p[i].X*p[j].Y - p[j].X*p[i].Y)
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the total length of the polygon's edges, including the
// closing edge.
func (p Polygon) Perimeter() float64 {
	if len(p) < 2 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		dx := float64(p[j].X - p[i].X)
		dy := float64(p[j].Y - p[i].Y)
		sum += math.Hypot(dx, dy)
	}
	return sum
}

// Rect builds a rectangular polygon from a bounding box.
func Rect(b BBox) Polygon {
	return Polygon{
		{X: b.X, Y: b.Y},
		{X: b.R(), Y: b.Y},
		{X: b.R(), Y: b.B()},
		{X: b.X, Y: b.B()},
	}
}

// Scale maps the polygon by 1/scale, for converting vertices computed on
// a downscaled working image back to full page resolution.
func (p Polygon) Scale(scale float64) Polygon {
	if scale == 1.0 || scale == 0 {
		return p
	}
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{
			X: int(float64(pt.X) / scale),
			Y: int(float64(pt.Y) / scale),
		}
	}
	return out
}

// Simplify reduces the vertex count using Douglas-Peucker with the given
// distance tolerance. Closed contours should pass their full vertex ring;
// the first and last vertices are always kept.
func Simplify(p Polygon, epsilon float64) Polygon {
	if len(p) < 3 || epsilon <= 0 {
		return p
	}
	keep := make([]bool, len(p))
	keep[0] = true
	keep[len(p)-1] = true
	simplifyRange(p, 0, len(p)-1, epsilon, keep)

	out := make(Polygon, 0, len(p))
	for i, k := range keep {
		if k {
			out = append(out, p[i])
		}
	}
	return out
}

func simplifyRange(p Polygon, first, last int, epsilon float64, keep []bool) {
	if last <= first+1 {
		return
	}
	var maxDist float64
	index := -1
	for i := first + 1; i < last; i++ {
		d := pointLineDistance(p[i], p[first], p[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if index >= 0 && maxDist > epsilon {
		keep[index] = true
		simplifyRange(p, first, index, epsilon, keep)
		simplifyRange(p, index, last, epsilon, keep)
	}
}

// pointLineDistance returns the perpendicular distance from pt to the line
// through a and b. Degenerate lines fall back to point distance.
func pointLineDistance(pt, a, b Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(float64(pt.X-a.X), float64(pt.Y-a.Y))
	}
	return math.Abs(dy*float64(pt.X)-dx*float64(pt.Y)+
		float64(b.X)*float64(a.Y)-float64(b.Y)*float64(a.X)) / length
}

// ConvexHull returns the convex hull of the given points using Andrew's
// monotone chain, in counter-clockwise order.
func ConvexHull(points []Point) Polygon {
	if len(points) < 3 {
		return Polygon(append([]Point(nil), points...))
	}
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower, upper []Point
	for _, pt := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], pt) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, pt)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		pt := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], pt) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, pt)
	}
	return Polygon(append(lower[:len(lower)-1], upper[:len(upper)-1]...))
}
