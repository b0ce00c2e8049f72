package geometry

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// BBox is an axis-aligned bounding box in page-pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X, Y) is the top-left corner
//   - W and H are the horizontal and vertical extents, always > 0 for a
//     valid box
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// FromXYRB builds a BBox from left, top, right and bottom coordinates.
func FromXYRB(x, y, r, b int) BBox {
	return BBox{X: x, Y: y, W: r - x, H: b - y}
}

// R returns the right edge (X + W).
func (b BBox) R() int { return b.X + b.W }

// B returns the bottom edge (Y + H).
func (b BBox) B() int { return b.Y + b.H }

// Area returns the box area in square pixels.
func (b BBox) Area() int { return b.W * b.H }

// Center returns the center point of the box.
func (b BBox) Center() Point { return Point{X: b.X + b.W/2, Y: b.Y + b.H/2} }

// Empty reports whether the box has no positive extent.
func (b BBox) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Union returns the smallest box enclosing both b and o.
func (b BBox) Union(o BBox) BBox {
	x := min(b.X, o.X)
	y := min(b.Y, o.Y)
	r := max(b.R(), o.R())
	bt := max(b.B(), o.B())
	return FromXYRB(x, y, r, bt)
}

// Overlap returns the overlapping region of two boxes. The second return
// value is false when the boxes do not overlap at all.
func (b BBox) Overlap(o BBox) (BBox, bool) {
	if b.X > o.R() || o.X > b.R() {
		return BBox{}, false
	}
	if b.Y > o.B() || o.Y > b.B() {
		return BBox{}, false
	}
	x := max(b.X, o.X)
	y := max(b.Y, o.Y)
	r := min(b.R(), o.R())
	bt := min(b.B(), o.B())
	return FromXYRB(x, y, r, bt), true
}

// OverlapArea returns the area of the overlapping region, or 0 when the
// boxes are disjoint.
func (b BBox) OverlapArea(o BBox) int {
	ov, ok := b.Overlap(o)
	if !ok {
		return 0
	}
	return ov.Area()
}

// Overlaps reports whether two boxes overlap significantly, meaning the
// overlap covers more than 10% of the smaller box.
func (b BBox) Overlaps(o BBox) bool {
	ov, ok := b.Overlap(o)
	if !ok {
		return false
	}
	smallest := min(b.Area(), o.Area())
	if smallest == 0 {
		// degenerate box, behaves like a segment
		return true
	}
	return float64(ov.Area())/float64(smallest) > 0.1
}

// ContainsMost reports whether b contains more than 50% of o's area.
func (b BBox) ContainsMost(o BBox) bool {
	ov, ok := b.Overlap(o)
	if !ok || o.Area() == 0 {
		return false
	}
	return float64(ov.Area())/float64(o.Area()) > 0.5
}

// SameRow reports whether two boxes belong to the same horizontal row.
// Boxes share a row when one contains the other vertically, or when their
// vertical intersection is at least a third of the smaller box's height.
func (b BBox) SameRow(o BBox) bool {
	above, below := b, o
	if above.Y > below.Y {
		above, below = below, above
	}
	if below.Y > above.B() {
		return false
	}
	if below.B() < above.B() {
		return true
	}
	intersection := min(above.B(), below.B()) - below.Y
	minH := min(above.H, below.H)
	return minH == 0 || float64(intersection)/float64(minH) >= 1.0/3.0
}

// SameCol reports whether two boxes belong to the same vertical column,
// using the same one-third overlap rule as SameRow.
func (b BBox) SameCol(o BBox) bool {
	left, right := b, o
	if left.X > right.X {
		left, right = right, left
	}
	if right.X > left.R() {
		return false
	}
	if right.R() < left.R() {
		return true
	}
	intersection := min(left.R(), right.R()) - right.X
	minW := min(left.W, right.W)
	return minW == 0 || float64(intersection)/float64(minW) >= 1.0/3.0
}

// IsClose reports whether the centers of two boxes are within factor times
// their combined dimensions on both axes. A factor of 0.75 matches typical
// gutter spacing between fragments of a shattered panel.
func (b BBox) IsClose(o BBox, factor float64) bool {
	dx := float64(b.X+b.W/2 - (o.X + o.W/2))
	dy := float64(b.Y+b.H/2 - (o.Y + o.H/2))
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= float64(b.W+o.W)*factor && dy <= float64(b.H+o.H)*factor
}

// NearlyEqual reports whether two boxes have all four edges within a tenth
// of b's dimensions of each other.
func (b BBox) NearlyEqual(o BBox) bool {
	wt := b.W / 10
	ht := b.H / 10
	return abs(b.X-o.X) < wt && abs(b.Y-o.Y) < ht &&
		abs(b.R()-o.R()) < wt && abs(b.B()-o.B()) < ht
}

// Clamp restricts the box to the page rectangle (0, 0, pageW, pageH),
// preserving a minimum extent of one pixel.
func (b BBox) Clamp(pageW, pageH int) BBox {
	if pageW <= 0 || pageH <= 0 {
		return BBox{}
	}
	x := max(0, min(b.X, pageW-1))
	y := max(0, min(b.Y, pageH-1))
	w := b.W
	h := b.H
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	w = min(w, pageW-x)
	h = min(h, pageH-y)
	return BBox{X: x, Y: y, W: w, H: h}
}

// Scale maps the box by 1/scale, rounding down, for converting coordinates
// computed on a downscaled working image back to full page resolution.
func (b BBox) Scale(scale float64) BBox {
	if scale == 1.0 || scale == 0 {
		return b
	}
	return BBox{
		X: int(float64(b.X) / scale),
		Y: int(float64(b.Y) / scale),
		W: int(float64(b.W) / scale),
		H: int(float64(b.H) / scale),
	}
}

// LeftNeighbor returns the index of the box directly left of boxes[i] in
// the same row (the one with the largest right edge), or -1.
func LeftNeighbor(i int, boxes []BBox) int {
	b := boxes[i]
	best := -1
	for j, o := range boxes {
		if j == i {
			continue
		}
		if o.R() <= b.X && o.SameRow(b) {
			if best == -1 || o.R() > boxes[best].R() {
				best = j
			}
		}
	}
	return best
}

// RightNeighbor returns the index of the box directly right of boxes[i] in
// the same row (the one with the smallest left edge), or -1.
func RightNeighbor(i int, boxes []BBox) int {
	b := boxes[i]
	best := -1
	for j, o := range boxes {
		if j == i {
			continue
		}
		if o.X >= b.R() && o.SameRow(b) {
			if best == -1 || o.X < boxes[best].X {
				best = j
			}
		}
	}
	return best
}

// TopNeighbor returns the index of the box directly above boxes[i] in the
// same column (the one with the largest bottom edge), or -1.
func TopNeighbor(i int, boxes []BBox) int {
	b := boxes[i]
	best := -1
	for j, o := range boxes {
		if j == i {
			continue
		}
		if o.B() <= b.Y && o.SameCol(b) {
			if best == -1 || o.B() > boxes[best].B() {
				best = j
			}
		}
	}
	return best
}

// BottomNeighbor returns the index of the box directly below boxes[i] in
// the same column (the one with the smallest top edge), or -1.
func BottomNeighbor(i int, boxes []BBox) int {
	b := boxes[i]
	best := -1
	for j, o := range boxes {
		if j == i {
			continue
		}
		if o.Y >= b.B() && o.SameCol(b) {
			if best == -1 || o.Y < boxes[best].Y {
				best = j
			}
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
