package vision

import "github.com/panelworks/panel-detect/internal/geometry"

// minComponentSize discards connected components smaller than this many
// pixels as noise before boundary tracing.
const minComponentSize = 10

type componentStats struct {
	minX, minY, maxX, maxY int
	size                   int
}

// Contours traces the boundary polygons of connected edge components in a
// binary mask. Components are 8-connected; components smaller than
// minComponentSize pixels are discarded. The returned polygons have
// collinear runs collapsed but are otherwise unsimplified.
func Contours(mask []bool, w, h int) []geometry.Polygon {
	labels := make([]int, w*h)
	var stats []componentStats

	next := 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] || labels[y*w+x] != 0 {
				continue
			}
			st := labelComponent(mask, labels, w, h, x, y, next)
			if st.size >= minComponentSize {
				stats = append(stats, st)
				next++
			} else {
				// unmark noise so the label id can be reused
				clearLabel(labels, w, st, next)
			}
		}
	}

	contours := make([]geometry.Polygon, 0, len(stats))
	for i, st := range stats {
		if poly := traceBoundary(labels, w, h, i+1, st); len(poly) >= 3 {
			contours = append(contours, poly)
		}
	}
	return contours
}

// labelComponent flood-fills one 8-connected component, assigning label
// and collecting its bounding statistics. Stack-based to avoid recursion
// depth limits on large components.
func labelComponent(mask []bool, labels []int, w, h, startX, startY, label int) componentStats {
	st := componentStats{minX: startX, minY: startY, maxX: startX, maxY: startY}
	stack := []geometry.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		idx := p.Y*w + p.X
		if !mask[idx] || labels[idx] != 0 {
			continue
		}

		labels[idx] = label
		st.size++
		st.minX = min(st.minX, p.X)
		st.minY = min(st.minY, p.Y)
		st.maxX = max(st.maxX, p.X)
		st.maxY = max(st.maxY, p.Y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, geometry.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return st
}

func clearLabel(labels []int, w int, st componentStats, label int) {
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if labels[y*w+x] == label {
				labels[y*w+x] = 0
			}
		}
	}
}

// traceBoundary extracts the ordered boundary polygon of a labeled
// component using Moore-Neighbor tracing with backtracking, restricted to
// the component's bounding box. The walk stops when it is about to repeat
// its first move out of the start pixel. Runs continuing in the same
// direction are collapsed as they are appended; reversals on one-pixel
// spurs stay vertices, so the polygon never splices distant points.
func traceBoundary(labels []int, w, h, label int, st componentStats) geometry.Polygon {
	sx, sy := findBoundaryStart(labels, w, h, label, st)
	if sx == -1 {
		return nil
	}

	pts := make(geometry.Polygon, 0, 64)
	addPoint := func(x, y int) {
		p := geometry.Point{X: x, Y: y}
		n := len(pts)
		if n >= 2 {
			a, b := pts[n-2], pts[n-1]
			cross := (b.X-a.X)*(p.Y-b.Y) - (b.Y-a.Y)*(p.X-b.X)
			dot := (b.X-a.X)*(p.X-b.X) + (b.Y-a.Y)*(p.Y-b.Y)
			if cross == 0 && dot > 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}

	cx, cy := sx, sy
	bx, by := sx-1, sy // raster scan order guarantees this neighbor is empty
	addPoint(cx, cy)

	firstX, firstY := -1, -1
	maxSteps := w*h*4 + 8
	for steps := 0; steps < maxSteps; steps++ {
		nx, ny, nbx, nby, found := nextBoundaryPixel(labels, w, h, label, cx, cy, bx, by)
		if !found {
			break
		}
		if cx == sx && cy == sy {
			if firstX == -1 {
				firstX, firstY = nx, ny
			} else if nx == firstX && ny == firstY {
				break
			}
		}
		bx, by = nbx, nby
		cx, cy = nx, ny

		if pts[len(pts)-1] != (geometry.Point{X: cx, Y: cy}) {
			addPoint(cx, cy)
		}
	}

	if len(pts) >= 2 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func findBoundaryStart(labels []int, w, h, label int, st componentStats) (int, int) {
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if isLabel(labels, w, h, label, x, y) &&
				(!isLabel(labels, w, h, label, x+1, y) ||
					!isLabel(labels, w, h, label, x-1, y) ||
					!isLabel(labels, w, h, label, x, y+1) ||
					!isLabel(labels, w, h, label, x, y-1)) {
				return x, y
			}
		}
	}
	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			if isLabel(labels, w, h, label, x, y) {
				return x, y
			}
		}
	}
	return -1, -1
}

func isLabel(labels []int, w, h, label, x, y int) bool {
	if x < 0 || y < 0 || x >= w || y >= h {
		return false
	}
	return labels[y*w+x] == label
}

// 8-neighborhood in clockwise order: E, SE, S, SW, W, NW, N, NE
var (
	neighborDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	neighborDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// nextBoundaryPixel scans the 8-neighborhood of (cx, cy) clockwise,
// starting just after the backtrack direction, and returns the first
// component pixel together with the empty pixel examined immediately
// before it (the new backtrack).
func nextBoundaryPixel(labels []int, w, h, label, cx, cy, bx, by int) (int, int, int, int, bool) {
	dirIndex := 0
	dx, dy := bx-cx, by-cy
	for i := 0; i < 8; i++ {
		if neighborDX[i] == dx && neighborDY[i] == dy {
			dirIndex = i
			break
		}
	}

	prevX, prevY := bx, by
	for k := 1; k <= 8; k++ {
		i := (dirIndex + k) % 8
		tx, ty := cx+neighborDX[i], cy+neighborDY[i]
		if isLabel(labels, w, h, label, tx, ty) {
			return tx, ty, prevX, prevY, true
		}
		prevX, prevY = tx, ty
	}
	return 0, 0, 0, 0, false
}
