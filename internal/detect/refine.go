package detect

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/panelworks/panel-detect/internal/geometry"
	"github.com/panelworks/panel-detect/internal/vision"
)

// refine runs the fixed refinement sequence over the candidate set:
// splitting, small-panel grouping, merge and de-overlap, expansion,
// big-panel grouping, and finally containment cleanup. Steps that are
// disabled in the settings are skipped; the order never changes.
func refine(panels []Panel, ctx pageContext, log zerolog.Logger) []Panel {
	if ctx.settings.PanelSplitting {
		panels = splitPanels(panels, ctx, log)
	}
	if ctx.settings.SmallPanelGrouping {
		panels = groupSmallPanels(panels, ctx)
	}
	panels = mergePanels(panels, ctx)
	panels = deoverlapPanels(panels)
	if ctx.settings.PanelExpansion {
		panels = expandPanels(panels, ctx)
	}
	if ctx.settings.BigPanelGrouping {
		panels = groupBigPanels(panels, ctx)
	}
	panels = removeContained(panels)
	return panels
}

// splitPanels repeatedly splits the largest splittable panel along the
// best-supported axis-aligned gutter line until no panel can be split.
// Every candidate carries a split budget derived from MaxSegments; a
// panel that exhausts it is kept whole and marked unsplittable.
func splitPanels(panels []Panel, ctx pageContext, log zerolog.Logger) []Panel {
	budgets := make([]int, len(panels))
	for i := range budgets {
		budgets[i] = ctx.settings.MaxSegments
	}

	for {
		// largest splittable panel first
		idx := -1
		for i, p := range panels {
			if !p.splittable {
				continue
			}
			if idx == -1 || p.BBox.Area() > panels[idx].BBox.Area() {
				idx = i
			}
		}
		if idx == -1 {
			return panels
		}

		if budgets[idx] <= 0 {
			log.Debug().
				Int("x", panels[idx].BBox.X).
				Int("y", panels[idx].BBox.Y).
				Err(ErrSplitLimit).
				Msg("keeping panel whole")
			panels[idx].splittable = false
			continue
		}

		a, b, coverage, ok := trySplit(panels[idx], ctx)
		if !ok {
			panels[idx].splittable = false
			continue
		}

		a.splitCoverage = coverage
		b.splitCoverage = coverage
		childBudget := budgets[idx] - 1

		panels = append(panels[:idx], panels[idx+1:]...)
		budgets = append(budgets[:idx], budgets[idx+1:]...)
		panels = append(panels, a, b)
		budgets = append(budgets, childBudget, childBudget)
	}
}

// trySplit looks for the best axis-aligned split of one panel. A split
// line qualifies when detected segments cover at least SplitMinCoverage
// of it, the intensity variance along it stays within GutterMaxVariance,
// and both halves clear the minimum panel size. Among qualifying lines
// the one with the highest coverage wins; ties go to the first in
// segment order so results stay deterministic.
func trySplit(p Panel, ctx pageContext) (a, b Panel, coverage float64, ok bool) {
	if ctx.smallAt(p.BBox, 2) {
		return Panel{}, Panel{}, 0, false
	}

	tol := ctx.settings.AxisAlignedToleranceDeg
	const margin = 10 // split lines must stay a tenth of the extent away from the border

	bestCoverage := -1.0
	var bestHorizontal bool
	var bestCoord int

	for _, seg := range ctx.segments {
		sb := seg.Bounds()
		if _, overlap := p.BBox.Overlap(sb); !overlap {
			continue
		}

		switch {
		case seg.Horizontal(tol):
			y := seg.Center().Y
			if y < p.BBox.Y+p.BBox.H/margin || y > p.BBox.B()-p.BBox.H/margin {
				continue
			}
			line := geometry.Segment{
				A: geometry.Point{X: p.BBox.X, Y: y},
				B: geometry.Point{X: p.BBox.R(), Y: y},
			}
			cov := splitCoverageFor(line, float64(p.BBox.W), ctx)
			if cov > bestCoverage && cov >= ctx.settings.SplitMinCoverage && isGutterLine(seg, ctx) {
				bestCoverage, bestHorizontal, bestCoord = cov, true, y
			}
		case seg.Vertical(tol):
			x := seg.Center().X
			if x < p.BBox.X+p.BBox.W/margin || x > p.BBox.R()-p.BBox.W/margin {
				continue
			}
			line := geometry.Segment{
				A: geometry.Point{X: x, Y: p.BBox.Y},
				B: geometry.Point{X: x, Y: p.BBox.B()},
			}
			cov := splitCoverageFor(line, float64(p.BBox.H), ctx)
			if cov > bestCoverage && cov >= ctx.settings.SplitMinCoverage && isGutterLine(seg, ctx) {
				bestCoverage, bestHorizontal, bestCoord = cov, false, x
			}
		}
	}

	if bestCoverage < 0 {
		return Panel{}, Panel{}, 0, false
	}

	var first, second geometry.BBox
	if bestHorizontal {
		first = geometry.FromXYRB(p.BBox.X, p.BBox.Y, p.BBox.R(), bestCoord)
		second = geometry.FromXYRB(p.BBox.X, bestCoord, p.BBox.R(), p.BBox.B())
	} else {
		first = geometry.FromXYRB(p.BBox.X, p.BBox.Y, bestCoord, p.BBox.B())
		second = geometry.FromXYRB(bestCoord, p.BBox.Y, p.BBox.R(), p.BBox.B())
	}
	if ctx.small(first) || ctx.small(second) {
		return Panel{}, Panel{}, 0, false
	}

	a = newPanel("", first, geometry.Rect(first))
	b = newPanel("", second, geometry.Rect(second))
	return a, b, bestCoverage, true
}

// splitCoverageFor returns the fraction of a proposed split line that is
// backed by detected segments.
func splitCoverageFor(line geometry.Segment, span float64, ctx pageContext) float64 {
	if span <= 0 {
		return 0
	}
	return line.CoveredLength(ctx.segments) / span
}

// isGutterLine gates a split on the intensity along the detected segment
// itself: real gutters are flat background, artwork is busy. Sampling the
// segment extent rather than the whole panel span keeps blank margins
// beyond the segment from inflating the variance.
func isGutterLine(seg geometry.Segment, ctx pageContext) bool {
	return vision.VarianceAlongLine(ctx.intensity, seg) <= ctx.settings.GutterMaxVariance
}

// groupSmallPanels clusters below-threshold fragments that sit close
// together, replacing each cluster of two or more with the convex hull
// of its members. Shattered or decorated panels come apart into many
// small contours; grouping restores them as one region. Grouped panels
// are never split again.
func groupSmallPanels(panels []Panel, ctx pageContext) []Panel {
	smallIdx := make([]int, 0, len(panels))
	for i, p := range panels {
		if ctx.small(p.BBox) {
			smallIdx = append(smallIdx, i)
		}
	}
	if len(smallIdx) < 2 {
		return panels
	}

	// union-find over the small panels
	parent := make(map[int]int, len(smallIdx))
	for _, i := range smallIdx {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for a := 0; a < len(smallIdx); a++ {
		for b := a + 1; b < len(smallIdx); b++ {
			i, j := smallIdx[a], smallIdx[b]
			if panels[i].BBox.IsClose(panels[j].BBox, ctx.settings.ProximityFactor) {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := make(map[int][]int)
	for _, i := range smallIdx {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	grouped := make(map[int]bool)
	var replacements []Panel
	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Ints(roots)
	for _, root := range roots {
		members := groups[root]
		if len(members) < 2 {
			continue
		}
		var pts geometry.Polygon
		for _, i := range members {
			grouped[i] = true
			if len(panels[i].Polygon) > 0 {
				pts = append(pts, panels[i].Polygon...)
			} else {
				pts = append(pts, geometry.Rect(panels[i].BBox)...)
			}
		}
		hull := geometry.ConvexHull(pts)
		np := newPanel("", hull.Bounds(), hull)
		np.splittable = false
		replacements = append(replacements, np)
	}
	if len(replacements) == 0 {
		return panels
	}

	out := make([]Panel, 0, len(panels))
	for i, p := range panels {
		if !grouped[i] {
			out = append(out, p)
		}
	}
	return append(out, replacements...)
}

// mergePanels absorbs panels that are mostly contained in a bigger one.
// The survivor grows toward the absorbed panel's extent in every
// direction where doing so does not bump into a third panel.
func mergePanels(panels []Panel, ctx pageContext) []Panel {
	for {
		merged := false
		for i := 0; i < len(panels) && !merged; i++ {
			for j := 0; j < len(panels); j++ {
				if i == j {
					continue
				}
				if !panels[i].BBox.ContainsMost(panels[j].BBox) {
					continue
				}

				grown := growToward(panels[i].BBox, panels[j].BBox, i, j, panels)
				panels[i].BBox = grown
				panels[i].Polygon = geometry.Rect(grown)
				panels = append(panels[:j], panels[j+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			return panels
		}
	}
}

// growToward extends base toward target one edge at a time, keeping only
// extensions that do not overlap any panel other than base and target.
func growToward(base, target geometry.BBox, baseIdx, targetIdx int, panels []Panel) geometry.BBox {
	best := base
	candidates := []geometry.BBox{
		geometry.FromXYRB(min(base.X, target.X), best.Y, best.R(), best.B()),
		geometry.FromXYRB(best.X, min(base.Y, target.Y), best.R(), best.B()),
		geometry.FromXYRB(best.X, best.Y, max(base.R(), target.R()), best.B()),
		geometry.FromXYRB(best.X, best.Y, best.R(), max(base.B(), target.B())),
	}
	for _, c := range candidates {
		grown := best.Union(c)
		if bumpsOthers(grown, panels, baseIdx, targetIdx) {
			continue
		}
		best = grown
	}
	return best
}

// bumpsOthers reports whether box overlaps any panel except the two
// indices being merged.
func bumpsOthers(box geometry.BBox, panels []Panel, skip ...int) bool {
	skipSet := make(map[int]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}
	for k, p := range panels {
		if skipSet[k] {
			continue
		}
		if box.Overlaps(p.BBox) {
			return true
		}
	}
	return false
}

// deoverlapPanels resolves remaining pairwise overlaps by shrinking both
// panels to the overlap midline along the thinner overlap axis. The
// operation is idempotent: a second pass finds nothing to do.
func deoverlapPanels(panels []Panel) []Panel {
	for i := 0; i < len(panels); i++ {
		for j := i + 1; j < len(panels); j++ {
			ov, ok := panels[i].BBox.Overlap(panels[j].BBox)
			if !ok || ov.Empty() {
				continue
			}

			if ov.W <= ov.H {
				mid := ov.X + ov.W/2
				left, right := i, j
				if panels[j].BBox.X < panels[i].BBox.X {
					left, right = j, i
				}
				lb := panels[left].BBox
				rb := panels[right].BBox
				panels[left].BBox = geometry.FromXYRB(lb.X, lb.Y, min(lb.R(), mid), lb.B())
				panels[right].BBox = geometry.FromXYRB(max(rb.X, mid), rb.Y, rb.R(), rb.B())
			} else {
				mid := ov.Y + ov.H/2
				top, bottom := i, j
				if panels[j].BBox.Y < panels[i].BBox.Y {
					top, bottom = j, i
				}
				tb := panels[top].BBox
				bb := panels[bottom].BBox
				panels[top].BBox = geometry.FromXYRB(tb.X, tb.Y, tb.R(), min(tb.B(), mid))
				panels[bottom].BBox = geometry.FromXYRB(bb.X, max(bb.Y, mid), bb.R(), bb.B())
			}
			panels[i].Polygon = geometry.Rect(panels[i].BBox)
			panels[j].Polygon = geometry.Rect(panels[j].BBox)
		}
	}
	return panels
}

// expandPanels pushes every panel edge outward to its neighbor minus the
// estimated gutter, or to the outer content frame when there is no
// neighbor on that side. Edges only ever move outward.
func expandPanels(panels []Panel, ctx pageContext) []Panel {
	if len(panels) == 0 {
		return panels
	}
	boxes := make([]geometry.BBox, len(panels))
	for i, p := range panels {
		boxes[i] = p.BBox
	}
	gx, gy := actualGutters(boxes)

	// outer content frame spanned by all panels
	frame := boxes[0]
	for _, b := range boxes[1:] {
		frame = frame.Union(b)
	}

	for i := range panels {
		b := boxes[i]
		x, y, r, bt := b.X, b.Y, b.R(), b.B()

		if n := geometry.LeftNeighbor(i, boxes); n >= 0 {
			x = min(x, boxes[n].R()+gx)
		} else {
			x = min(x, frame.X)
		}
		if n := geometry.TopNeighbor(i, boxes); n >= 0 {
			y = min(y, boxes[n].B()+gy)
		} else {
			y = min(y, frame.Y)
		}
		if n := geometry.RightNeighbor(i, boxes); n >= 0 {
			r = max(r, boxes[n].X-gx)
		} else {
			r = max(r, frame.R())
		}
		if n := geometry.BottomNeighbor(i, boxes); n >= 0 {
			bt = max(bt, boxes[n].Y-gy)
		} else {
			bt = max(bt, frame.B())
		}

		nb := geometry.FromXYRB(x, y, r, bt).Clamp(ctx.w, ctx.h)
		panels[i].BBox = nb
		panels[i].Polygon = geometry.Rect(nb)
	}
	return panels
}

// groupBigPanels merges adjacent panel pairs whose union contains no
// strong axis-aligned segment evidence of a separating gutter and does
// not bump into a third panel. This recombines panels whose shared
// border was over-segmented by artwork.
func groupBigPanels(panels []Panel, ctx pageContext) []Panel {
	tol := ctx.settings.AxisAlignedToleranceDeg
	for {
		merged := false
		for i := 0; i < len(panels) && !merged; i++ {
			for j := i + 1; j < len(panels); j++ {
				union := panels[i].BBox.Union(panels[j].BBox)
				if bumpsOthers(union, panels, i, j) {
					continue
				}
				if hasDividingSegment(union, ctx.segments, tol) {
					continue
				}

				np := newPanel("", union, geometry.Rect(union))
				np.splittable = false
				panels = append(panels[:j], panels[j+1:]...)
				panels[i] = np
				merged = true
				break
			}
		}
		if !merged {
			return panels
		}
	}
}

// hasDividingSegment reports whether any axis-aligned segment runs through
// the union box with more than a fifth of the union diagonal inside it.
// Such a segment is taken as evidence that the two panels are genuinely
// separate. The portion outside the union does not count, but a segment
// spanning the whole page still qualifies through the part it contributes.
func hasDividingSegment(union geometry.BBox, segments []geometry.Segment, tolDeg float64) bool {
	diag := geometry.Segment{
		A: geometry.Point{X: union.X, Y: union.Y},
		B: geometry.Point{X: union.R(), Y: union.B()},
	}.Length()
	for _, s := range segments {
		if !s.AxisAligned(tolDeg) {
			continue
		}
		sb := s.Bounds()
		ox := min(sb.R(), union.R()) - max(sb.X, union.X)
		oy := min(sb.B(), union.B()) - max(sb.Y, union.Y)
		if ox < 0 || oy < 0 {
			continue
		}
		frac := 1.0
		if sb.W >= sb.H && sb.W > 0 {
			frac = float64(ox) / float64(sb.W)
		} else if sb.H > sb.W && sb.H > 0 {
			frac = float64(oy) / float64(sb.H)
		}
		if s.Length()*frac > diag/5 {
			return true
		}
	}
	return false
}

// removeContained drops panels that are at least 90% covered by another
// panel, keeping the smaller of the two. Expansion and grouping can leave
// such shells behind.
func removeContained(panels []Panel) []Panel {
	for {
		removed := false
		for i := 0; i < len(panels) && !removed; i++ {
			for j := 0; j < len(panels); j++ {
				if i == j {
					continue
				}
				small, big := panels[i].BBox, panels[j].BBox
				if small.Area() > big.Area() {
					continue
				}
				if big.Area() == 0 || small.Area() == 0 {
					continue
				}
				if float64(big.OverlapArea(small))/float64(small.Area()) >= 0.9 {
					// keep the smaller panel, drop the container
					panels = append(panels[:j], panels[j+1:]...)
					removed = true
					break
				}
			}
		}
		if !removed {
			return panels
		}
	}
}

// collectGutters gathers the horizontal and vertical gaps between
// neighboring panels.
func collectGutters(boxes []geometry.BBox) (xs, ys []int) {
	for i := range boxes {
		if n := geometry.RightNeighbor(i, boxes); n >= 0 {
			if gap := boxes[n].X - boxes[i].R(); gap > 0 {
				xs = append(xs, gap)
			}
		}
		if n := geometry.BottomNeighbor(i, boxes); n >= 0 {
			if gap := boxes[n].Y - boxes[i].B(); gap > 0 {
				ys = append(ys, gap)
			}
		}
	}
	return xs, ys
}

// actualGutters estimates the page gutter width on each axis as the
// smallest positive gap between neighboring panels, defaulting to one
// pixel when no gaps exist.
func actualGutters(boxes []geometry.BBox) (gx, gy int) {
	xs, ys := collectGutters(boxes)
	gx, gy = 1, 1
	if len(xs) > 0 {
		gx = xs[0]
		for _, v := range xs[1:] {
			gx = min(gx, v)
		}
	}
	if len(ys) > 0 {
		gy = ys[0]
		for _, v := range ys[1:] {
			gy = min(gy, v)
		}
	}
	return gx, gy
}
