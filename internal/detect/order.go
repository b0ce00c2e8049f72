package detect

import (
	"sort"
)

// OrderPanels resolves the reading order of a panel set: panels are
// clustered into rows using the one-third vertical overlap rule, rows are
// read top to bottom, and panels within a row left to right (or right to
// left for RTL books). Ties fall back to detection order, so the result
// is a deterministic total order over the panel IDs.
//
// The second return value scores how unambiguous the order is: 1.0 for a
// clean grid, lower when panels straddle row boundaries.
func OrderPanels(panels []Panel, dir ReadingDirection) ([]string, float64) {
	if len(panels) == 0 {
		return []string{}, 1.0
	}

	// cluster into rows, seeded in top-edge order
	idx := make([]int, len(panels))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return panels[idx[a]].BBox.Y < panels[idx[b]].BBox.Y
	})

	var rows [][]int
	for _, i := range idx {
		placed := false
		for r := range rows {
			for _, j := range rows[r] {
				if panels[i].BBox.SameRow(panels[j].BBox) {
					rows[r] = append(rows[r], i)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			rows = append(rows, []int{i})
		}
	}

	// rows top to bottom by their topmost member
	sort.SliceStable(rows, func(a, b int) bool {
		return rowTop(panels, rows[a]) < rowTop(panels, rows[b])
	})

	order := make([]string, 0, len(panels))
	for _, row := range rows {
		sort.SliceStable(row, func(a, b int) bool {
			pa, pb := panels[row[a]], panels[row[b]]
			if pa.BBox.X != pb.BBox.X {
				if dir == RTL {
					return pa.BBox.X > pb.BBox.X
				}
				return pa.BBox.X < pb.BBox.X
			}
			return row[a] < row[b]
		})
		for _, i := range row {
			order = append(order, panels[i].ID)
		}
	}

	return order, orderAmbiguity(panels, rows)
}

func rowTop(panels []Panel, row []int) int {
	top := panels[row[0]].BBox.Y
	for _, i := range row[1:] {
		top = min(top, panels[i].BBox.Y)
	}
	return top
}

// orderAmbiguity scores the resolved order. Panels in the same row whose
// horizontal spans overlap make the in-row comparison a judgement call;
// each such pair costs a tenth, floored at 0.5.
func orderAmbiguity(panels []Panel, rows [][]int) float64 {
	if len(panels) < 2 {
		return 1.0
	}
	ambiguous := 0
	for _, row := range rows {
		for a := 0; a < len(row); a++ {
			for b := a + 1; b < len(row); b++ {
				pa, pb := panels[row[a]].BBox, panels[row[b]].BBox
				if pa.X < pb.R() && pb.X < pa.R() {
					ambiguous++
				}
			}
		}
	}
	conf := 1.0 - 0.1*float64(ambiguous)
	if conf < 0.5 {
		conf = 0.5
	}
	return conf
}
