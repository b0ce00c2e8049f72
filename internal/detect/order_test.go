package detect

import (
	"fmt"
	"testing"

	"github.com/panelworks/panel-detect/internal/geometry"
)

// gridPanels builds rows x cols panels on a 1000x1000 page, IDs assigned
// in shuffled (column-major) order so ordering has real work to do
func gridPanels(rows, cols int) []Panel {
	cellW := 1000 / cols
	cellH := 1000 / rows
	var panels []Panel
	n := 0
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			b := geometry.BBox{
				X: c*cellW + 10,
				Y: r*cellH + 10,
				W: cellW - 20,
				H: cellH - 20,
			}
			p := newPanel(fmt.Sprintf("p-%d", n), b, geometry.Rect(b))
			panels = append(panels, p)
			n++
		}
	}
	return panels
}

func TestOrderGridLTR(t *testing.T) {
	// column-major IDs: p-0 p-3 p-6 / p-1 p-4 p-7 / p-2 p-5 p-8
	panels := gridPanels(3, 3)

	order, conf := OrderPanels(panels, LTR)
	want := []string{"p-0", "p-3", "p-6", "p-1", "p-4", "p-7", "p-2", "p-5", "p-8"}
	if len(order) != len(want) {
		t.Fatalf("order length = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if conf != 1.0 {
		t.Errorf("clean grid order confidence = %v, want 1.0", conf)
	}
}

func TestOrderGridRTL(t *testing.T) {
	panels := gridPanels(3, 3)

	order, _ := OrderPanels(panels, RTL)
	want := []string{"p-6", "p-3", "p-0", "p-7", "p-4", "p-1", "p-8", "p-5", "p-2"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestOrderIsPermutation(t *testing.T) {
	panels := gridPanels(4, 3)

	order, _ := OrderPanels(panels, LTR)
	if len(order) != len(panels) {
		t.Fatalf("order length = %d, want %d", len(order), len(panels))
	}
	seen := make(map[string]bool)
	for _, id := range order {
		if seen[id] {
			t.Fatalf("duplicate id %s in order", id)
		}
		seen[id] = true
	}
	for _, p := range panels {
		if !seen[p.ID] {
			t.Errorf("panel %s missing from order", p.ID)
		}
	}
}

func TestOrderDeterministic(t *testing.T) {
	panels := gridPanels(3, 4)
	a, aConf := OrderPanels(panels, LTR)
	b, bConf := OrderPanels(panels, LTR)

	if aConf != bConf {
		t.Errorf("confidence differs between runs: %v vs %v", aConf, bConf)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order differs between runs at %d", i)
		}
	}
}

func TestOrderSinglePanel(t *testing.T) {
	p := newPanel("p-0", geometry.BBox{X: 0, Y: 0, W: 500, H: 700}, nil)

	order, conf := OrderPanels([]Panel{p}, LTR)
	if len(order) != 1 || order[0] != "p-0" {
		t.Errorf("order = %v", order)
	}
	if conf != 1.0 {
		t.Errorf("single panel confidence = %v, want 1.0", conf)
	}
}

func TestOrderEmpty(t *testing.T) {
	order, conf := OrderPanels(nil, LTR)
	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
	if conf != 1.0 {
		t.Errorf("confidence = %v, want 1.0", conf)
	}
}

func TestOrderAmbiguousOverlap(t *testing.T) {
	// two panels in the same row with overlapping horizontal spans
	a := newPanel("p-0", geometry.BBox{X: 0, Y: 0, W: 500, H: 400}, nil)
	b := newPanel("p-1", geometry.BBox{X: 400, Y: 50, W: 500, H: 400}, nil)

	_, conf := OrderPanels([]Panel{a, b}, LTR)
	if conf >= 1.0 {
		t.Errorf("overlapping spans should lower order confidence, got %v", conf)
	}
	if conf < 0.5 {
		t.Errorf("confidence floor violated: %v", conf)
	}
}

func TestOrderStaircase(t *testing.T) {
	// panels whose vertical overlap is under a third go to separate rows
	a := newPanel("p-0", geometry.BBox{X: 500, Y: 0, W: 400, H: 300}, nil)
	b := newPanel("p-1", geometry.BBox{X: 0, Y: 250, W: 400, H: 300}, nil)

	order, _ := OrderPanels([]Panel{a, b}, LTR)
	if order[0] != "p-0" || order[1] != "p-1" {
		t.Errorf("order = %v, want top panel first", order)
	}
}
