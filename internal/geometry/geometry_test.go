package geometry

import (
	"testing"
)

func TestBBoxAccessors(t *testing.T) {
	b := BBox{X: 10, Y: 20, W: 30, H: 40}

	if b.R() != 40 {
		t.Errorf("R() = %d, want 40", b.R())
	}
	if b.B() != 60 {
		t.Errorf("B() = %d, want 60", b.B())
	}
	if b.Area() != 1200 {
		t.Errorf("Area() = %d, want 1200", b.Area())
	}
	if c := b.Center(); c.X != 25 || c.Y != 40 {
		t.Errorf("Center() = %+v, want (25, 40)", c)
	}
}

func TestFromXYRB(t *testing.T) {
	b := FromXYRB(5, 10, 25, 50)
	if b.X != 5 || b.Y != 10 || b.W != 20 || b.H != 40 {
		t.Errorf("FromXYRB = %+v", b)
	}
}

func TestUnion(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 10, H: 10}
	b := BBox{X: 20, Y: 20, W: 10, H: 10}

	u := a.Union(b)
	if u.X != 0 || u.Y != 0 || u.R() != 30 || u.B() != 30 {
		t.Errorf("Union = %+v", u)
	}
}

func TestOverlap(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 20, H: 20}
	b := BBox{X: 10, Y: 10, W: 20, H: 20}

	ov, ok := a.Overlap(b)
	if !ok {
		t.Fatal("expected overlap")
	}
	if ov.X != 10 || ov.Y != 10 || ov.W != 10 || ov.H != 10 {
		t.Errorf("Overlap = %+v", ov)
	}

	c := BBox{X: 100, Y: 100, W: 5, H: 5}
	if _, ok := a.Overlap(c); ok {
		t.Error("disjoint boxes should not overlap")
	}
}

func TestContainsMost(t *testing.T) {
	big := BBox{X: 0, Y: 0, W: 100, H: 100}
	inside := BBox{X: 10, Y: 10, W: 30, H: 30}
	half := BBox{X: 80, Y: 0, W: 40, H: 100}

	if !big.ContainsMost(inside) {
		t.Error("big should contain inside")
	}
	if big.ContainsMost(half) {
		t.Error("half-out box should not be mostly contained")
	}
}

func TestSameRow(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 50, H: 100}
	b := BBox{X: 60, Y: 10, W: 50, H: 100}
	below := BBox{X: 0, Y: 200, W: 50, H: 100}

	if !a.SameRow(b) {
		t.Error("overlapping vertical ranges should share a row")
	}
	if a.SameRow(below) {
		t.Error("vertically disjoint boxes should not share a row")
	}

	// overlap just under a third of the smaller height
	slight := BBox{X: 60, Y: 80, W: 50, H: 100}
	if a.SameRow(slight) {
		t.Error("20px overlap of a 100-high box is under a third: expected false")
	}
}

func TestSameRowThird(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 50, H: 90}
	// vertical intersection is 20 of 90 (under a third)
	b := BBox{X: 60, Y: 70, W: 50, H: 90}
	if a.SameRow(b) {
		t.Error("sub-third overlap should not share a row")
	}
	// intersection is 40 of 90 (over a third)
	c := BBox{X: 60, Y: 50, W: 50, H: 90}
	if !a.SameRow(c) {
		t.Error("over-third overlap should share a row")
	}
}

func TestIsClose(t *testing.T) {
	a := BBox{X: 0, Y: 0, W: 20, H: 20}
	near := BBox{X: 30, Y: 0, W: 20, H: 20}
	far := BBox{X: 200, Y: 200, W: 20, H: 20}

	if !a.IsClose(near, 0.75) {
		t.Error("adjacent fragments should be close")
	}
	if a.IsClose(far, 0.75) {
		t.Error("distant boxes should not be close")
	}
}

func TestClamp(t *testing.T) {
	b := BBox{X: -10, Y: -10, W: 50, H: 50}
	c := b.Clamp(100, 100)
	if c.X != 0 || c.Y != 0 {
		t.Errorf("Clamp origin = (%d, %d), want (0, 0)", c.X, c.Y)
	}

	b = BBox{X: 80, Y: 80, W: 50, H: 50}
	c = b.Clamp(100, 100)
	if c.R() > 100 || c.B() > 100 {
		t.Errorf("Clamp exceeded page: %+v", c)
	}
}

func TestScale(t *testing.T) {
	b := BBox{X: 50, Y: 100, W: 200, H: 300}

	if got := b.Scale(1.0); got != b {
		t.Errorf("Scale(1.0) changed box: %+v", got)
	}

	got := b.Scale(0.5)
	if got.X != 100 || got.Y != 200 || got.W != 400 || got.H != 600 {
		t.Errorf("Scale(0.5) = %+v", got)
	}
}

func TestNeighbors(t *testing.T) {
	// 2x2 grid with 10px gutters
	boxes := []BBox{
		{X: 0, Y: 0, W: 100, H: 100},     // top-left
		{X: 110, Y: 0, W: 100, H: 100},   // top-right
		{X: 0, Y: 110, W: 100, H: 100},   // bottom-left
		{X: 110, Y: 110, W: 100, H: 100}, // bottom-right
	}

	if n := RightNeighbor(0, boxes); n != 1 {
		t.Errorf("RightNeighbor(top-left) = %d, want 1", n)
	}
	if n := LeftNeighbor(1, boxes); n != 0 {
		t.Errorf("LeftNeighbor(top-right) = %d, want 0", n)
	}
	if n := BottomNeighbor(0, boxes); n != 2 {
		t.Errorf("BottomNeighbor(top-left) = %d, want 2", n)
	}
	if n := TopNeighbor(3, boxes); n != 1 {
		t.Errorf("TopNeighbor(bottom-right) = %d, want 1", n)
	}
	if n := LeftNeighbor(0, boxes); n != -1 {
		t.Errorf("LeftNeighbor(top-left) = %d, want -1", n)
	}
	if n := TopNeighbor(0, boxes); n != -1 {
		t.Errorf("TopNeighbor(top-left) = %d, want -1", n)
	}
}
