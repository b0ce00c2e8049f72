package detect

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

// createPageImage creates a white page image
func createPageImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

// drawPanelBorder draws a black rectangle outline with the given stroke
func drawPanelBorder(img *image.RGBA, x0, y0, x1, y1, stroke int) {
	for t := 0; t < stroke; t++ {
		for x := x0; x <= x1; x++ {
			img.Set(x, y0+t, color.Black)
			img.Set(x, y1-t, color.Black)
		}
		for y := y0; y <= y1; y++ {
			img.Set(x0+t, y, color.Black)
			img.Set(x1-t, y, color.Black)
		}
	}
}

// createStackedPanelsPage draws n vertically stacked bordered panels
func createStackedPanelsPage(width, height, n int) *image.RGBA {
	img := createPageImage(width, height)
	gutter := 12
	panelH := (height - (n+1)*gutter) / n
	for i := 0; i < n; i++ {
		y0 := gutter + i*(panelH+gutter)
		drawPanelBorder(img, gutter, y0, width-gutter, y0+panelH, 3)
	}
	return img
}

// drawHLine draws a stroke-thick horizontal line from x0 to x1 at y
func drawHLine(img *image.RGBA, x0, x1, y, stroke int) {
	for t := 0; t < stroke; t++ {
		for x := x0; x <= x1; x++ {
			img.Set(x, y+t, color.Black)
		}
	}
}

// drawVLine draws a stroke-thick vertical line from y0 to y1 at x
func drawVLine(img *image.RGBA, y0, y1, x, stroke int) {
	for t := 0; t < stroke; t++ {
		for y := y0; y <= y1; y++ {
			img.Set(x+t, y, color.Black)
		}
	}
}

// createGridPage draws a single outer border with internal divider lines
// forming a rows x cols grid, the layout a ruled comic page produces
func createGridPage(width, height, rows, cols int) *image.RGBA {
	img := createPageImage(width, height)
	inset := 10
	drawPanelBorder(img, inset, inset, width-1-inset, height-1-inset, 3)
	for c := 1; c < cols; c++ {
		x := inset + c*(width-2*inset)/cols
		drawVLine(img, inset, height-1-inset, x, 3)
	}
	for r := 1; r < rows; r++ {
		y := inset + r*(height-2*inset)/rows
		drawHLine(img, inset, width-1-inset, y, 3)
	}
	return img
}

// createShardPage draws 20 small bordered boxes in a tight 4x5 cluster,
// the signature of one shattered panel
func createShardPage(width, height int) *image.RGBA {
	img := createPageImage(width, height)
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			x0 := 40 + col*85
			y0 := 40 + row*85
			drawPanelBorder(img, x0, y0, x0+60, y0+60, 3)
		}
	}
	return img
}

func newTestDetector(t *testing.T, s Settings) *Detector {
	t.Helper()
	d, err := NewDetector(s, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDetectRejectsNilImage(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	_, err := d.Detect(nil, 0, LTR)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Error("error should carry its stage")
	}
}

func TestDetectRejectsEmptyImage(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	if _, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 0, 0)), 0, LTR); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestDetectBlankPageFallsBack(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())

	res, err := d.Detect(createPageImage(300, 400), 7, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) != 1 {
		t.Fatalf("blank page produced %d panels, want 1 full-page panel", len(res.Panels))
	}
	p := res.Panels[0]
	if p.BBox.W < 290 || p.BBox.H < 390 {
		t.Errorf("fallback panel = %+v, want near full page", p.BBox)
	}
	if res.Index != 7 {
		t.Errorf("index = %d, want 7", res.Index)
	}
	if res.Size != [2]int{300, 400} {
		t.Errorf("size = %v", res.Size)
	}
}

func TestDetectResultInvariants(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())

	res, err := d.Detect(createStackedPanelsPage(400, 600, 3), 0, LTR)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Panels) == 0 {
		t.Fatal("no panels detected")
	}
	if len(res.Order) != len(res.Panels) {
		t.Fatalf("order length %d != panel count %d", len(res.Order), len(res.Panels))
	}

	ids := make(map[string]bool)
	for _, p := range res.Panels {
		if p.BBox.X < 0 || p.BBox.Y < 0 || p.BBox.R() > 400 || p.BBox.B() > 600 {
			t.Errorf("panel %s outside page: %+v", p.ID, p.BBox)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("panel %s confidence %v out of range", p.ID, p.Confidence)
		}
		if p.Source != SourceCV {
			t.Errorf("panel %s source = %s", p.ID, p.Source)
		}
		ids[p.ID] = true
	}
	for _, id := range res.Order {
		if !ids[id] {
			t.Errorf("order references unknown panel %s", id)
		}
	}

	if res.CVConfidence < 0 || res.CVConfidence > 1 {
		t.Errorf("page confidence %v out of range", res.CVConfidence)
	}
	if res.Escalated != (res.CVConfidence < AcceptThreshold) {
		t.Error("escalation flag inconsistent with threshold")
	}
	if res.SettingsHash != d.Settings().Hash() {
		t.Error("settings hash missing from result")
	}
	if res.ProcessingTime <= 0 {
		t.Error("processing time not recorded")
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	img := createStackedPanelsPage(400, 600, 3)

	a, err := d.Detect(img, 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Detect(img, 0, LTR)
	if err != nil {
		t.Fatal(err)
	}

	// everything except wall-clock time must be bit-identical
	a.ProcessingTime = 0
	b.ProcessingTime = 0
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated detection produced different results")
	}
}

func TestDetectSkipScoring(t *testing.T) {
	s := DefaultSettings()
	s.SkipScoring = true
	d := newTestDetector(t, s)

	res, err := d.Detect(createStackedPanelsPage(400, 600, 2), 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if !res.SkipScoring {
		t.Error("SkipScoring not echoed")
	}
	if res.Escalated {
		t.Error("skip-scoring pages must never escalate")
	}
	if res.CVConfidence != 1.0 {
		t.Errorf("placeholder confidence = %v, want 1.0", res.CVConfidence)
	}
	for _, p := range res.Panels {
		if p.Confidence != 1.0 {
			t.Errorf("panel %s confidence = %v, want 1.0", p.ID, p.Confidence)
		}
	}
}

func TestDetectDownscaleMapsBack(t *testing.T) {
	s := DefaultSettings()
	s.MaxDimension = 200
	d := newTestDetector(t, s)

	res, err := d.Detect(createPageImage(800, 1000), 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if res.Size != [2]int{800, 1000} {
		t.Errorf("size = %v, want original dimensions", res.Size)
	}
	// fallback panel must come back in original coordinates
	p := res.Panels[0]
	if p.BBox.W < 700 || p.BBox.H < 900 {
		t.Errorf("panel not mapped back to original resolution: %+v", p.BBox)
	}
}

// assertRowMajor checks that the reading order visits a rows x cols grid
// row by row, with each row traversed in the given direction
func assertRowMajor(t *testing.T, res PageResult, rows, cols int, dir ReadingDirection) {
	t.Helper()
	byID := make(map[string]Panel, len(res.Panels))
	for _, p := range res.Panels {
		byID[p.ID] = p
	}

	prevRow := -1
	rowCount := 0
	prevX := 0
	for _, id := range res.Order {
		p, ok := byID[id]
		if !ok {
			t.Fatalf("order references unknown panel %s", id)
		}
		row := p.BBox.Center().Y * rows / res.Size[1]
		if row < prevRow {
			t.Fatalf("order went back up from row %d to row %d", prevRow, row)
		}
		if row > prevRow {
			if prevRow >= 0 && rowCount != cols {
				t.Fatalf("row %d had %d panels, want %d", prevRow, rowCount, cols)
			}
			prevRow, rowCount = row, 0
		} else {
			if dir == RTL && p.BBox.X >= prevX {
				t.Fatalf("RTL row %d not right-to-left at panel %s", row, id)
			}
			if dir != RTL && p.BBox.X <= prevX {
				t.Fatalf("LTR row %d not left-to-right at panel %s", row, id)
			}
		}
		rowCount++
		prevX = p.BBox.X
	}
	if rowCount != cols {
		t.Fatalf("last row had %d panels, want %d", rowCount, cols)
	}
}

func TestDetectGridPage(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	img := createGridPage(400, 400, 3, 3)

	res, err := d.Detect(img, 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) != 9 {
		t.Fatalf("3x3 grid produced %d panels, want 9", len(res.Panels))
	}
	if res.CVConfidence < AcceptThreshold {
		t.Errorf("grid confidence = %v, want >= %v", res.CVConfidence, AcceptThreshold)
	}
	if res.Escalated {
		t.Error("clean grid page must not escalate")
	}
	assertRowMajor(t, res, 3, 3, LTR)

	rtl, err := d.Detect(img, 0, RTL)
	if err != nil {
		t.Fatal(err)
	}
	if len(rtl.Panels) != 9 {
		t.Fatalf("RTL pass produced %d panels, want 9", len(rtl.Panels))
	}
	assertRowMajor(t, rtl, 3, 3, RTL)
}

func TestDetectVerticalDividerSplits(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	img := createPageImage(400, 400)
	drawPanelBorder(img, 10, 10, 389, 389, 3)
	drawVLine(img, 10, 389, 199, 3)

	res, err := d.Detect(img, 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) != 2 {
		t.Fatalf("vertical divider produced %d panels, want 2", len(res.Panels))
	}
	for _, p := range res.Panels {
		if p.BBox.W < 150 || p.BBox.W > 250 {
			t.Errorf("half %s = %+v, want roughly half the page wide", p.ID, p.BBox)
		}
	}
}

func TestDetectDiagonalLineDoesNotSplit(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	img := createPageImage(400, 400)
	drawPanelBorder(img, 10, 10, 389, 389, 3)
	for i := 12; i <= 387; i++ {
		img.Set(i, i, color.Black)
		img.Set(i+1, i, color.Black)
		img.Set(i, i+1, color.Black)
	}

	res, err := d.Detect(img, 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) != 1 {
		t.Fatalf("diagonal stroke produced %d panels, want 1", len(res.Panels))
	}
}

func TestDetectShardPageGrouping(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())

	res, err := d.Detect(createShardPage(1000, 1000), 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) != 1 {
		t.Fatalf("shard cluster produced %d panels, want 1 group", len(res.Panels))
	}
}

func TestDetectShardPageWithoutGrouping(t *testing.T) {
	s := DefaultSettings()
	s.SmallPanelGrouping = false
	d := newTestDetector(t, s)

	res, err := d.Detect(createShardPage(1000, 1000), 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Panels) <= 12 {
		t.Fatalf("ungrouped shards produced %d panels, want the shards kept apart", len(res.Panels))
	}
	if !res.Escalated {
		t.Error("an over-segmented page must escalate")
	}
}

func TestDetectRTLOrder(t *testing.T) {
	d := newTestDetector(t, DefaultSettings())
	img := createStackedPanelsPage(400, 600, 2)

	ltr, err := d.Detect(img, 0, LTR)
	if err != nil {
		t.Fatal(err)
	}
	rtl, err := d.Detect(img, 0, RTL)
	if err != nil {
		t.Fatal(err)
	}
	// a vertical stack reads the same in both directions
	if len(ltr.Order) != len(rtl.Order) {
		t.Fatalf("order lengths differ: %d vs %d", len(ltr.Order), len(rtl.Order))
	}
	for i := range ltr.Order {
		if ltr.Order[i] != rtl.Order[i] {
			t.Error("vertical stack order should not depend on direction")
			break
		}
	}
}
