package detect

import (
	"github.com/panelworks/panel-detect/internal/geometry"
	"github.com/panelworks/panel-detect/internal/vision"
)

// simplifyTolerance scales the polygon simplification epsilon by the
// contour perimeter.
const simplifyTolerance = 0.001

// buildCandidates converts traced contours into the initial candidate
// panel set. Each contour is simplified with a tolerance proportional to
// its perimeter, then filtered: anything with a bounding box dimension
// below a tenth of the minimum panel size is discarded immediately as
// noise. IDs and confidence are assigned later.
func buildCandidates(contours []geometry.Polygon, pageW, pageH int, s Settings) []Panel {
	panels := make([]Panel, 0, len(contours))
	for _, contour := range contours {
		poly := geometry.Simplify(contour, simplifyTolerance*contour.Perimeter())
		if len(poly) < 3 {
			continue
		}
		bbox := poly.Bounds()
		if isSmall(bbox, pageW, pageH, s.MinPanelRatio/10) {
			continue
		}
		panels = append(panels, newPanel("", bbox, poly))
	}
	return panels
}

// fullPagePanel implements the empty-candidate-set policy: a page where
// nothing was detected is treated as one full-page panel, not a failure.
func fullPagePanel(pageW, pageH int) Panel {
	bbox := geometry.BBox{X: 0, Y: 0, W: pageW, H: pageH}
	return newPanel("", bbox, geometry.Rect(bbox))
}

// isSmall reports whether either bbox dimension falls below ratio times
// the corresponding page dimension.
func isSmall(b geometry.BBox, pageW, pageH int, ratio float64) bool {
	return float64(b.W) < float64(pageW)*ratio || float64(b.H) < float64(pageH)*ratio
}

// pageContext carries the per-page read-only inputs shared by the
// refinement steps.
type pageContext struct {
	w, h      int
	settings  Settings
	intensity vision.Intensity
	gradient  vision.GradientMap
	segments  []geometry.Segment
}

func (c pageContext) small(b geometry.BBox) bool {
	return isSmall(b, c.w, c.h, c.settings.MinPanelRatio)
}

func (c pageContext) smallAt(b geometry.BBox, extra float64) bool {
	return isSmall(b, c.w, c.h, c.settings.MinPanelRatio*extra)
}
