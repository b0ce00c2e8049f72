package detect

import (
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/panelworks/panel-detect/internal/geometry"
	"github.com/panelworks/panel-detect/internal/vision"
)

// Canny hysteresis thresholds, on the [0, 255] intensity scale.
const (
	cannyLow  = 50
	cannyHigh = 150
)

// Detector runs the detection pipeline over single pages. A Detector is
// immutable after construction and safe for concurrent use; every Detect
// call is independent.
type Detector struct {
	settings Settings
	log      zerolog.Logger
}

// NewDetector validates the settings and returns a ready Detector.
func NewDetector(settings Settings, log zerolog.Logger) (*Detector, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Detector{settings: settings, log: log}, nil
}

// Settings returns the settings this detector was built with.
func (d *Detector) Settings() Settings { return d.settings }

// Detect runs the full pipeline on one page image: feature extraction,
// candidate generation, refinement, reading-order resolution and
// scoring, with all coordinates mapped back to the original resolution.
// Detection is deterministic: the same image under the same settings
// always produces an identical result.
func (d *Detector) Detect(img image.Image, pageIndex int, dir ReadingDirection) (PageResult, error) {
	start := time.Now()

	if img == nil {
		return PageResult{}, stageErr(StagePending, ErrInvalidImage)
	}
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW <= 0 || origH <= 0 {
		return PageResult{}, stageErr(StagePending,
			fmt.Errorf("%w: %dx%d", ErrInvalidImage, origW, origH))
	}

	log := d.log.With().Int("page", pageIndex).Logger()

	// stage: extracted
	working, scale := vision.Downscale(img, d.settings.MaxDimension)
	wb := working.Bounds()
	w, h := wb.Dx(), wb.Dy()

	intensity := vision.NewIntensity(working, d.settings.UseDenoising)

	var gradient vision.GradientMap
	if d.settings.UseCanny {
		gradient = vision.CannyGradient(intensity, cannyLow, cannyHigh)
	} else {
		gradient = vision.SobelGradient(intensity, d.settings.GradientWeightX, d.settings.GradientWeightY)
	}
	if d.settings.UseMorphologicalClose {
		gradient = vision.MorphologicalClose(gradient)
	}
	mask := vision.OtsuThreshold(gradient)

	segments := vision.DetectSegments(mask, w, h, vision.SegmentOptions{
		MinLength:         d.settings.segmentRatio() * float64(min(w, h)),
		MaxSegments:       d.settings.MaxSegments,
		PreferAxisAligned: d.settings.PreferAxisAligned,
		UseQualityScore:   d.settings.UseSegmentQualityScore,
	})
	log.Debug().Int("segments", len(segments)).Msg("extracted page features")

	ctx := pageContext{
		w:         w,
		h:         h,
		settings:  d.settings,
		intensity: intensity,
		gradient:  gradient,
		segments:  segments,
	}

	// stage: candidates generated
	contours := vision.Contours(mask, w, h)
	panels := buildCandidates(contours, w, h, d.settings)
	if len(panels) == 0 {
		log.Info().Msg("no candidates, falling back to full-page panel")
		panels = []Panel{fullPagePanel(w, h)}
	}

	// stage: refined
	panels = refine(panels, ctx, log)
	if len(panels) == 0 {
		panels = []Panel{fullPagePanel(w, h)}
	}
	for i := range panels {
		panels[i].BBox = panels[i].BBox.Clamp(w, h)
		panels[i].ID = fmt.Sprintf("p-%d", i)
	}

	// stage: ordered
	order, orderConf := OrderPanels(panels, dir)

	// stage: scored
	var cvConf float64
	escalated := false
	if d.settings.SkipScoring {
		for i := range panels {
			panels[i].Confidence = 1.0
		}
		cvConf = 1.0
	} else {
		panels = scorePanels(panels, ctx)
		cvConf = pageConfidence(panels, w, h)
		escalated = cvConf < AcceptThreshold
	}

	// map everything back to original resolution
	gx, gy := workingGutters(panels)
	for i := range panels {
		panels[i].BBox = panels[i].BBox.Scale(scale).Clamp(origW, origH)
		panels[i].Polygon = panels[i].Polygon.Scale(scale)
	}
	if scale != 1.0 && scale != 0 {
		gx = int(float64(gx) / scale)
		gy = int(float64(gy) / scale)
	}

	result := PageResult{
		Index:           pageIndex,
		Size:            [2]int{origW, origH},
		Panels:          panels,
		Order:           order,
		OrderConfidence: orderConf,
		CVConfidence:    cvConf,
		Source:          SourceCV,
		Escalated:       escalated,
		Gutters:         [2]int{gx, gy},
		SkipScoring:     d.settings.SkipScoring,
		SettingsHash:    d.settings.Hash(),
		ProcessingTime:  time.Since(start).Seconds(),
	}

	log.Info().
		Int("panels", len(panels)).
		Float64("confidence", cvConf).
		Bool("escalated", escalated).
		Dur("elapsed", time.Since(start)).
		Msg("page detected")
	return result, nil
}

// workingGutters estimates gutter widths from the final panel set, still
// in working coordinates.
func workingGutters(panels []Panel) (int, int) {
	boxes := make([]geometry.BBox, len(panels))
	for i, p := range panels {
		boxes[i] = p.BBox
	}
	return actualGutters(boxes)
}
