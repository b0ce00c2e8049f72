package detect

import (
	"github.com/panelworks/panel-detect/internal/geometry"
)

// Source identifies which detector produced a panel.
type Source string

const (
	SourceCV     Source = "cv"
	SourceYOLO   Source = "yolo"
	SourceSAM    Source = "sam"
	SourceVLM    Source = "vlm"
	SourceManual Source = "manual"
)

// ReadingDirection is the page-level reading order convention.
type ReadingDirection string

const (
	LTR ReadingDirection = "ltr"
	RTL ReadingDirection = "rtl"
)

// Stage names a step of the per-page detection state machine.
type Stage string

const (
	StagePending    Stage = "pending"
	StageExtracted  Stage = "extracted"
	StageCandidates Stage = "candidates_generated"
	StageRefined    Stage = "refined"
	StageOrdered    Stage = "ordered"
	StageScored     Stage = "scored"
)

// Panel is a single detected story-frame region.
//
// The ID is stable within one page. Bbox coordinates are always in the
// original full-resolution page-pixel space by the time a panel is
// surfaced externally.
type Panel struct {
	ID         string           `json:"id"`
	BBox       geometry.BBox    `json:"bbox"`
	Polygon    geometry.Polygon `json:"polygon,omitempty"`
	Source     Source           `json:"source"`
	Confidence float64          `json:"confidence"`

	// splitCoverage is the fraction of the split line covered by detected
	// segments for panels produced by splitting; negative when the panel
	// was not produced by a split.
	splitCoverage float64
	// splittable is cleared for grouped panels and panels that already
	// failed to split, so refinement terminates.
	splittable bool
}

// SplitCoverage returns the detected-segment coverage of the split that
// produced this panel, and whether the panel was produced by a split.
func (p Panel) SplitCoverage() (float64, bool) {
	if p.splitCoverage < 0 {
		return 0, false
	}
	return p.splitCoverage, true
}

// PageResult is the immutable outcome of one detection call for one
// (page, settings) pair.
type PageResult struct {
	// Index is the zero-based page index within the book.
	Index int `json:"index"`

	// Size is the original page dimensions [width, height] in pixels.
	Size [2]int `json:"size"`

	// Panels are the detected panels in detection order.
	Panels []Panel `json:"panels"`

	// Order is the resolved reading order: a permutation of the panel IDs.
	Order []string `json:"order"`

	// OrderConfidence scores how unambiguous the resolved order is.
	OrderConfidence float64 `json:"order_confidence"`

	// CVConfidence is the page-level aggregate confidence in [0, 1].
	CVConfidence float64 `json:"cv_confidence"`

	// Source is the detector that produced this result.
	Source Source `json:"source"`

	// Escalated is set when CVConfidence falls below the acceptance
	// threshold and the page should be routed to a heavier detector or
	// human review.
	Escalated bool `json:"escalated"`

	// Gutters is the estimated [x, y] gutter width in original pixels.
	Gutters [2]int `json:"gutters"`

	// UserOverride is set on effective results that have a manual
	// override merged in. Never set on raw detection output.
	UserOverride bool `json:"user_override"`

	// SkipScoring echoes the setting: when set, confidence values are
	// placeholders and Escalated is always false.
	SkipScoring bool `json:"skip_scoring"`

	// SettingsHash identifies the Settings value this result was computed
	// under; it participates in the cache key.
	SettingsHash string `json:"settings_hash"`

	// ProcessingTime is the wall-clock detection time in seconds.
	ProcessingTime float64 `json:"processing_time"`
}

// AcceptThreshold is the page-level confidence at or above which a
// detection proposal is accepted without escalation.
const AcceptThreshold = 0.8

func newPanel(id string, bbox geometry.BBox, poly geometry.Polygon) Panel {
	return Panel{
		ID:            id,
		BBox:          bbox,
		Polygon:       poly,
		Source:        SourceCV,
		splitCoverage: -1,
		splittable:    true,
	}
}
