package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the complete, explicit configuration of one detection call.
//
// A Settings value is threaded through every pipeline stage; no tunable
// lives in ambient state, so concurrent pages running under different
// settings cannot interfere. The settings hash participates in the result
// cache key: changing any field invalidates cached results for affected
// pages only.
type Settings struct {
	// MinPanelRatio is the minimum panel dimension as a fraction of the
	// corresponding page dimension.
	MinPanelRatio float64 `json:"min_panel_ratio" yaml:"min_panel_ratio"`

	// MinSegmentRatio is the minimum segment length as a fraction of the
	// smaller page dimension. Zero means half of MinPanelRatio.
	MinSegmentRatio float64 `json:"min_segment_ratio" yaml:"min_segment_ratio"`

	// MaxSegments caps both the extracted segment list and the number of
	// split attempts per candidate.
	MaxSegments int `json:"max_segments" yaml:"max_segments"`

	PanelExpansion     bool `json:"panel_expansion" yaml:"panel_expansion"`
	SmallPanelGrouping bool `json:"small_panel_grouping" yaml:"small_panel_grouping"`
	BigPanelGrouping   bool `json:"big_panel_grouping" yaml:"big_panel_grouping"`
	PanelSplitting     bool `json:"panel_splitting" yaml:"panel_splitting"`

	UseDenoising           bool `json:"use_denoising" yaml:"use_denoising"`
	UseCanny               bool `json:"use_canny" yaml:"use_canny"`
	UseMorphologicalClose  bool `json:"use_morphological_close" yaml:"use_morphological_close"`
	PreferAxisAligned      bool `json:"prefer_axis_aligned" yaml:"prefer_axis_aligned"`
	UseSegmentQualityScore bool `json:"use_lsd_nfa" yaml:"use_lsd_nfa"`

	// SkipScoring bypasses the confidence model: panels are labeled by
	// order index with confidence 1.0 and the page never escalates.
	SkipScoring bool `json:"skip_scoring" yaml:"skip_scoring"`

	// MaxDimension downscales pages whose larger dimension exceeds it
	// (0 = no limit). Output coordinates are always mapped back to the
	// original resolution.
	MaxDimension int `json:"max_dimension" yaml:"max_dimension"`

	// GradientWeightX and GradientWeightY combine the directional Sobel
	// magnitudes into one gradient map.
	GradientWeightX float64 `json:"gradient_weight_x" yaml:"gradient_weight_x"`
	GradientWeightY float64 `json:"gradient_weight_y" yaml:"gradient_weight_y"`

	// GutterMaxVariance is the maximum intensity variance along a split
	// line for it to count as a real gutter rather than artwork.
	GutterMaxVariance float64 `json:"gutter_max_variance" yaml:"gutter_max_variance"`

	// SplitMinCoverage is the minimum fraction of a split line that must
	// be covered by detected segments.
	SplitMinCoverage float64 `json:"split_min_coverage" yaml:"split_min_coverage"`

	// ProximityFactor scales the center-distance test for small-panel
	// clustering.
	ProximityFactor float64 `json:"proximity_factor" yaml:"proximity_factor"`

	// AxisAlignedToleranceDeg classifies segments within this many degrees
	// of horizontal or vertical as axis-aligned border evidence.
	AxisAlignedToleranceDeg float64 `json:"axis_aligned_tolerance_deg" yaml:"axis_aligned_tolerance_deg"`
}

// DefaultSettings returns the tuned defaults.
func DefaultSettings() Settings {
	return Settings{
		MinPanelRatio:           0.10,
		MinSegmentRatio:         0, // derived: MinPanelRatio / 2
		MaxSegments:             500,
		PanelExpansion:          true,
		SmallPanelGrouping:      true,
		BigPanelGrouping:        true,
		PanelSplitting:          true,
		UseDenoising:            true,
		UseCanny:                false,
		UseMorphologicalClose:   false,
		PreferAxisAligned:       true,
		UseSegmentQualityScore:  false,
		SkipScoring:             false,
		MaxDimension:            2000,
		GradientWeightX:         0.5,
		GradientWeightY:         0.5,
		GutterMaxVariance:       400.0,
		SplitMinCoverage:        0.5,
		ProximityFactor:         0.75,
		AxisAlignedToleranceDeg: 15.0,
	}
}

// LoadSettings reads a Settings value from a YAML file, starting from
// defaults so partial files are valid.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate rejects out-of-range parameters. It runs once before any page
// is processed; a failure aborts the whole batch up front.
func (s Settings) Validate() error {
	if s.MinPanelRatio <= 0 || s.MinPanelRatio >= 1 {
		return fmt.Errorf("%w: min_panel_ratio %v not in (0, 1)", ErrSettingsInvalid, s.MinPanelRatio)
	}
	if s.MinSegmentRatio < 0 || s.MinSegmentRatio >= 1 {
		return fmt.Errorf("%w: min_segment_ratio %v not in [0, 1)", ErrSettingsInvalid, s.MinSegmentRatio)
	}
	if s.MaxSegments <= 0 {
		return fmt.Errorf("%w: max_segments %d must be positive", ErrSettingsInvalid, s.MaxSegments)
	}
	if s.MaxDimension < 0 {
		return fmt.Errorf("%w: max_dimension %d must be >= 0", ErrSettingsInvalid, s.MaxDimension)
	}
	if s.GradientWeightX < 0 || s.GradientWeightY < 0 || s.GradientWeightX+s.GradientWeightY == 0 {
		return fmt.Errorf("%w: gradient weights %v/%v", ErrSettingsInvalid, s.GradientWeightX, s.GradientWeightY)
	}
	if s.GutterMaxVariance < 0 {
		return fmt.Errorf("%w: gutter_max_variance %v must be >= 0", ErrSettingsInvalid, s.GutterMaxVariance)
	}
	if s.SplitMinCoverage < 0 || s.SplitMinCoverage > 1 {
		return fmt.Errorf("%w: split_min_coverage %v not in [0, 1]", ErrSettingsInvalid, s.SplitMinCoverage)
	}
	if s.ProximityFactor <= 0 {
		return fmt.Errorf("%w: proximity_factor %v must be positive", ErrSettingsInvalid, s.ProximityFactor)
	}
	if s.AxisAlignedToleranceDeg <= 0 || s.AxisAlignedToleranceDeg >= 45 {
		return fmt.Errorf("%w: axis_aligned_tolerance_deg %v not in (0, 45)", ErrSettingsInvalid, s.AxisAlignedToleranceDeg)
	}
	return nil
}

// segmentRatio returns the effective minimum segment ratio.
func (s Settings) segmentRatio() float64 {
	if s.MinSegmentRatio > 0 {
		return s.MinSegmentRatio
	}
	return s.MinPanelRatio / 2
}

// Hash returns a stable identifier for this Settings value, suitable for
// use in cache keys. Two equal Settings values always hash identically.
func (s Settings) Hash() string {
	data, _ := json.Marshal(s)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
