package store

import (
	"sync"

	"github.com/panelworks/panel-detect/internal/detect"
)

// Override is a manual correction for one page. Either field may be nil:
// a nil Panels keeps the detected panels, a nil Order keeps the resolved
// order. Overrides live in a separate layer and survive re-detection; the
// automatic result they shadow is never modified.
type Override struct {
	// Panels, when set, fully replaces the detected panel set.
	Panels []detect.Panel `json:"panels,omitempty"`

	// Order, when set, replaces the resolved reading order. It must be a
	// permutation of the effective panel IDs.
	Order []string `json:"order,omitempty"`
}

// Empty reports whether the override changes nothing.
func (o Override) Empty() bool {
	return o.Panels == nil && o.Order == nil
}

// OverrideStore keeps per-page overrides for one book. Safe for
// concurrent use.
type OverrideStore struct {
	mu        sync.RWMutex
	overrides map[int]Override
}

// NewOverrideStore returns an empty store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{overrides: make(map[int]Override)}
}

// Set installs the override for a page, replacing any previous one.
// Empty overrides clear the page instead.
func (s *OverrideStore) Set(page int, ov Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ov.Empty() {
		delete(s.overrides, page)
		return
	}
	s.overrides[page] = ov
}

// Get returns the override for a page, if any.
func (s *OverrideStore) Get(page int) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.overrides[page]
	return ov, ok
}

// Delete removes the override for a page.
func (s *OverrideStore) Delete(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, page)
}

// Snapshot returns a copy of all overrides, for serialization.
func (s *OverrideStore) Snapshot() map[int]Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]Override, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// MergeResult applies an override to an automatic result, producing the
// effective result a reader sees. The input result is never mutated; the
// merge is a pure function, so re-running detection and re-applying the
// same override always yields the same effective view.
func MergeResult(res detect.PageResult, ov Override, dir detect.ReadingDirection) detect.PageResult {
	out := res
	out.Panels = append([]detect.Panel(nil), res.Panels...)
	out.Order = append([]string(nil), res.Order...)
	if ov.Empty() {
		return out
	}

	if ov.Panels != nil {
		out.Panels = append([]detect.Panel(nil), ov.Panels...)
		for i := range out.Panels {
			out.Panels[i].Source = detect.SourceManual
			out.Panels[i].Confidence = 1.0
		}
		// a manual panel set invalidates the automatic order unless the
		// override also supplies one
		if ov.Order == nil {
			order, conf := detect.OrderPanels(out.Panels, dir)
			out.Order = order
			out.OrderConfidence = conf
		}
	}
	if ov.Order != nil {
		out.Order = append([]string(nil), ov.Order...)
		out.OrderConfidence = 1.0
	}

	out.Source = detect.SourceManual
	out.UserOverride = true
	out.Escalated = false
	return out
}
