// Package detect implements the panel detection core: candidate
// generation, the five-step refinement engine, reading-order resolution,
// confidence scoring and the per-page pipeline orchestrator.
//
// # Pipeline
//
// Each page moves through a fixed sequence of stages:
//
//	Pending -> Extracted -> CandidatesGenerated -> Refined -> Ordered ->
//	Scored -> Accepted | Escalated
//
// There are no loops back. A failure at any stage aborts that page with a
// typed error; the one exception is an empty candidate set, which is
// resolved by treating the whole page as a single full-page panel.
//
// # Determinism
//
// Detection is a pure function of (page image, settings): repeated runs
// produce bit-identical panels and order. No ambient state is consulted;
// all tunables travel in an explicit Settings value.
//
// # Confidence Contract
//
// The page-level confidence is the fourth root of the product of the
// area-weighted mean of per-panel confidences, a panel-count factor, a
// coverage factor and a gutter-variance factor. The piecewise constants
// in confidence.go are part of the external contract: scores must stay
// comparable across versions so that the 0.8 escalation threshold keeps
// its meaning.
package detect
