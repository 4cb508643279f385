package domain

import "fmt"

// Phase identifies a stage of the anonymization pipeline. The pipeline is
// a straight-line batch computation: no backward transitions exist, and a
// failed run is re-run from scratch rather than resumed.
type Phase int

// Pipeline phases in execution order.
const (
	PhasePending Phase = iota
	PhaseClassified
	PhaseMerged
	PhaseQuotaFilled
	PhaseBalanced
	PhaseAggregated
	PhaseVerified
	PhaseDelivered
	PhaseRejected
)

var phaseNames = map[Phase]string{
	PhasePending:     "pending",
	PhaseClassified:  "classified",
	PhaseMerged:      "merged",
	PhaseQuotaFilled: "quota_filled",
	PhaseBalanced:    "balanced",
	PhaseAggregated:  "aggregated",
	PhaseVerified:    "verified",
	PhaseDelivered:   "delivered",
	PhaseRejected:    "rejected",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether the phase ends the pipeline.
func (p Phase) Terminal() bool { return p == PhaseDelivered || p == PhaseRejected }

// CanTransition reports whether next is a legal successor of p. Verified
// may move only to Delivered or Rejected; every earlier phase advances
// one step or aborts to Rejected.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseRejected {
		return true
	}
	return next == p+1 && next <= PhaseDelivered
}

// Advance returns next after validating the transition.
func (p Phase) Advance(next Phase) (Phase, error) {
	if !p.CanTransition(next) {
		return p, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p, next)
	}
	return next, nil
}
