package scheduler

import "github.com/hamed0406/sitewatch/internal/domain"

// Transition is the classified result of comparing a probe with the stored
// status.
type Transition struct {
	NewStatus domain.Status
	Changed   bool
	Kind      domain.TransitionKind
}

// Classify compares the stored status with what the probe observed. A site
// with no stored status gets a baseline transition, which never alerts.
func Classify(prev domain.Status, reachable bool) Transition {
	next := domain.StatusFromReachable(reachable)
	t := Transition{NewStatus: next, Changed: next != prev}

	switch {
	case prev == domain.StatusUnknown:
		t.Kind = domain.TransitionBaseline
	case !t.Changed:
		t.Kind = domain.TransitionUnchanged
	case next == domain.StatusDown:
		t.Kind = domain.TransitionNewlyDown
	default:
		t.Kind = domain.TransitionRecovered
	}
	return t
}
