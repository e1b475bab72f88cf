package domain

import "time"

type TransitionKind string

const (
	TransitionUnchanged TransitionKind = "unchanged"
	TransitionRecovered TransitionKind = "recovered"
	TransitionNewlyDown TransitionKind = "newly_down"
	// TransitionBaseline is the first check of a site with no stored status.
	TransitionBaseline TransitionKind = "baseline"
)

// SiteResult is what one site contributed to a cycle.
type SiteResult struct {
	SiteID         SiteID         `json:"siteId"`
	URL            string         `json:"url"`
	PreviousStatus Status         `json:"previousStatus"`
	Status         Status         `json:"status"`
	StatusChanged  bool           `json:"statusChanged"`
	Transition     TransitionKind `json:"transition"`
	ResponseTimeMS int64          `json:"responseTime"`
	HTTPStatus     int            `json:"httpStatus,omitempty"`
	Error          string         `json:"error,omitempty"`        // probe failure detail
	PersistError   string         `json:"persistError,omitempty"` // status was not saved
	Notified       bool           `json:"notified"`
	CheckedAt      time.Time      `json:"checkedAt"`
}

// Persisted reports whether the site's new state reached the store.
func (r SiteResult) Persisted() bool { return r.PersistError == "" }

type Summary struct {
	CycleID    string       `json:"cycleId"`
	Total      int          `json:"total"`
	Up         int          `json:"up"`
	Down       int          `json:"down"`
	Errors     int          `json:"errors"`
	Partial    bool         `json:"partial"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Results    []SiteResult `json:"results"`
}

// Add appends r and updates the counters.
func (s *Summary) Add(r SiteResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusUp:
		s.Up++
	case StatusDown:
		s.Down++
	}
	if !r.Persisted() {
		s.Errors++
	}
}
