package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type SiteID string

type UserID string

// Status is the persisted reachability of a site. The zero value means the
// site has never been checked.
type Status string

const (
	StatusUnknown Status = ""
	StatusUp      Status = "Up"
	StatusDown    Status = "Down"
)

// ParseStatus maps stored values onto a Status. Anything unrecognised is
// StatusUnknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return StatusUp
	case "down":
		return StatusDown
	default:
		return StatusUnknown
	}
}

func StatusFromReachable(up bool) Status {
	if up {
		return StatusUp
	}
	return StatusDown
}

func (s Status) String() string {
	if s == StatusUnknown {
		return "unknown"
	}
	return string(s)
}

// MarshalJSON encodes StatusUnknown as null.
func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *Status) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = StatusUnknown
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

type MonitoredSite struct {
	ID                 SiteID     `json:"id"`
	URL                string     `json:"url"`
	UserID             UserID     `json:"userId"`
	Status             Status     `json:"status"`
	LastCheckedAt      *time.Time `json:"lastChecked,omitempty"`
	LastResponseTimeMS *int64     `json:"responseTime,omitempty"`
}

type User struct {
	ID    UserID `json:"id"`
	Email string `json:"email,omitempty"`
}
