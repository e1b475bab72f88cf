package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// ErrNotFound is returned when a site or user does not exist.
var ErrNotFound = errors.New("repo: not found")

// ErrLocked is returned by a CycleLocker when another cycle holds the lock.
var ErrLocked = errors.New("repo: cycle lock held")

// SiteFilter narrows ListSites. The zero value selects every site.
type SiteFilter struct {
	UserID domain.UserID
}

// StatusUpdate is written in a single statement: either every field lands
// or none does.
type StatusUpdate struct {
	Status         domain.Status
	CheckedAt      time.Time
	ResponseTimeMS int64
}

// Ports (interfaces) implemented by memory, sqlite and postgres.
type SiteStore interface {
	ListSites(ctx context.Context, f SiteFilter) ([]domain.MonitoredSite, error)
	GetSite(ctx context.Context, id domain.SiteID) (*domain.MonitoredSite, error)
	UpdateSiteStatus(ctx context.Context, id domain.SiteID, u StatusUpdate) error
}

type UserStore interface {
	// UserEmail returns "" when the user has no email on record and
	// ErrNotFound when the user does not exist.
	UserEmail(ctx context.Context, id domain.UserID) (string, error)
}

// CycleLocker keeps reconciliation cycles from overlapping. Acquire returns
// the release func, or ErrLocked when the lock is taken.
type CycleLocker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}
