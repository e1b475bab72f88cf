package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

func TestMemoryStore_ListKeepsInsertionOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, site := range []*domain.MonitoredSite{
		{ID: "s3", URL: "https://c.example", UserID: "u1"},
		{ID: "s1", URL: "https://a.example", UserID: "u2"},
		{ID: "s2", URL: "https://b.example", UserID: "u1"},
	} {
		if err := s.AddSite(ctx, site); err != nil {
			t.Fatalf("AddSite: %v", err)
		}
	}

	all, err := s.ListSites(ctx, repo.SiteFilter{})
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(all) != 3 || all[0].ID != "s3" || all[1].ID != "s1" || all[2].ID != "s2" {
		t.Fatalf("unexpected order: %+v", all)
	}

	mine, err := s.ListSites(ctx, repo.SiteFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListSites filtered: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "s3" || mine[1].ID != "s2" {
		t.Fatalf("unexpected filtered list: %+v", mine)
	}
}

func TestMemoryStore_AddSiteAssignsID(t *testing.T) {
	s := New()
	site := &domain.MonitoredSite{URL: "https://example.com"}
	if err := s.AddSite(context.Background(), site); err != nil {
		t.Fatalf("AddSite: %v", err)
	}
	if site.ID == "" {
		t.Fatalf("expected site ID to be set")
	}
}

func TestMemoryStore_UpdateSiteStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddSite(ctx, &domain.MonitoredSite{ID: "s1", URL: "https://a.example", Status: domain.StatusUp})

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.UpdateSiteStatus(ctx, "s1", repo.StatusUpdate{Status: domain.StatusDown, CheckedAt: now, ResponseTimeMS: 99}); err != nil {
		t.Fatalf("UpdateSiteStatus: %v", err)
	}
	got, err := s.GetSite(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if got.Status != domain.StatusDown || got.LastCheckedAt == nil || !got.LastCheckedAt.Equal(now) ||
		got.LastResponseTimeMS == nil || *got.LastResponseTimeMS != 99 {
		t.Fatalf("update not applied: %+v", got)
	}

	// returned copies must not alias the store
	*got.LastResponseTimeMS = 1
	again, _ := s.GetSite(ctx, "s1")
	if *again.LastResponseTimeMS != 99 {
		t.Fatalf("store mutated through returned copy")
	}

	if err := s.UpdateSiteStatus(ctx, "missing", repo.StatusUpdate{}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_FailUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddSite(ctx, &domain.MonitoredSite{ID: "s1", URL: "https://a.example", Status: domain.StatusUp})

	boom := errors.New("boom")
	s.FailUpdate("s1", boom)
	if err := s.UpdateSiteStatus(ctx, "s1", repo.StatusUpdate{Status: domain.StatusDown}); !errors.Is(err, boom) {
		t.Fatalf("want injected error, got %v", err)
	}
	got, _ := s.GetSite(ctx, "s1")
	if got.Status != domain.StatusUp {
		t.Fatalf("failed update must not change the site")
	}

	s.FailUpdate("s1", nil)
	if err := s.UpdateSiteStatus(ctx, "s1", repo.StatusUpdate{Status: domain.StatusDown}); err != nil {
		t.Fatalf("cleared failure should allow update: %v", err)
	}
}

func TestMemoryStore_UserEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddUser(ctx, domain.User{ID: "u1", Email: "a@b.com"})
	_ = s.AddUser(ctx, domain.User{ID: "u2"})

	if e, err := s.UserEmail(ctx, "u1"); err != nil || e != "a@b.com" {
		t.Fatalf("got %q err=%v", e, err)
	}
	if e, err := s.UserEmail(ctx, "u2"); err != nil || e != "" {
		t.Fatalf("want empty email, got %q err=%v", e, err)
	}
	if _, err := s.UserEmail(ctx, "nobody"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLock_SingleHolder(t *testing.T) {
	ctx := context.Background()
	var l Lock

	release, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx); !errors.Is(err, repo.ErrLocked) {
		t.Fatalf("want ErrLocked, got %v", err)
	}
	_ = release(ctx)
	// releasing twice is harmless
	_ = release(ctx)

	release, err = l.Acquire(ctx)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	_ = release(ctx)
}
