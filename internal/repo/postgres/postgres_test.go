package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

// go test ./internal/repo/postgres -run Postgres -count=1   (needs DATABASE_URL)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.ApplySchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store
}

func TestPostgresStore_SitesAndUsers(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// unique ids per run so repeated runs don't collide
	suffix := fmt.Sprintf("%d", time.Now().UTC().UnixNano())
	userID := "u-" + suffix
	siteID := "s-" + suffix

	if _, err := store.pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, userID, "owner@example.com"); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := store.pool.Exec(ctx,
		`INSERT INTO websites (id, url, user_id, status) VALUES ($1, $2, $3, 'Up')`,
		siteID, "https://example.com/"+suffix, userID); err != nil {
		t.Fatalf("insert site: %v", err)
	}

	sites, err := store.ListSites(ctx, repo.SiteFilter{UserID: domain.UserID(userID)})
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(sites) != 1 || sites[0].Status != domain.StatusUp || sites[0].LastCheckedAt != nil {
		t.Fatalf("unexpected sites: %+v", sites)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.UpdateSiteStatus(ctx, domain.SiteID(siteID), repo.StatusUpdate{
		Status: domain.StatusDown, CheckedAt: now, ResponseTimeMS: 321,
	}); err != nil {
		t.Fatalf("UpdateSiteStatus: %v", err)
	}

	got, err := store.GetSite(ctx, domain.SiteID(siteID))
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if got.Status != domain.StatusDown || got.LastResponseTimeMS == nil || *got.LastResponseTimeMS != 321 {
		t.Fatalf("update not visible: %+v", got)
	}
	if got.LastCheckedAt == nil || !got.LastCheckedAt.Equal(now) {
		t.Fatalf("want last_checked %v, got %v", now, got.LastCheckedAt)
	}

	email, err := store.UserEmail(ctx, domain.UserID(userID))
	if err != nil || email != "owner@example.com" {
		t.Fatalf("UserEmail: %q err=%v", email, err)
	}

	if _, err := store.GetSite(ctx, "missing-"+domain.SiteID(suffix)); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := store.UpdateSiteStatus(ctx, "missing-"+domain.SiteID(suffix), repo.StatusUpdate{Status: domain.StatusUp, CheckedAt: now}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound on update, got %v", err)
	}
	if _, err := store.UserEmail(ctx, "missing-"+domain.UserID(suffix)); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound for user, got %v", err)
	}
}
