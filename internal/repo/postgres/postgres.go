package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.SiteStore = (*Store)(nil)
var _ repo.UserStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info("postgres_connected", zap.String("host", cfg.ConnConfig.Host), zap.String("db", cfg.ConnConfig.Database))
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ApplySchema creates the tables when they do not exist yet.
func (s *Store) ApplySchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ---- SiteStore ----

const siteColumns = `id::text, url, user_id::text, COALESCE(status, ''), last_checked, response_time`

func (s *Store) ListSites(ctx context.Context, f repo.SiteFilter) ([]domain.MonitoredSite, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.UserID != "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+siteColumns+`
			   FROM websites
			  WHERE user_id::text = $1
			  ORDER BY created_at, id`, string(f.UserID))
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+siteColumns+`
			   FROM websites
			  ORDER BY created_at, id`)
	}
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var out []domain.MonitoredSite
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		out = append(out, site)
	}
	return out, rows.Err()
}

func (s *Store) GetSite(ctx context.Context, id domain.SiteID) (*domain.MonitoredSite, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM websites WHERE id::text = $1`, string(id))
	site, err := scanSite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("get site %s: %w", id, err)
	}
	return &site, nil
}

func (s *Store) UpdateSiteStatus(ctx context.Context, id domain.SiteID, u repo.StatusUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE websites
		    SET status = $1, last_checked = $2, response_time = $3
		  WHERE id::text = $4`,
		string(u.Status), u.CheckedAt, u.ResponseTimeMS, string(id))
	if err != nil {
		return fmt.Errorf("update site %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- UserStore ----

func (s *Store) UserEmail(ctx context.Context, id domain.UserID) (string, error) {
	var email *string
	err := s.pool.QueryRow(ctx, `SELECT email FROM users WHERE id::text = $1`, string(id)).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repo.ErrNotFound
		}
		return "", fmt.Errorf("user email %s: %w", id, err)
	}
	if email == nil {
		return "", nil
	}
	return *email, nil
}

func scanSite(row pgx.Row) (domain.MonitoredSite, error) {
	var (
		site    domain.MonitoredSite
		id      string
		userID  string
		status  string
		checked *time.Time
		latency *int64
	)
	if err := row.Scan(&id, &site.URL, &userID, &status, &checked, &latency); err != nil {
		return site, err
	}
	site.ID = domain.SiteID(id)
	site.UserID = domain.UserID(userID)
	site.Status = domain.ParseStatus(status)
	site.LastCheckedAt = checked
	site.LastResponseTimeMS = latency
	return site, nil
}
