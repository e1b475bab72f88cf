package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.SiteStore = (*Store)(nil)
var _ repo.UserStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	email TEXT
);
CREATE TABLE IF NOT EXISTS websites (
	id            TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	status        TEXT,
	last_checked  TIMESTAMP,
	response_time INTEGER,
	created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_websites_user ON websites (user_id);`

// Store is a single-file SQL store for local runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) AddUser(ctx context.Context, u domain.User) (domain.UserID, error) {
	if u.ID == "" {
		u.ID = domain.UserID(uuid.NewString())
	}
	var email any
	if u.Email != "" {
		email = u.Email
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES (?, ?)`, string(u.ID), email)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return u.ID, nil
}

func (s *Store) AddSite(ctx context.Context, site domain.MonitoredSite) (domain.SiteID, error) {
	if site.ID == "" {
		site.ID = domain.SiteID(uuid.NewString())
	}
	var status any
	if site.Status != domain.StatusUnknown {
		status = string(site.Status)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO websites (id, url, user_id, status) VALUES (?, ?, ?, ?)`,
		string(site.ID), site.URL, string(site.UserID), status)
	if err != nil {
		return "", fmt.Errorf("insert site: %w", err)
	}
	return site.ID, nil
}

const siteColumns = `id, url, user_id, COALESCE(status, ''), last_checked, response_time`

func (s *Store) ListSites(ctx context.Context, f repo.SiteFilter) ([]domain.MonitoredSite, error) {
	q := `SELECT ` + siteColumns + ` FROM websites`
	var args []any
	if f.UserID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, string(f.UserID))
	}
	q += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, q, args...)
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
	row := s.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM websites WHERE id = ?`, string(id))
	site, err := scanSite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("get site %s: %w", id, err)
	}
	return &site, nil
}

func (s *Store) UpdateSiteStatus(ctx context.Context, id domain.SiteID, u repo.StatusUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE websites SET status = ?, last_checked = ?, response_time = ? WHERE id = ?`,
		string(u.Status), u.CheckedAt.UTC(), u.ResponseTimeMS, string(id))
	if err != nil {
		return fmt.Errorf("update site %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update site %s: %w", id, err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) UserEmail(ctx context.Context, id domain.UserID) (string, error) {
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, string(id)).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repo.ErrNotFound
		}
		return "", fmt.Errorf("user email %s: %w", id, err)
	}
	return email.String, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (domain.MonitoredSite, error) {
	var (
		site    domain.MonitoredSite
		id      string
		userID  string
		status  string
		checked sql.NullTime
		latency sql.NullInt64
	)
	if err := row.Scan(&id, &site.URL, &userID, &status, &checked, &latency); err != nil {
		return site, err
	}
	site.ID = domain.SiteID(id)
	site.UserID = domain.UserID(userID)
	site.Status = domain.ParseStatus(status)
	if checked.Valid {
		t := checked.Time
		site.LastCheckedAt = &t
	}
	if latency.Valid {
		v := latency.Int64
		site.LastResponseTimeMS = &v
	}
	return site, nil
}
