package postgres

// Schema is the minimal layout the store expects. Existing deployments may
// carry more columns; only these are read or written.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
  id    TEXT PRIMARY KEY,
  email TEXT NULL
);

CREATE TABLE IF NOT EXISTS websites (
  id            TEXT PRIMARY KEY,
  url           TEXT NOT NULL,
  user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  status        TEXT NULL,
  last_checked  TIMESTAMPTZ NULL,
  response_time BIGINT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_websites_user ON websites (user_id);
`
