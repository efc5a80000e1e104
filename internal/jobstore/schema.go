package jobstore

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    source_path   TEXT PRIMARY KEY,
    context       TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    proxy_path    TEXT,
    remote_name   TEXT,
    remote_uri    TEXT,
    analysis_json TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`
