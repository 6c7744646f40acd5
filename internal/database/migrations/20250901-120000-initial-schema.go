package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250901-120000",
		Description: "initial schema: citation jobs and citations",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS citation_jobs (
				id TEXT PRIMARY KEY,
				business_json TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'Pending',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS citations (
				id TEXT PRIMARY KEY,
				job_id TEXT NOT NULL REFERENCES citation_jobs(id),
				rank INTEGER NOT NULL DEFAULT 0,
				site_key TEXT NOT NULL,
				site_name TEXT,
				score REAL,
				reason TEXT,
				payload_json TEXT,
				status TEXT NOT NULL DEFAULT 'Pending',
				listing_url TEXT,
				listing_confidence REAL,
				account_email TEXT,
				error_message TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_citations_job_id ON citations(job_id)`,
			`CREATE INDEX IF NOT EXISTS idx_citations_status ON citations(status)`,
			`CREATE INDEX IF NOT EXISTS idx_citation_jobs_status ON citation_jobs(status)`,
		},
	})
}
