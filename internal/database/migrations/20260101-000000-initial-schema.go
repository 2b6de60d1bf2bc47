package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260101-000000",
		Description: "Initial schema",
		Up: []string{
			// Users — mirrors the subset of external auth/billing state the
			// core reads. Owned by an external collaborator in production;
			// this table is the read/write boundary the core actually talks
			// to.
			`CREATE TABLE IF NOT EXISTS users (
				user_id TEXT PRIMARY KEY,
				email TEXT NOT NULL DEFAULT '',
				paid_plan_price_tag TEXT,
				has_paid_access INTEGER NOT NULL DEFAULT 0,
				trial_status TEXT NOT NULL DEFAULT 'not_started',
				trial_started_at TEXT,
				trial_ends_at TEXT,
				last_digest_sent_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			// Companies — crawl targets, both self and competitor.
			`CREATE TABLE IF NOT EXISTS companies (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
				type TEXT NOT NULL,
				name TEXT NOT NULL,
				domain TEXT NOT NULL,
				homepage_url TEXT,
				primary_pricing_url TEXT,
				pricing_url_candidates_json TEXT NOT NULL DEFAULT '[]',
				next_crawl_at TEXT,
				crawl_lease_until TEXT,
				last_crawl_at TEXT,
				last_crawl_status TEXT NOT NULL DEFAULT 'idle',
				last_crawl_error TEXT,
				latest_content_hash TEXT,
				latest_confidence REAL,
				raw_capture_key TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(user_id, type, domain)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_companies_user_id ON companies(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_companies_due ON companies(type, next_crawl_at, crawl_lease_until, updated_at)`,

			// Snapshots — immutable pricing observations.
			`CREATE TABLE IF NOT EXISTS snapshots (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				captured_at TEXT NOT NULL,
				capture_method TEXT NOT NULL,
				confidence REAL NOT NULL,
				content_hash TEXT NOT NULL,
				payload_json TEXT NOT NULL,
				is_verified INTEGER NOT NULL,
				raw_capture_key TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_snapshots_company_captured ON snapshots(company_id, captured_at DESC)`,

			// Diffs — snapshot-to-snapshot deltas.
			`CREATE TABLE IF NOT EXISTS diffs (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				previous_snapshot_id TEXT,
				current_snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
				normalized_diff_json TEXT NOT NULL,
				severity TEXT NOT NULL,
				verification_state TEXT NOT NULL,
				detected_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_diffs_company_detected ON diffs(company_id, detected_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_diffs_user_detected ON diffs(user_id, detected_at DESC)`,

			// Insights — gated decision recommendations.
			`CREATE TABLE IF NOT EXISTS insights (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				diff_id TEXT NOT NULL REFERENCES diffs(id) ON DELETE CASCADE,
				model TEXT NOT NULL,
				prompt_tokens INTEGER NOT NULL DEFAULT 0,
				completion_tokens INTEGER NOT NULL DEFAULT 0,
				total_cost_usd REAL NOT NULL DEFAULT 0,
				recommendation_json TEXT NOT NULL,
				severity_gate TEXT NOT NULL,
				generated_at TEXT NOT NULL,
				feedback TEXT NOT NULL DEFAULT 'none'
			)`,
			`CREATE INDEX IF NOT EXISTS idx_insights_user_generated ON insights(user_id, generated_at DESC)`,

			// Invocation locks — named single-writer guards.
			`CREATE TABLE IF NOT EXISTS invocation_locks (
				key TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				lock_until TEXT NOT NULL,
				locked_at TEXT NOT NULL,
				last_released_at TEXT
			)`,

			// Processed webhook events — idempotency ledger for the external
			// payment-provider collaborator.
			`CREATE TABLE IF NOT EXISTS processed_webhook_events (
				event_id TEXT PRIMARY KEY,
				event_type TEXT NOT NULL,
				status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				lock_expires_at TEXT NOT NULL,
				processed_at TEXT,
				last_error TEXT
			)`,

			// Rate limit counters — interactive endpoints only.
			`CREATE TABLE IF NOT EXISTS rate_limit_counters (
				key TEXT PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0,
				window_started_at TEXT NOT NULL,
				expires_at TEXT NOT NULL
			)`,

			// Audit events — queryable record of terminal crawl statuses and
			// interactive-mutation outcomes.
			`CREATE TABLE IF NOT EXISTS audit_events (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				company_id TEXT,
				event_type TEXT NOT NULL,
				outcome TEXT NOT NULL,
				metadata_json TEXT NOT NULL DEFAULT '{}',
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_events_user_created ON audit_events(user_id, created_at DESC)`,
		},
	})
}
