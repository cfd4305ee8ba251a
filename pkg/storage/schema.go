// Package storage implements the Persistence Gateway (C4): the sole
// owner of writes to every table in §3's data model. All other
// components pass intents here rather than touching SQL directly,
// grounded on pkg/store/ledger/postgres_ledger.go's direct
// database/sql + transaction-per-unit-of-work discipline.
package storage

// Schema is the DDL for every table this gateway owns. Enum columns are
// stored as their string labels: lowercase for statuses, sources and risk
// levels, uppercase (LOW/MEDIUM/HIGH) for finding severity.
const Schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS vendors (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	name TEXT NOT NULL,
	code TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT '',
	risk_score INTEGER NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL DEFAULT 'low',
	approved BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS feed_items (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	external_id TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	summary TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	vendor_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	raw_payload TEXT NOT NULL DEFAULT '',
	ingested_at TIMESTAMPTZ NOT NULL,
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS sync_status (
	source TEXT PRIMARY KEY,
	last_run_at TIMESTAMPTZ NOT NULL,
	last_success_at TIMESTAMPTZ,
	last_error_at TIMESTAMPTZ,
	last_error_message TEXT NOT NULL DEFAULT '',
	last_http_status INTEGER NOT NULL DEFAULT 0,
	items_fetched INTEGER NOT NULL DEFAULT 0,
	items_saved INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS evidence (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	filename TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	extracted_text TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	processed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS workflow_runs (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	evidence_id TEXT NOT NULL REFERENCES evidence(id),
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	error_message TEXT NOT NULL DEFAULT '',
	findings_count INTEGER NOT NULL DEFAULT 0,
	correlations_count INTEGER NOT NULL DEFAULT 0,
	actions_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS findings (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES workflow_runs(id),
	evidence_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL,
	cfr_refs TEXT NOT NULL DEFAULT '',
	citations TEXT NOT NULL DEFAULT '',
	entities TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS action_plans (
	run_id TEXT PRIMARY KEY REFERENCES workflow_runs(id),
	evidence_id TEXT NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	actions_json TEXT NOT NULL,
	owners TEXT NOT NULL DEFAULT '',
	deadlines TEXT NOT NULL DEFAULT '',
	correlation_snapshot_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	details_json TEXT NOT NULL DEFAULT '{}',
	timestamp TIMESTAMPTZ NOT NULL,
	source_address TEXT NOT NULL DEFAULT ''
);
`
