package golden

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/Ebang213/pharmaforge/pkg/storage"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const orchestratorTestSchema = `
CREATE TABLE tenants (id TEXT PRIMARY KEY);
CREATE TABLE feed_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT, source TEXT NOT NULL, external_id TEXT NOT NULL,
	title TEXT NOT NULL, url TEXT NOT NULL DEFAULT '', published_at DATETIME,
	summary TEXT NOT NULL DEFAULT '', category TEXT NOT NULL, vendor_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '', tags TEXT NOT NULL DEFAULT '', raw_payload TEXT NOT NULL DEFAULT '',
	ingested_at DATETIME NOT NULL, UNIQUE (source, external_id)
);
CREATE TABLE sync_status (
	source TEXT PRIMARY KEY, last_run_at DATETIME NOT NULL, last_success_at DATETIME,
	last_error_at DATETIME, last_error_message TEXT NOT NULL DEFAULT '',
	last_http_status INTEGER NOT NULL DEFAULT 0, items_fetched INTEGER NOT NULL DEFAULT 0,
	items_saved INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE vendors (
	id TEXT PRIMARY KEY, tenant_id TEXT NOT NULL, name TEXT NOT NULL, code TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT '', risk_score INTEGER NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL DEFAULT 'low', approved BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE evidence (
	id TEXT PRIMARY KEY, tenant_id TEXT NOT NULL, filename TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '', extracted_text TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL, error_message TEXT NOT NULL DEFAULT '', processed_at DATETIME
);
CREATE TABLE workflow_runs (
	id TEXT PRIMARY KEY, tenant_id TEXT NOT NULL, evidence_id TEXT NOT NULL, status TEXT NOT NULL,
	started_at DATETIME NOT NULL, completed_at DATETIME, error_message TEXT NOT NULL DEFAULT '',
	findings_count INTEGER NOT NULL DEFAULT 0, correlations_count INTEGER NOT NULL DEFAULT 0,
	actions_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE findings (
	id INTEGER PRIMARY KEY AUTOINCREMENT, run_id TEXT NOT NULL, evidence_id TEXT NOT NULL,
	title TEXT NOT NULL, description TEXT NOT NULL DEFAULT '', severity TEXT NOT NULL,
	cfr_refs TEXT NOT NULL DEFAULT '', citations TEXT NOT NULL DEFAULT '', entities TEXT NOT NULL DEFAULT ''
);
CREATE TABLE action_plans (
	run_id TEXT PRIMARY KEY, evidence_id TEXT NOT NULL, rationale TEXT NOT NULL DEFAULT '',
	actions_json TEXT NOT NULL, owners TEXT NOT NULL DEFAULT '', deadlines TEXT NOT NULL DEFAULT '',
	correlation_snapshot_json TEXT NOT NULL
);
CREATE TABLE audit_entries (
	id TEXT PRIMARY KEY, tenant_id TEXT NOT NULL, actor_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL, entity_type TEXT NOT NULL DEFAULT '', entity_id TEXT NOT NULL DEFAULT '',
	details_json TEXT NOT NULL DEFAULT '{}', timestamp DATETIME NOT NULL, source_address TEXT NOT NULL DEFAULT ''
);
`

func newOrchestratorGateway(t *testing.T) *storage.Gateway {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(orchestratorTestSchema)
	require.NoError(t, err)
	return storage.NewGateway(db, slog.Default())
}

func seedProcessedEvidence(t *testing.T, gw *storage.Gateway, tenantID, evidenceID, text string) {
	t.Helper()
	ctx := context.Background()
	_, err := gw.DB().ExecContext(ctx, "INSERT INTO tenants (id) VALUES ($1)", tenantID)
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = gw.DB().ExecContext(ctx, `
		INSERT INTO evidence (id, tenant_id, filename, status, extracted_text, processed_at) VALUES ($1,$2,$3,$4,$5,$6)
	`, evidenceID, tenantID, "doc.pdf", string(model.EvidenceProcessed), text, now)
	require.NoError(t, err)
}

func TestRunWorkflow_HappyPath(t *testing.T) {
	gw := newOrchestratorGateway(t)
	seedProcessedEvidence(t, gw, "tenant-1", "ev-1", "This record involves temperature excursions, a cGMP deviation, and a supplier issue.")

	orch := NewOrchestrator(gw, slog.Default())
	result, refusal := orch.RunWorkflow(context.Background(), "tenant-1", "ev-1", "actor-1")
	require.Nil(t, refusal)
	require.Equal(t, model.RunSuccess, result.Status)
	require.GreaterOrEqual(t, result.FindingsCount, 3)
	require.GreaterOrEqual(t, result.ActionsCount, 1)
}

func TestRunWorkflow_RefusesOnPendingEvidence(t *testing.T) {
	gw := newOrchestratorGateway(t)
	ctx := context.Background()
	_, err := gw.DB().ExecContext(ctx, "INSERT INTO tenants (id) VALUES ($1)", "tenant-1")
	require.NoError(t, err)
	_, err = gw.DB().ExecContext(ctx, `
		INSERT INTO evidence (id, tenant_id, filename, status) VALUES ($1,$2,$3,$4)
	`, "ev-1", "tenant-1", "doc.pdf", string(model.EvidencePending))
	require.NoError(t, err)

	orch := NewOrchestrator(gw, slog.Default())
	result, refusal := orch.RunWorkflow(ctx, "tenant-1", "ev-1", "actor-1")
	require.Nil(t, result)
	require.NotNil(t, refusal)
	require.Equal(t, model.ErrEvidencePending, refusal.Kind)

	var count int
	require.NoError(t, gw.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_runs").Scan(&count))
	require.Equal(t, 0, count)
}

func TestExportAuditPacket_RefusesWithoutRun(t *testing.T) {
	gw := newOrchestratorGateway(t)
	seedProcessedEvidence(t, gw, "tenant-1", "ev-1", "some text")

	exporter := NewExporter(gw, slog.Default())
	packet, refusal := exporter.ExportAuditPacket(context.Background(), "tenant-1", "ev-1", "", "actor-1")
	require.Nil(t, packet)
	require.NotNil(t, refusal)
	require.Equal(t, model.ErrNoWorkflowRun, refusal.Kind)
	require.NotEmpty(t, refusal.ActionRequired)
}

func TestExportAuditPacket_SucceedsAfterWorkflow(t *testing.T) {
	gw := newOrchestratorGateway(t)
	seedProcessedEvidence(t, gw, "tenant-1", "ev-1", "This record involves temperature excursions, a cGMP deviation, and a supplier issue.")

	orch := NewOrchestrator(gw, slog.Default())
	runResult, refusal := orch.RunWorkflow(context.Background(), "tenant-1", "ev-1", "actor-1")
	require.Nil(t, refusal)

	exporter := NewExporter(gw, slog.Default())
	packet, exportRefusal := exporter.ExportAuditPacket(context.Background(), "tenant-1", "ev-1", "", "actor-1")
	require.Nil(t, exportRefusal)
	require.Contains(t, string(packet.Bytes), runResult.RunID)
	require.Contains(t, string(packet.Bytes), "CFR refs:")
}
