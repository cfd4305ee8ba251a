package storage

import (
	"context"
	"database/sql"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// GetEvidence fetches a tenant-scoped evidence record by ID, or nil if
// absent. The Workflow Orchestrator uses this to validate precondition 2
// (status must be "processed") before a run starts.
func (g *Gateway) GetEvidence(ctx context.Context, tenantID, evidenceID string) (*model.Evidence, error) {
	e := &model.Evidence{}
	var status string
	var processedAt sql.NullTime
	err := g.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, filename, content_hash, extracted_text, status, error_message, processed_at
		FROM evidence WHERE tenant_id = $1 AND id = $2
	`, tenantID, evidenceID).Scan(&e.ID, &e.TenantID, &e.Filename, &e.ContentHash, &e.ExtractedText, &status, &e.ErrorMessage, &processedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	e.Status = model.EvidenceStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		e.ProcessedAt = &t
	}
	return e, nil
}
