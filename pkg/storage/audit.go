package storage

import (
	"context"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// AppendAuditEntry inserts one audit row. Append-only: never updated or
// deleted. Failure to audit is logged but does not fail the caller's
// operation, matching pkg/audit/logger.go's best-effort discipline.
func (g *Gateway) AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, tenant_id, actor_id, action, entity_type, entity_id, details_json, timestamp, source_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.TenantID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.DetailsJSON, e.Timestamp, e.SourceAddress)
	if err != nil {
		g.log.WarnContext(ctx, "audit entry append failed", "action", e.Action, "error", err)
	}
	return wrapDBErr(err)
}

// ListAuditEntries returns a tenant's audit trail for ExportAuditPacket,
// newest first.
func (g *Gateway) ListAuditEntries(ctx context.Context, tenantID string) ([]*model.AuditEntry, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, tenant_id, actor_id, action, entity_type, entity_id, details_json, timestamp, source_address
		FROM audit_entries WHERE tenant_id = $1 ORDER BY timestamp DESC
	`, tenantID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.DetailsJSON, &e.Timestamp, &e.SourceAddress); err != nil {
			return nil, wrapDBErr(err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
