package storage

import (
	"context"
	"database/sql"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// ListVendors returns every vendor registered for a tenant, used by the
// Correlation Builder to match candidate names from evidence text.
func (g *Gateway) ListVendors(ctx context.Context, tenantID string) ([]*model.Vendor, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, code, country, risk_score, risk_level, approved
		FROM vendors WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []*model.Vendor
	for rows.Next() {
		v := &model.Vendor{}
		var riskLevel string
		if err := rows.Scan(&v.ID, &v.TenantID, &v.Name, &v.Code, &v.Country, &v.RiskScore, &riskLevel, &v.Approved); err != nil {
			return nil, wrapDBErr(err)
		}
		v.RiskLevel = model.RiskLevel(riskLevel)
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVendor fetches a single tenant-scoped vendor by ID, or nil if absent.
func (g *Gateway) GetVendor(ctx context.Context, tenantID, vendorID string) (*model.Vendor, error) {
	v := &model.Vendor{}
	var riskLevel string
	err := g.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, code, country, risk_score, risk_level, approved
		FROM vendors WHERE tenant_id = $1 AND id = $2
	`, tenantID, vendorID).Scan(&v.ID, &v.TenantID, &v.Name, &v.Code, &v.Country, &v.RiskScore, &riskLevel, &v.Approved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	v.RiskLevel = model.RiskLevel(riskLevel)
	return v, nil
}

// UpsertVendorRiskScore persists a recomputed RiskScore/RiskLevel pair,
// called by pkg/golden's orchestrator after risk.ScoreVendor scores a
// vendor.
func (g *Gateway) UpsertVendorRiskScore(ctx context.Context, tenantID, vendorID string, score int, level model.RiskLevel) error {
	_, err := g.db.ExecContext(ctx, `
		UPDATE vendors SET risk_score = $1, risk_level = $2 WHERE tenant_id = $3 AND id = $4
	`, score, string(level), tenantID, vendorID)
	return wrapDBErr(err)
}
