package storage

import (
	"context"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// ExportBundle is everything the Export Validator & Renderer (C10) needs
// to produce an audit packet for one run. ReadExportBundle fills it with
// separate, sequential queries (run, evidence, findings, action plan,
// audit trail) that do not share a transaction, so the parts are not
// guaranteed to reflect one consistent snapshot.
type ExportBundle struct {
	Evidence    *model.Evidence
	Run         *model.WorkflowRun
	Findings    []*model.Finding
	ActionPlan  *model.ActionPlan
	AuditTrail  []*model.AuditEntry
}

// ReadExportBundle assembles an ExportBundle for tenantID/runID. Returns
// a nil Run (not an error) if the run doesn't exist, leaving the
// fail-closed precondition check to the caller.
func (g *Gateway) ReadExportBundle(ctx context.Context, tenantID, runID string) (*ExportBundle, error) {
	run, err := g.GetWorkflowRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return &ExportBundle{}, nil
	}

	evidence, err := g.GetEvidence(ctx, tenantID, run.EvidenceID)
	if err != nil {
		return nil, err
	}
	findings, err := g.GetFindings(ctx, runID)
	if err != nil {
		return nil, err
	}
	plan, err := g.GetActionPlan(ctx, runID)
	if err != nil {
		return nil, err
	}
	trail, err := g.ListAuditEntries(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &ExportBundle{
		Evidence:   evidence,
		Run:        run,
		Findings:   findings,
		ActionPlan: plan,
		AuditTrail: trail,
	}, nil
}
