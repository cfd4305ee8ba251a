package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// CreateWorkflowRun inserts a new run in "running" status. The Workflow
// Orchestrator (C9) calls this once preconditions pass.
func (g *Gateway) CreateWorkflowRun(ctx context.Context, run *model.WorkflowRun) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (id, tenant_id, evidence_id, status, started_at, completed_at, error_message, findings_count, correlations_count, actions_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, run.ID, run.TenantID, run.EvidenceID, string(run.Status), run.StartedAt, run.CompletedAt, run.ErrorMessage,
		run.FindingsCount, run.CorrelationsCount, run.ActionsCount)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// AppendFindings persists a run's extracted findings. Called once, after
// the Findings Extractor (C7) completes; findings are never mutated
// afterward.
func (g *Gateway) AppendFindings(ctx context.Context, findings []*model.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, f := range findings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO findings (run_id, evidence_id, title, description, severity, cfr_refs, citations, entities)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, f.RunID, f.EvidenceID, f.Title, f.Description, string(f.Severity),
			strings.Join(f.CFRRefs, ","), strings.Join(f.Citations, ","), strings.Join(f.Entities, ","))
		if err != nil {
			return wrapDBErr(err)
		}
	}
	return wrapDBErr(tx.Commit())
}

// GetFindings returns all findings recorded for a run.
func (g *Gateway) GetFindings(ctx context.Context, runID string) ([]*model.Finding, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT run_id, evidence_id, title, description, severity, cfr_refs, citations, entities
		FROM findings WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []*model.Finding
	for rows.Next() {
		f := &model.Finding{}
		var severity, cfrRefs, citations, entities string
		if err := rows.Scan(&f.RunID, &f.EvidenceID, &f.Title, &f.Description, &severity, &cfrRefs, &citations, &entities); err != nil {
			return nil, wrapDBErr(err)
		}
		f.Severity = model.Severity(severity)
		f.CFRRefs = splitNonEmpty(cfrRefs)
		f.Citations = splitNonEmpty(citations)
		f.Entities = splitNonEmpty(entities)
		out = append(out, f)
	}
	return out, rows.Err()
}

// AttachActionPlan persists the single ActionPlan synthesized for a run.
// A run has at most one; callers never call this twice for the same
// run.ID.
func (g *Gateway) AttachActionPlan(ctx context.Context, plan *model.ActionPlan) error {
	actionsJSON, err := json.Marshal(plan.Actions)
	if err != nil {
		return err
	}
	snapshotJSON, err := json.Marshal(plan.CorrelationSnapshot)
	if err != nil {
		return err
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO action_plans (run_id, evidence_id, rationale, actions_json, owners, deadlines, correlation_snapshot_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, plan.RunID, plan.EvidenceID, plan.Rationale, string(actionsJSON),
		strings.Join(plan.Owners, ","), strings.Join(plan.Deadlines, ","), string(snapshotJSON))
	return wrapDBErr(err)
}

// GetActionPlan returns the ActionPlan for a run, or nil if the run has
// none (e.g. a failed run).
func (g *Gateway) GetActionPlan(ctx context.Context, runID string) (*model.ActionPlan, error) {
	plan := &model.ActionPlan{}
	var actionsJSON, owners, deadlines, snapshotJSON string
	err := g.db.QueryRowContext(ctx, `
		SELECT run_id, evidence_id, rationale, actions_json, owners, deadlines, correlation_snapshot_json
		FROM action_plans WHERE run_id = $1
	`, runID).Scan(&plan.RunID, &plan.EvidenceID, &plan.Rationale, &actionsJSON, &owners, &deadlines, &snapshotJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &plan.Actions); err != nil {
		return nil, err
	}
	var snapshot model.Correlation
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return nil, err
	}
	plan.CorrelationSnapshot = &snapshot
	plan.Owners = splitNonEmpty(owners)
	plan.Deadlines = splitNonEmpty(deadlines)
	return plan, nil
}

// MarkRunTerminal transitions a run to success or failed, stamping
// CompletedAt and final counts. Once terminal a run is never reopened
// (spec.md invariant on RunStatus).
func (g *Gateway) MarkRunTerminal(ctx context.Context, runID string, status model.RunStatus, errMsg string, findingsCount, correlationsCount, actionsCount int) error {
	now := time.Now().UTC()
	_, err := g.db.ExecContext(ctx, `
		UPDATE workflow_runs SET status = $1, completed_at = $2, error_message = $3,
			findings_count = $4, correlations_count = $5, actions_count = $6
		WHERE id = $7
	`, string(status), now, errMsg, findingsCount, correlationsCount, actionsCount, runID)
	return wrapDBErr(err)
}

// GetWorkflowRun fetches a run by ID, tenant-scoped, or nil if absent.
func (g *Gateway) GetWorkflowRun(ctx context.Context, tenantID, runID string) (*model.WorkflowRun, error) {
	run := &model.WorkflowRun{}
	var status string
	var completedAt sql.NullTime
	err := g.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, evidence_id, status, started_at, completed_at, error_message, findings_count, correlations_count, actions_count
		FROM workflow_runs WHERE tenant_id = $1 AND id = $2
	`, tenantID, runID).Scan(&run.ID, &run.TenantID, &run.EvidenceID, &status, &run.StartedAt, &completedAt,
		&run.ErrorMessage, &run.FindingsCount, &run.CorrelationsCount, &run.ActionsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	run.Status = model.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}

// GetLatestSuccessfulRun returns the most recently completed successful
// run for a piece of evidence, or nil if none exists.
func (g *Gateway) GetLatestSuccessfulRun(ctx context.Context, tenantID, evidenceID string) (*model.WorkflowRun, error) {
	run := &model.WorkflowRun{}
	var status string
	var completedAt sql.NullTime
	err := g.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, evidence_id, status, started_at, completed_at, error_message, findings_count, correlations_count, actions_count
		FROM workflow_runs
		WHERE tenant_id = $1 AND evidence_id = $2 AND status = $3
		ORDER BY completed_at DESC LIMIT 1
	`, tenantID, evidenceID, string(model.RunSuccess)).Scan(&run.ID, &run.TenantID, &run.EvidenceID, &status,
		&run.StartedAt, &completedAt, &run.ErrorMessage, &run.FindingsCount, &run.CorrelationsCount, &run.ActionsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err)
	}
	run.Status = model.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
