package golden

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Ebang213/pharmaforge/pkg/audit"
	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/Ebang213/pharmaforge/pkg/observability"
	"github.com/Ebang213/pharmaforge/pkg/risk"
	"github.com/Ebang213/pharmaforge/pkg/storage"
)

// WorkflowResult is RunWorkflow's return shape (spec.md §6).
type WorkflowResult struct {
	RunID             string
	Status            model.RunStatus
	FindingsCount     int
	CorrelationsCount int
	ActionsCount      int
	ErrorMessage      string
}

// Orchestrator runs the Workflow Orchestrator (C9): checked
// preconditions, then a strictly-ordered findings -> correlation ->
// action-plan -> terminal-mark sequence, grounded on spec.md §4.9.
type Orchestrator struct {
	gateway  *storage.Gateway
	log      *slog.Logger
	obs      *observability.Provider
	auditLog audit.Logger
}

// NewOrchestrator builds an Orchestrator wired to the given gateway.
// Operational run events (started, succeeded, failed) are recorded
// through a default audit.Logger writing to stdout; override it with
// WithAuditLog. This is distinct from the domain AuditEntry rows
// AppendAuditEntry persists — that trail is what export validation is
// judged against; this one is operational visibility into the
// orchestrator itself.
func NewOrchestrator(gateway *storage.Gateway, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{gateway: gateway, log: log, auditLog: audit.NewLogger()}
}

// WithObservability attaches a tracing/metrics provider; RunWorkflow
// records a span and RED metrics around it when one is set.
func (o *Orchestrator) WithObservability(p *observability.Provider) *Orchestrator {
	o.obs = p
	return o
}

// WithAuditLog overrides the operational audit sink (default: a Logger
// writing to stdout).
func (o *Orchestrator) WithAuditLog(l audit.Logger) *Orchestrator {
	o.auditLog = l
	return o
}

// RunWorkflow executes one workflow run for a tenant's evidence. It
// never returns a Go error for precondition failures — those surface as
// *model.StructuredError — but step 2-5 failures are captured on the run
// itself and converted to ErrInternal for the caller (spec.md §7).
func (o *Orchestrator) RunWorkflow(ctx context.Context, tenantID, evidenceID, actorID string) (*WorkflowResult, *model.StructuredError) {
	evidence, err := o.gateway.GetEvidence(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, err.Error()).WithEvidence(evidenceID)
	}
	if evidence == nil {
		return nil, model.NewError(model.ErrEvidenceNotFound, "evidence not found for this tenant").WithEvidence(evidenceID)
	}

	switch evidence.Status {
	case model.EvidencePending:
		return nil, model.NewError(model.ErrEvidencePending, "evidence has not finished processing yet").WithEvidence(evidenceID)
	case model.EvidenceProcessing:
		return nil, model.NewError(model.ErrEvidenceProcessing, "evidence is still being processed").WithEvidence(evidenceID)
	case model.EvidenceFailed:
		return nil, model.NewError(model.ErrEvidenceFailed, "evidence processing failed").WithEvidence(evidenceID)
	case model.EvidenceProcessed:
		// fall through
	default:
		return nil, model.NewError(model.ErrEvidenceFailed, "evidence is in an unrecognized state").WithEvidence(evidenceID)
	}

	if evidence.ExtractedText == "" {
		return nil, model.NewError(model.ErrEvidenceEmpty, "evidence has no extracted text to analyze").WithEvidence(evidenceID)
	}

	run := &model.WorkflowRun{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		EvidenceID: evidenceID,
		Status:     model.RunRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := o.gateway.CreateWorkflowRun(ctx, run); err != nil {
		return nil, model.NewError(model.ErrInternal, err.Error()).WithEvidence(evidenceID)
	}
	o.recordAudit(ctx, tenantID, actorID, "workflow_run_started", run.ID, nil)

	var finish func(error)
	if o.obs != nil {
		ctx, finish = o.obs.TrackOperation(ctx, "golden.workflow_run", observability.WorkflowOperationAttrs(run.ID, string(model.RunRunning), 0, 0)...)
	}

	result, failErr := o.execute(ctx, tenantID, actorID, evidence, run)
	if failErr != nil {
		o.log.ErrorContext(ctx, "workflow run failed", "run_id", run.ID, "error", failErr)
		if markErr := o.gateway.MarkRunTerminal(ctx, run.ID, model.RunFailed, failErr.Error(), 0, 0, 0); markErr != nil {
			o.log.ErrorContext(ctx, "failed to mark run terminal after failure", "run_id", run.ID, "error", markErr)
		}
		o.recordAudit(ctx, tenantID, actorID, "workflow_run_failed", run.ID, map[string]interface{}{"error": failErr.Error()})
		if finish != nil {
			finish(failErr)
		}
		return &WorkflowResult{RunID: run.ID, Status: model.RunFailed, ErrorMessage: failErr.Error()},
			model.NewError(model.ErrInternal, failErr.Error()).WithEvidence(evidenceID).WithRun(run.ID)
	}
	o.recordAudit(ctx, tenantID, actorID, "workflow_run_succeeded", run.ID, map[string]interface{}{
		"findings_count": result.FindingsCount, "actions_count": result.ActionsCount,
	})
	if finish != nil {
		finish(nil)
	}
	return result, nil
}

// recordAudit emits an operational audit event for one orchestrator
// lifecycle transition; failures to write it are logged, not propagated
// (mirrors AppendAuditEntry's own best-effort discipline, spec.md §7).
func (o *Orchestrator) recordAudit(ctx context.Context, tenantID, actorID, action, runID string, metadata map[string]interface{}) {
	if o.auditLog == nil {
		return
	}
	if err := o.auditLog.Record(ctx, tenantID, actorID, audit.EventMutation, action, runID, metadata); err != nil {
		o.log.WarnContext(ctx, "operational audit record failed", "run_id", runID, "error", err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, tenantID, actorID string, evidence *model.Evidence, run *model.WorkflowRun) (*WorkflowResult, error) {
	findings := ExtractFindings(evidence.ExtractedText)
	for i := range findings {
		findings[i].RunID = run.ID
		findings[i].EvidenceID = evidence.ID
	}
	pointers := make([]*model.Finding, len(findings))
	for i := range findings {
		pointers[i] = &findings[i]
	}
	if err := o.gateway.AppendFindings(ctx, pointers); err != nil {
		return nil, err
	}

	vendors, err := o.gateway.ListVendors(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	snapshot, err := o.buildSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	correlation := BuildCorrelation(evidence.ExtractedText, evidence.Filename, findings, vendors, snapshot)

	o.rescoreMatchedVendors(ctx, tenantID, vendors, correlation, findings)

	plan := BuildActionPlan(run.ID, evidence.ID, findings, correlation)
	if err := o.gateway.AttachActionPlan(ctx, &plan); err != nil {
		return nil, err
	}

	if err := o.gateway.MarkRunTerminal(ctx, run.ID, model.RunSuccess, "", len(findings), 1, len(plan.Actions)); err != nil {
		return nil, err
	}

	auditErr := o.gateway.AppendAuditEntry(ctx, &model.AuditEntry{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     model.ActionWorkflowRunCompleted,
		EntityType: "workflow_run",
		EntityID:   run.ID,
		Timestamp:  time.Now().UTC(),
	})
	if auditErr != nil {
		o.log.WarnContext(ctx, "audit entry append failed after successful run", "run_id", run.ID, "error", auditErr)
	}

	return &WorkflowResult{
		RunID:             run.ID,
		Status:            model.RunSuccess,
		FindingsCount:     len(findings),
		CorrelationsCount: 1,
		ActionsCount:      len(plan.Actions),
	}, nil
}

// rescoreMatchedVendors recomputes risk.ScoreVendor for every vendor the
// Correlation Builder matched against this run's evidence, using the
// run's own findings as the vendor's active alert severities, and
// persists the result. This runs after BuildCorrelation (which stays
// pure per spec.md testable property 11) so the recorded correlation
// snapshot reflects the pre-rescore vendor risk, not a value this run
// itself produced. Vendor audit history isn't modeled yet, so
// lastAuditAt is always nil (ScoreVendor's "no audit record" penalty).
func (o *Orchestrator) rescoreMatchedVendors(ctx context.Context, tenantID string, vendors []*model.Vendor, correlation model.Correlation, findings []model.Finding) {
	severities := make([]model.Severity, 0, len(findings))
	for _, f := range findings {
		severities = append(severities, f.Severity)
	}

	byID := make(map[string]*model.Vendor, len(vendors))
	for _, v := range vendors {
		byID[v.ID] = v
	}

	for _, match := range correlation.VendorMatches {
		if match.VendorID == "" {
			continue
		}
		vendor, ok := byID[match.VendorID]
		if !ok {
			continue
		}
		score, level := risk.ScoreVendor(vendor, severities, nil, time.Now().UTC())
		if err := o.gateway.UpsertVendorRiskScore(ctx, tenantID, vendor.ID, score, level); err != nil {
			o.log.WarnContext(ctx, "vendor risk rescore failed", "vendor_id", vendor.ID, "error", err)
		}
	}
}

func (o *Orchestrator) buildSnapshot(ctx context.Context) (model.WatchtowerSnapshot, error) {
	total, err := o.gateway.CountFeedItems(ctx)
	if err != nil {
		return model.WatchtowerSnapshot{}, err
	}
	active, err := o.gateway.CountActiveAlerts(ctx)
	if err != nil {
		return model.WatchtowerSnapshot{}, err
	}
	top, err := o.gateway.TopItems(ctx, 5)
	if err != nil {
		return model.WatchtowerSnapshot{}, err
	}
	statuses, err := o.gateway.ListSyncStatuses(ctx)
	if err != nil {
		return model.WatchtowerSnapshot{}, err
	}

	sourcesStatus := make([]model.SourceHealth, 0, len(statuses))
	for _, s := range statuses {
		healthy := s.LastErrorAt == nil || (s.LastSuccessAt != nil && s.LastSuccessAt.After(*s.LastErrorAt))
		sourcesStatus = append(sourcesStatus, model.SourceHealth{
			Source:        s.Source,
			LastSuccessAt: s.LastSuccessAt,
			Healthy:       healthy,
		})
	}

	return model.WatchtowerSnapshot{
		TotalFeedItems: total,
		ActiveAlerts:   active,
		SourcesStatus:  sourcesStatus,
		TopItems:       top,
		Timestamp:      time.Now().UTC(),
	}, nil
}
