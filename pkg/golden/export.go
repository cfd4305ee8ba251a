package golden

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ebang213/pharmaforge/pkg/audit"
	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/Ebang213/pharmaforge/pkg/observability"
	"github.com/Ebang213/pharmaforge/pkg/storage"
)

const excerptLimit = 500

// ExportedPacket is ExportAuditPacket's success shape (spec.md §6).
type ExportedPacket struct {
	Bytes       []byte
	ContentType string
	Filename    string
}

// Exporter runs the Export Validator & Renderer (C10): fail-closed
// precondition checks followed by a deterministic textual rendering.
// Grounded on the "no placeholder, no partial" discipline named in
// spec.md §4.10 and §7.
type Exporter struct {
	gateway  *storage.Gateway
	log      *slog.Logger
	obs      *observability.Provider
	auditLog audit.Logger
}

// NewExporter builds an Exporter wired to the given gateway. Operational
// export events (refused, succeeded) are recorded through a
// default audit.Logger writing to stdout; override it with WithAuditLog.
func NewExporter(gateway *storage.Gateway, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{gateway: gateway, log: log, auditLog: audit.NewLogger()}
}

// WithObservability attaches a tracing/metrics provider; ExportAuditPacket
// records a span and RED metrics around it when one is set.
func (x *Exporter) WithObservability(p *observability.Provider) *Exporter {
	x.obs = p
	return x
}

// WithAuditLog overrides the operational audit sink (default: a Logger
// writing to stdout).
func (x *Exporter) WithAuditLog(l audit.Logger) *Exporter {
	x.auditLog = l
	return x
}

// ExportAuditPacket renders an audit packet for tenantID/evidenceID. If
// runID is empty, the latest successful run for the evidence is used.
// Every precondition is checked in the order spec.md §4.10 names; the
// first failing precondition's error is returned and nothing is
// rendered.
func (x *Exporter) ExportAuditPacket(ctx context.Context, tenantID, evidenceID, runID, actorID string) (*ExportedPacket, *model.StructuredError) {
	var finish func(error)
	if x.obs != nil {
		ctx, finish = x.obs.TrackOperation(ctx, "golden.export_audit_packet", observability.ExportOperationAttrs(runID, false)...)
	}
	packet, refusal := x.exportAuditPacket(ctx, tenantID, evidenceID, runID, actorID)
	if finish != nil {
		if refusal != nil {
			finish(refusal)
		} else {
			finish(nil)
		}
	}
	return packet, refusal
}

func (x *Exporter) exportAuditPacket(ctx context.Context, tenantID, evidenceID, runID, actorID string) (*ExportedPacket, *model.StructuredError) {
	packet, refusal := x.doExport(ctx, tenantID, evidenceID, runID, actorID)
	if refusal != nil {
		x.recordAudit(ctx, tenantID, actorID, "audit_packet_export_refused", runID, map[string]interface{}{
			"evidence_id": evidenceID, "error": string(refusal.Kind),
		})
	}
	return packet, refusal
}

func (x *Exporter) doExport(ctx context.Context, tenantID, evidenceID, runID, actorID string) (*ExportedPacket, *model.StructuredError) {
	evidence, err := x.gateway.GetEvidence(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, err.Error()).WithEvidence(evidenceID)
	}
	if evidence == nil {
		return nil, model.NewError(model.ErrEvidenceNotFound, "evidence not found for this tenant").WithEvidence(evidenceID)
	}
	if evidence.Status != model.EvidenceProcessed {
		return nil, model.NewError(model.ErrEvidenceNotProcessed, "evidence has not completed processing").WithEvidence(evidenceID)
	}

	var run *model.WorkflowRun
	if runID == "" {
		run, err = x.gateway.GetLatestSuccessfulRun(ctx, tenantID, evidenceID)
		if err != nil {
			return nil, model.NewError(model.ErrInternal, err.Error()).WithEvidence(evidenceID)
		}
		if run == nil {
			return nil, model.NewError(model.ErrNoWorkflowRun, "no successful workflow run exists for this evidence").
				WithEvidence(evidenceID).WithAction("Run the workflow for this evidence first.")
		}
	} else {
		run, err = x.gateway.GetWorkflowRun(ctx, tenantID, runID)
		if err != nil {
			return nil, model.NewError(model.ErrInternal, err.Error()).WithEvidence(evidenceID).WithRun(runID)
		}
		if run == nil {
			return nil, model.NewError(model.ErrWorkflowRunNotFound, "workflow run not found for this tenant").
				WithEvidence(evidenceID).WithRun(runID)
		}
		if run.Status != model.RunSuccess {
			return nil, model.NewError(model.ErrWorkflowRunNotSuccess, "workflow run did not complete successfully").
				WithEvidence(evidenceID).WithRun(runID)
		}
	}

	bundle, err := x.gateway.ReadExportBundle(ctx, tenantID, run.ID)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, err.Error()).WithEvidence(evidenceID).WithRun(run.ID)
	}

	if len(bundle.Findings) == 0 {
		return nil, model.NewError(model.ErrFindingsMissing, "the workflow run has no recorded findings").
			WithEvidence(evidenceID).WithRun(run.ID)
	}
	if bundle.ActionPlan == nil {
		return nil, model.NewError(model.ErrActionPlanMissing, "the workflow run has no action plan").
			WithEvidence(evidenceID).WithRun(run.ID)
	}
	if bundle.ActionPlan.CorrelationSnapshot == nil {
		return nil, model.NewError(model.ErrCorrelationMissing, "the action plan has no correlation snapshot").
			WithEvidence(evidenceID).WithRun(run.ID)
	}

	doc := render(evidence, run, bundle)

	auditErr := x.gateway.AppendAuditEntry(ctx, &model.AuditEntry{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     model.ActionAuditPacketExported,
		EntityType: "workflow_run",
		EntityID:   run.ID,
		Timestamp:  time.Now().UTC(),
	})
	if auditErr != nil {
		x.log.WarnContext(ctx, "audit entry append failed after export", "run_id", run.ID, "error", auditErr)
	}
	x.recordAudit(ctx, tenantID, actorID, "audit_packet_exported", run.ID, map[string]interface{}{
		"evidence_id": evidenceID, "findings_count": len(bundle.Findings), "actions_count": len(bundle.ActionPlan.Actions),
	})

	return &ExportedPacket{
		Bytes:       doc,
		ContentType: "text/plain; charset=utf-8",
		Filename:    fmt.Sprintf("audit-packet-%s.txt", run.ID),
	}, nil
}

// render produces the deterministic textual document. Absent
// owner/deadline/CFR refs are surfaced as explicit "(not specified)"
// warnings rather than the literal "N/A" or "Unknown" the spec forbids.
func render(evidence *model.Evidence, run *model.WorkflowRun, bundle *storage.ExportBundle) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "AUDIT PACKET\n")
	fmt.Fprintf(&b, "Run ID: %s\n", run.ID)
	fmt.Fprintf(&b, "Tenant: %s\n", run.TenantID)
	fmt.Fprintf(&b, "Status: %s\n", run.Status)
	fmt.Fprintf(&b, "Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(&b, "Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "EVIDENCE\n")
	fmt.Fprintf(&b, "Filename: %s\n", evidence.Filename)
	fmt.Fprintf(&b, "Excerpt: %s\n\n", excerpt(evidence.ExtractedText))

	fmt.Fprintf(&b, "FINDINGS (%d)\n", len(bundle.Findings))
	for i, f := range bundle.Findings {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, f.Severity, f.Title)
		fmt.Fprintf(&b, "   %s\n", f.Description)
		fmt.Fprintf(&b, "   CFR refs: %s\n", joinOrWarn(f.CFRRefs))
	}
	b.WriteString("\n")

	snap := bundle.ActionPlan.CorrelationSnapshot.WatchtowerSnapshot
	fmt.Fprintf(&b, "WATCHTOWER SNAPSHOT (as of %s)\n", snap.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total feed items: %d   Active alerts: %d\n", snap.TotalFeedItems, snap.ActiveAlerts)
	for _, s := range snap.SourcesStatus {
		fmt.Fprintf(&b, "  source=%s healthy=%v\n", s.Source, s.Healthy)
	}
	b.WriteString("\nVENDOR MATCHES\n")
	for _, m := range bundle.ActionPlan.CorrelationSnapshot.VendorMatches {
		fmt.Fprintf(&b, "  %s (%s)\n", m.Name, m.Basis)
	}
	b.WriteString("\nNARRATIVE\n")
	for _, n := range bundle.ActionPlan.CorrelationSnapshot.Narrative {
		fmt.Fprintf(&b, "  - %s\n", n)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "ACTION PLAN\n%s\n", bundle.ActionPlan.Rationale)
	for i, a := range bundle.ActionPlan.Actions {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, a.Priority, a.Title)
		fmt.Fprintf(&b, "   Owner: %s   Deadline: %s\n", valueOrWarn(a.Owner), valueOrWarn(a.Deadline))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "AUDIT TRAIL (%d entries)\n", len(bundle.AuditTrail))
	for _, e := range bundle.AuditTrail {
		fmt.Fprintf(&b, "  %s  %s  actor=%s\n", e.Timestamp.Format(time.RFC3339), e.Action, valueOrWarn(e.ActorID))
	}

	return b.Bytes()
}

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	return text[:excerptLimit] + "…"
}

func joinOrWarn(refs []string) string {
	if len(refs) == 0 {
		return "(not specified; flagged for manual review)"
	}
	return strings.Join(refs, ", ")
}

func valueOrWarn(v string) string {
	if v == "" {
		return "(not specified; flagged for manual review)"
	}
	return v
}

// recordAudit emits an operational audit event for one export attempt
// (refused or succeeded); failures to write it are logged, not
// propagated, mirroring AppendAuditEntry's own best-effort discipline
// (spec.md §7).
func (x *Exporter) recordAudit(ctx context.Context, tenantID, actorID, action, runID string, metadata map[string]interface{}) {
	if x.auditLog == nil {
		return
	}
	if err := x.auditLog.Record(ctx, tenantID, actorID, audit.EventAccess, action, runID, metadata); err != nil {
		x.log.WarnContext(ctx, "operational audit record failed", "run_id", runID, "error", err)
	}
}
