package model

import "time"

// AuditEntry records one mutation or export event. Every mutation in the
// system appends one of these (spec.md §3).
type AuditEntry struct {
	ID            string
	TenantID      string
	ActorID       string // absent ("") for system-originated entries
	Action        string
	EntityType    string // absent ("")
	EntityID      string // absent ("")
	DetailsJSON   string
	Timestamp     time.Time
	SourceAddress string // absent ("")
}

// Well-known audit actions referenced by invariant 5 and §4.10.
const (
	ActionWorkflowRunCompleted = "workflow_run_completed"
	ActionAuditPacketExported  = "audit_packet_exported"
)
