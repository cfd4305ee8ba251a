package model

import "time"

// EvidenceStatus is the closed lifecycle for Evidence: pending ->
// processing -> (processed | failed). Only "processed" is eligible for
// workflow input (spec.md §4.9 precondition 2).
type EvidenceStatus string

const (
	EvidencePending    EvidenceStatus = "pending"
	EvidenceProcessing EvidenceStatus = "processing"
	EvidenceProcessed  EvidenceStatus = "processed"
	EvidenceFailed     EvidenceStatus = "failed"
)

// Evidence is a tenant-scoped uploaded document whose text has been
// extracted by an external pipeline; this core only consumes processed
// evidence.
type Evidence struct {
	ID             string
	TenantID       string
	Filename       string
	ContentHash    string
	ExtractedText  string
	Status         EvidenceStatus
	ErrorMessage   string
	ProcessedAt    *time.Time
}
