package model

import "time"

// RunStatus is the closed WorkflowRun lifecycle: pending (transient,
// never exposed to callers) -> running -> {success, failed}, terminal
// once reached, no reopen (spec.md §3, §4.9).
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// IsTerminal reports whether s is a terminal RunStatus.
func (s RunStatus) IsTerminal() bool {
	return s == RunSuccess || s == RunFailed
}

// WorkflowRun is the atomic execution record for findings + correlation
// + action plan over one piece of evidence.
type WorkflowRun struct {
	ID               string
	TenantID         string
	EvidenceID       string
	Status           RunStatus
	StartedAt        time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
	FindingsCount    int
	CorrelationsCount int
	ActionsCount     int
}

// Severity is the closed set a Finding's severity is drawn from.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Finding is a structured compliance observation, child of a
// WorkflowRun, carrying regulatory citations.
type Finding struct {
	RunID       string
	EvidenceID  string
	Title       string
	Description string
	Severity    Severity
	CFRRefs     []string
	Citations   []string
	Entities    []string
}

// Action is one recommendation inside an ActionPlan.
type Action struct {
	Title       string
	Description string
	Priority    string // e.g. "HIGH", "MEDIUM", "LOW"
	Owner       string // role label, may be absent ("")
	Deadline    string // relative duration label, may be absent ("")
}

// ActionPlan is the single per-successful-run synthesis of findings +
// correlation into owners/deadlines/rationale. Always carries a
// non-empty CorrelationSnapshot (spec.md invariant 4).
type ActionPlan struct {
	RunID               string
	EvidenceID          string
	Rationale           string
	Actions             []Action
	Owners              []string // deduplicated projection of Actions[].Owner
	Deadlines           []string // deduplicated projection of Actions[].Deadline
	CorrelationSnapshot *Correlation
}

// SourceHealth is one row in a Correlation's watchtower snapshot.
type SourceHealth struct {
	Source        Source
	LastSuccessAt *time.Time
	Healthy       bool
}

// TopItem is a condensed FeedItem reference inside a watchtower snapshot.
type TopItem struct {
	Source      Source
	ExternalID  string
	Title       string
	PublishedAt *time.Time
}

// WatchtowerSnapshot is a point-in-time view of feed-item state used by
// the Correlation Builder.
type WatchtowerSnapshot struct {
	TotalFeedItems int
	ActiveAlerts   int
	SourcesStatus  []SourceHealth
	TopItems       []TopItem // up to 5, most recent by PublishedAt
	Timestamp      time.Time
}

// MatchBasis is the closed set a VendorMatch's basis is drawn from.
type MatchBasis string

const (
	MatchTextContent       MatchBasis = "text_content"
	MatchUnmatchedCandidate MatchBasis = "unmatched_candidate"
)

// VendorMatch is one candidate vendor reference found in evidence text,
// matched (or not) against the tenant's vendor registry.
type VendorMatch struct {
	VendorID  string // absent ("") when unmatched
	Name      string
	Basis     MatchBasis
	RiskScore *int
	RiskLevel RiskLevel
}

// Correlation links evidence to the current watchtower state and the
// tenant's vendor registry. Pure: identical inputs produce byte-identical
// WatchtowerSnapshot and Narrative (spec.md testable property 11).
type Correlation struct {
	WatchtowerSnapshot WatchtowerSnapshot
	VendorMatches      []VendorMatch
	Narrative          []string // 3-5 bullets
}
