package model

// Tenant is an opaque identifier owning vendors, evidence, and runs.
// Tenants are independent: no cross-tenant consistency is implied or
// enforced beyond identity (spec.md Non-goals).
type Tenant struct {
	ID string
}

// RiskLevel is the derived, cached classification of a Vendor's
// RiskScore. Always recomputed from the score via RiskLevelForScore;
// never set independently.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelForScore derives a RiskLevel from a 0-100 score using the
// thresholds in pkg/risk (70 critical, 50 high, 25 medium, else low).
// Kept here too so any code holding a bare score can classify it without
// importing pkg/risk.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Vendor is a tenant-scoped entity in the vendor registry used by the
// Correlation Builder (C6) to match candidate names extracted from
// evidence text.
type Vendor struct {
	ID        string
	TenantID  string
	Name      string
	Code      string
	Country   string
	RiskScore int // 0-100
	RiskLevel RiskLevel
	Approved  bool
}
