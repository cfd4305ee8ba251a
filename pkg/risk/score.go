// Package risk implements the vendor risk-scoring formula grounded on
// app/services/risk_scoring.py's calculate_vendor_risk, adapted from the
// teacher's pkg/compliance/risk rule-evaluator shape to this core's
// simpler additive-penalty model.
package risk

import (
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

const (
	baseScore = 10

	penaltyHigh   = 20
	penaltyMedium = 10
	penaltyLow    = 5

	penaltyCountryHigh   = 15
	penaltyCountryMedium = 8

	penaltyUnapproved = 20

	penaltyNoAuditRecord          = 10
	penaltyAuditStaleOverTwoYears = 15
	penaltyAuditStaleOverOneYear  = 8

	auditStaleYearOne = 365 * 24 * time.Hour
	auditStaleYearTwo = 2 * auditStaleYearOne
)

var highRiskCountries = map[string]bool{
	"China": true, "India": true, "Brazil": true, "Russia": true,
}

var mediumRiskCountries = map[string]bool{
	"Mexico": true, "Turkey": true, "Indonesia": true,
}

// ScoreVendor computes a vendor's 0-100 risk score and derived level.
// activeAlertSeverities is the severity of every unacknowledged alert
// currently open against the vendor; lastAuditAt is nil when no audit
// has ever been recorded (itself a penalty, matching the original's
// "else base_score += 10" branch). Severity's closed set here is only
// LOW/MEDIUM/HIGH (spec.md §3); the original's CRITICAL tier collapses
// into the HIGH penalty.
func ScoreVendor(vendor *model.Vendor, activeAlertSeverities []model.Severity, lastAuditAt *time.Time, now time.Time) (int, model.RiskLevel) {
	score := baseScore

	for _, sev := range activeAlertSeverities {
		switch sev {
		case model.SeverityHigh:
			score += penaltyHigh
		case model.SeverityMedium:
			score += penaltyMedium
		default:
			score += penaltyLow
		}
	}

	switch {
	case highRiskCountries[vendor.Country]:
		score += penaltyCountryHigh
	case mediumRiskCountries[vendor.Country]:
		score += penaltyCountryMedium
	}

	if !vendor.Approved {
		score += penaltyUnapproved
	}

	switch {
	case lastAuditAt == nil:
		score += penaltyNoAuditRecord
	case now.Sub(*lastAuditAt) > auditStaleYearTwo:
		score += penaltyAuditStaleOverTwoYears
	case now.Sub(*lastAuditAt) > auditStaleYearOne:
		score += penaltyAuditStaleOverOneYear
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score, model.RiskLevelForScore(score)
}
