package risk

import (
	"testing"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/stretchr/testify/require"
)

func baseVendor() *model.Vendor {
	return &model.Vendor{ID: "v1", Name: "Acme Pharma", Country: "Germany", Approved: true}
}

func TestScoreVendor_BaselineApprovedNoAlertsRecentAudit(t *testing.T) {
	now := time.Now().UTC()
	lastAudit := now.Add(-30 * 24 * time.Hour)
	score, level := ScoreVendor(baseVendor(), nil, &lastAudit, now)
	require.Equal(t, 10, score)
	require.Equal(t, model.RiskLow, level)
}

func TestScoreVendor_UnapprovedAddsPenalty(t *testing.T) {
	now := time.Now().UTC()
	lastAudit := now
	v := baseVendor()
	v.Approved = false
	score, _ := ScoreVendor(v, nil, &lastAudit, now)
	require.Equal(t, 30, score)
}

func TestScoreVendor_HighRiskCountryAndSeverity(t *testing.T) {
	now := time.Now().UTC()
	lastAudit := now
	v := baseVendor()
	v.Country = "China"
	score, level := ScoreVendor(v, []model.Severity{model.SeverityHigh, model.SeverityMedium}, &lastAudit, now)
	// base 10 + high 20 + medium 10 + country-high 15 = 55
	require.Equal(t, 55, score)
	require.Equal(t, model.RiskHigh, level)
}

func TestScoreVendor_NoAuditRecordPenalized(t *testing.T) {
	now := time.Now().UTC()
	score, _ := ScoreVendor(baseVendor(), nil, nil, now)
	require.Equal(t, 20, score) // base 10 + no-audit 10
}

func TestScoreVendor_StaleAuditOverTwoYears(t *testing.T) {
	now := time.Now().UTC()
	stale := now.Add(-3 * 365 * 24 * time.Hour)
	score, _ := ScoreVendor(baseVendor(), nil, &stale, now)
	require.Equal(t, 25, score) // base 10 + stale>2y 15
}

func TestScoreVendor_ClampedAt100(t *testing.T) {
	now := time.Now().UTC()
	v := baseVendor()
	v.Country = "China"
	v.Approved = false
	stale := now.Add(-3 * 365 * 24 * time.Hour)
	severities := []model.Severity{model.SeverityHigh, model.SeverityHigh, model.SeverityHigh, model.SeverityHigh, model.SeverityHigh}
	score, level := ScoreVendor(v, severities, &stale, now)
	require.Equal(t, 100, score)
	require.Equal(t, model.RiskCritical, level)
}

func TestScoreVendor_ThresholdsMatchRiskLevelForScore(t *testing.T) {
	cases := []struct {
		score int
		level model.RiskLevel
	}{
		{69, model.RiskHigh}, {70, model.RiskCritical},
		{49, model.RiskMedium}, {50, model.RiskHigh},
		{24, model.RiskLow}, {25, model.RiskMedium},
	}
	for _, c := range cases {
		require.Equal(t, c.level, model.RiskLevelForScore(c.score))
	}
}
