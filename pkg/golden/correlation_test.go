package golden

import (
	"testing"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/stretchr/testify/require"
)

func TestBuildCorrelation_IsDeterministic(t *testing.T) {
	findings := []model.Finding{{Title: "x", Severity: model.SeverityHigh}}
	vendors := []*model.Vendor{{ID: "v1", Name: "Acme Pharma", RiskScore: 80, RiskLevel: model.RiskCritical}}
	snapshot := model.WatchtowerSnapshot{TotalFeedItems: 10, ActiveAlerts: 2, Timestamp: time.Unix(0, 0).UTC()}

	text := "Evidence mentions Acme Pharma as the responsible supplier."
	c1 := BuildCorrelation(text, "doc.pdf", findings, vendors, snapshot)
	c2 := BuildCorrelation(text, "doc.pdf", findings, vendors, snapshot)

	require.Equal(t, c1.Narrative, c2.Narrative)
	require.Equal(t, c1.WatchtowerSnapshot, c2.WatchtowerSnapshot)
	require.Equal(t, c1.VendorMatches, c2.VendorMatches)
}

func TestBuildCorrelation_MatchesKnownVendorCaseInsensitive(t *testing.T) {
	vendors := []*model.Vendor{{ID: "v1", Name: "Acme Pharma", RiskLevel: model.RiskHigh}}
	c := BuildCorrelation("We sourced from ACME Pharma last quarter.", "", nil, vendors, model.WatchtowerSnapshot{})
	require.Len(t, c.VendorMatches, 1)
	require.Equal(t, "v1", c.VendorMatches[0].VendorID)
	require.Equal(t, model.MatchTextContent, c.VendorMatches[0].Basis)
}

func TestBuildCorrelation_NarrativeHasBetweenThreeAndFiveBullets(t *testing.T) {
	c := BuildCorrelation("nothing relevant here", "", nil, nil, model.WatchtowerSnapshot{})
	require.GreaterOrEqual(t, len(c.Narrative), 3)
	require.LessOrEqual(t, len(c.Narrative), 5)
}

func TestBuildCorrelation_UnmatchedCandidateCappedAtFive(t *testing.T) {
	text := "AlphaPharma Corp, BetaLabs Inc, GammaPharmaceuticals LLC, DeltaPharma Ltd, EpsilonPharma Corp, ZetaPharma Corp all appeared in this record."
	c := BuildCorrelation(text, "", nil, nil, model.WatchtowerSnapshot{})
	unmatched := 0
	for _, m := range c.VendorMatches {
		if m.Basis == model.MatchUnmatchedCandidate {
			unmatched++
		}
	}
	require.LessOrEqual(t, unmatched, 5)
}
