package golden

import (
	"testing"

	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/stretchr/testify/require"
)

func TestBuildActionPlan_HighFindingsProduceHighActionsCapped(t *testing.T) {
	findings := make([]model.Finding, 0)
	for i := 0; i < 5; i++ {
		findings = append(findings, model.Finding{Title: "f", Severity: model.SeverityHigh})
	}
	plan := BuildActionPlan("run-1", "ev-1", findings, model.Correlation{})

	highCount := 0
	for _, a := range plan.Actions {
		if a.Priority == "HIGH" {
			highCount++
		}
	}
	require.LessOrEqual(t, highCount, maxHighActions)
}

func TestBuildActionPlan_AlwaysHasCorrelationSnapshot(t *testing.T) {
	plan := BuildActionPlan("run-1", "ev-1", nil, model.Correlation{Narrative: []string{"x"}})
	require.NotNil(t, plan.CorrelationSnapshot)
}

func TestBuildActionPlan_VendorMatchAddsSupplyChainAction(t *testing.T) {
	corr := model.Correlation{VendorMatches: []model.VendorMatch{{VendorID: "v1", Name: "Acme"}}}
	plan := BuildActionPlan("run-1", "ev-1", nil, corr)

	found := false
	for _, a := range plan.Actions {
		if a.Title == "Review Supply Chain Vendor Risk" {
			found = true
		}
	}
	require.True(t, found)
}

func TestBuildActionPlan_OwnersAndDeadlinesAreDeduplicated(t *testing.T) {
	findings := []model.Finding{
		{Title: "a", Severity: model.SeverityHigh},
		{Title: "b", Severity: model.SeverityHigh},
	}
	plan := BuildActionPlan("run-1", "ev-1", findings, model.Correlation{})

	seen := map[string]bool{}
	for _, o := range plan.Owners {
		require.False(t, seen[o], "owner %q duplicated", o)
		seen[o] = true
	}

	seenDeadlines := map[string]bool{}
	for _, d := range plan.Deadlines {
		require.False(t, seenDeadlines[d], "deadline %q duplicated", d)
		seenDeadlines[d] = true
	}
}
