package golden

import (
	"fmt"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

const (
	maxHighActions   = 3
	maxMediumActions = 2
)

// BuildActionPlan synthesizes an ActionPlan from a run's findings and
// correlation (spec.md §4.8). correlation.VendorMatches drives whether a
// supply-chain action is appended.
func BuildActionPlan(runID, evidenceID string, findings []model.Finding, correlation model.Correlation) model.ActionPlan {
	var actions []model.Action

	highCount, mediumCount := 0, 0
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityHigh:
			if highCount < maxHighActions {
				actions = append(actions, highAction(f))
			}
			highCount++
		case model.SeverityMedium:
			if mediumCount < maxMediumActions {
				actions = append(actions, mediumAction(f))
			}
			mediumCount++
		}
	}

	hasVendorMatches := false
	for _, m := range correlation.VendorMatches {
		if m.VendorID != "" {
			hasVendorMatches = true
			break
		}
	}
	if hasVendorMatches {
		actions = append(actions, model.Action{
			Title:       "Review Supply Chain Vendor Risk",
			Description: "One or more vendors referenced in this evidence were matched against the vendor registry and carry a recorded risk score; review before proceeding.",
			Priority:    "MEDIUM",
			Owner:       "Supply Chain Quality",
			Deadline:    "14d",
		})
	}

	actions = append(actions, model.Action{
		Title:       "Archive Supporting Documentation",
		Description: "File this evidence and its findings in the document management system per the retention schedule.",
		Priority:    "LOW",
		Owner:       "Quality Assurance",
		Deadline:    "30d",
	})

	return model.ActionPlan{
		RunID:               runID,
		EvidenceID:          evidenceID,
		Rationale:           buildRationale(highCount, mediumCount, hasVendorMatches),
		Actions:             actions,
		Owners:              dedupeProjection(actions, func(a model.Action) string { return a.Owner }),
		Deadlines:           dedupeProjection(actions, func(a model.Action) string { return a.Deadline }),
		CorrelationSnapshot: &correlation,
	}
}

func highAction(f model.Finding) model.Action {
	return model.Action{
		Title:       "Remediate: " + f.Title,
		Description: f.Description,
		Priority:    "HIGH",
		Owner:       "Quality Assurance",
		Deadline:    "7d",
	}
}

func mediumAction(f model.Finding) model.Action {
	return model.Action{
		Title:       "Address: " + f.Title,
		Description: f.Description,
		Priority:    "MEDIUM",
		Owner:       "Compliance",
		Deadline:    "21d",
	}
}

func buildRationale(highCount, mediumCount int, vendorRiskIncorporated bool) string {
	rationale := fmt.Sprintf("Plan synthesized from %d HIGH-severity and %d MEDIUM-severity finding(s).", highCount, mediumCount)
	if vendorRiskIncorporated {
		rationale += " Vendor risk signals from the correlation snapshot were incorporated."
	}
	return rationale
}

func dedupeProjection(actions []model.Action, project func(model.Action) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range actions {
		v := project(a)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
