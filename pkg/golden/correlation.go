package golden

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// vendorCandidateRe targets capitalized company-name patterns ending in
// a common pharma-industry corporate suffix (spec.md §4.6).
var vendorCandidateRe = regexp.MustCompile(
	`\b([A-Z][A-Za-z0-9&.'-]*(?:\s+[A-Z][A-Za-z0-9&.'-]*)*\s+(?:Pharma|Pharmaceuticals|Labs|Laboratories|Inc|Corp|Corporation|LLC|Ltd))\b`,
)

const maxVendorCandidates = 10
const maxUnmatchedCandidates = 5
const minUnmatchedCandidateLen = 3

// BuildCorrelation is pure: identical inputs produce a byte-identical
// WatchtowerSnapshot and Narrative (spec.md testable property 11).
func BuildCorrelation(evidenceText, filename string, findings []model.Finding, vendors []*model.Vendor, snapshot model.WatchtowerSnapshot) model.Correlation {
	candidates := extractVendorCandidates(evidenceText, filename, findings)
	matches := matchVendors(candidates, vendors)

	return model.Correlation{
		WatchtowerSnapshot: snapshot,
		VendorMatches:      matches,
		Narrative:          buildNarrative(findings, snapshot, matches),
	}
}

// extractVendorCandidates pulls candidate company names from the
// evidence text, the filename, and any entity strings findings already
// carried, deduplicated and capped at maxVendorCandidates.
func extractVendorCandidates(evidenceText, filename string, findings []model.Finding) []string {
	seen := map[string]bool{}
	var out []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			return
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}

	for _, src := range []string{evidenceText, filename} {
		for _, m := range vendorCandidateRe.FindAllString(src, -1) {
			if len(out) >= maxVendorCandidates {
				return out
			}
			add(m)
		}
	}
	for _, f := range findings {
		for _, e := range f.Entities {
			if len(out) >= maxVendorCandidates {
				return out
			}
			add(e)
		}
	}
	return out
}

// matchVendors compares each candidate against the tenant's vendor
// registry case-insensitive substring either way.
func matchVendors(candidates []string, vendors []*model.Vendor) []model.VendorMatch {
	var matches []model.VendorMatch
	unmatchedCount := 0

	for _, candidate := range candidates {
		lowerCand := strings.ToLower(candidate)
		matched := false

		for _, v := range vendors {
			lowerName := strings.ToLower(v.Name)
			if strings.Contains(lowerName, lowerCand) || strings.Contains(lowerCand, lowerName) {
				score := v.RiskScore
				matches = append(matches, model.VendorMatch{
					VendorID:  v.ID,
					Name:      v.Name,
					Basis:     model.MatchTextContent,
					RiskScore: &score,
					RiskLevel: v.RiskLevel,
				})
				matched = true
				break
			}
		}

		if !matched && len(candidate) > minUnmatchedCandidateLen && unmatchedCount < maxUnmatchedCandidates {
			matches = append(matches, model.VendorMatch{
				Name:  candidate,
				Basis: model.MatchUnmatchedCandidate,
			})
			unmatchedCount++
		}
	}
	return matches
}

// buildNarrative constructs 3-5 bullets deterministically from counts.
func buildNarrative(findings []model.Finding, snapshot model.WatchtowerSnapshot, matches []model.VendorMatch) []string {
	var bullets []string

	highCount := 0
	for _, f := range findings {
		if f.Severity == model.SeverityHigh {
			highCount++
		}
	}
	if highCount > 0 {
		bullets = append(bullets, fmt.Sprintf("%d HIGH-severity finding(s) identified requiring prioritized remediation.", highCount))
	}

	if snapshot.ActiveAlerts > 0 {
		bullets = append(bullets, fmt.Sprintf("%d active shortage/recall alert(s) currently tracked in the watchtower feed.", snapshot.ActiveAlerts))
	}

	highRiskVendors := 0
	for _, m := range matches {
		if m.RiskLevel == model.RiskHigh || m.RiskLevel == model.RiskCritical {
			highRiskVendors++
		}
	}
	if highRiskVendors > 0 {
		bullets = append(bullets, fmt.Sprintf("%d matched vendor(s) carry a high or critical risk rating.", highRiskVendors))
	}

	bullets = append(bullets, fmt.Sprintf("%d total feed item(s) tracked across all registered sources as of this correlation.", snapshot.TotalFeedItems))

	fallbacks := []string{
		"No elevated watchtower or vendor risk signals were found alongside this evidence.",
		"Routine monitoring continues; no escalation is indicated by the current correlation.",
	}
	for i := 0; len(bullets) < 3 && i < len(fallbacks); i++ {
		bullets = append(bullets, fallbacks[i])
	}

	if len(bullets) > 5 {
		bullets = bullets[:5]
	}
	return bullets
}
