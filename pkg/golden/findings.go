// Package golden implements the Golden Workflow components C6-C10:
// Correlation Builder, Findings Extractor, Action Planner, Workflow
// Orchestrator, and Export Validator & Renderer. The rule-table shape
// for the extractor is grounded on the teacher's
// pkg/compliance/risk rule-evaluator pattern (a slice of predicate-driven
// rules), adapted here to emit Findings rather than assessment
// mitigations, since keyword-driven findings are what risk_scoring.py's
// sibling module (the golden workflow endpoints) actually model.
package golden

import (
	"strings"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// minFindings is the floor the extractor tops up to when keyword
// matches alone produce fewer than this many findings (spec.md §4.7).
const minFindings = 3

// maxFindings caps the extractor's output regardless of how many
// keyword categories match.
const maxFindings = 10

type findingRule struct {
	keywords    []string
	title       string
	description string
	severity    model.Severity
	cfrRefs     []string
	citation    string
}

var findingRules = []findingRule{
	{
		keywords:    []string{"temperature", "cold chain", "refrigerat"},
		title:       "Temperature / Cold Chain Control Gap",
		description: "Evidence references temperature-controlled or cold-chain handling that requires documented monitoring.",
		severity:    model.SeverityHigh,
		cfrRefs:     []string{"21 CFR 211.142", "21 CFR 211.150"},
		citation:    "21 CFR Part 211 Subpart H - Holding and Distribution",
	},
	{
		keywords:    []string{"cgmp", "manufactur"},
		title:       "cGMP Manufacturing Practice Concern",
		description: "Evidence references manufacturing operations subject to current Good Manufacturing Practice requirements.",
		severity:    model.SeverityHigh,
		cfrRefs:     []string{"21 CFR 211.100", "21 CFR 211.22"},
		citation:    "21 CFR Part 211 Subpart F - Production and Process Controls",
	},
	{
		keywords:    []string{"recall", "deviation"},
		title:       "Recall / Deviation Handling",
		description: "Evidence references a recall or a process deviation requiring investigation and disposition.",
		severity:    model.SeverityHigh,
		cfrRefs:     []string{"21 CFR 211.192", "21 CFR 7.40"},
		citation:    "21 CFR Part 7 - Enforcement Policy; 21 CFR 211.192",
	},
	{
		keywords:    []string{"supplier", "vendor"},
		title:       "Supplier / Vendor Qualification",
		description: "Evidence references a supplier or vendor relationship subject to qualification and ongoing oversight.",
		severity:    model.SeverityMedium,
		cfrRefs:     []string{"21 CFR 211.84"},
		citation:    "21 CFR 211.84 - Testing and Approval or Rejection of Components",
	},
	{
		keywords:    []string{"labeling", "label"},
		title:       "Labeling Accuracy",
		description: "Evidence references product labeling subject to content and accuracy controls.",
		severity:    model.SeverityMedium,
		cfrRefs:     []string{"21 CFR 211.122", "21 CFR 211.137"},
		citation:    "21 CFR Part 211 Subpart G - Packaging and Labeling Control",
	},
	{
		keywords:    []string{"serialization", "dscsa", "traceability"},
		title:       "Serialization / DSCSA Traceability",
		description: "Evidence references product serialization or traceability obligations under drug supply chain security requirements.",
		severity:    model.SeverityMedium,
		cfrRefs:     []string{"21 U.S.C. 360eee-1"},
		citation:    "DSCSA (Drug Supply Chain Security Act), 21 U.S.C. 360eee-1",
	},
}

// ExtractFindings is a pure function over the lowercased evidence text.
// It never suspends and never touches the database; findings are
// returned with RunID/EvidenceID unset for the caller to stamp.
func ExtractFindings(evidenceText string) []model.Finding {
	lower := strings.ToLower(evidenceText)

	var findings []model.Finding
	for _, rule := range findingRules {
		if len(findings) >= maxFindings {
			break
		}
		if !matchesAny(lower, rule.keywords) {
			continue
		}
		findings = append(findings, model.Finding{
			Title:       rule.title,
			Description: rule.description,
			Severity:    rule.severity,
			CFRRefs:     rule.cfrRefs,
			Citations:   []string{rule.citation},
			Entities:    extractEntities(lower, rule.keywords),
		})
	}

	for i := 0; len(findings) < minFindings; i++ {
		findings = append(findings, fallbackFinding(i))
	}

	if len(findings) > maxFindings {
		findings = findings[:maxFindings]
	}
	return findings
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractEntities(lower string, keywords []string) []string {
	var entities []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			entities = append(entities, kw)
		}
	}
	return entities
}

// fixedFallbacks are the top-up findings appended, in order, when
// keyword matches alone produce fewer than minFindings (spec.md §4.7
// names the first two explicitly; the third exists only to keep a
// zero-keyword-match document from producing two identically-titled
// "Record Retention Verification" findings).
var fixedFallbacks = []model.Finding{
	{
		Title:       "General Document Compliance Review",
		Description: "Keyword matches alone produced fewer than three findings; a general compliance review of this evidence is recommended.",
		Severity:    model.SeverityLow,
		CFRRefs:     []string{"21 CFR 211.1"},
		Citations:   []string{"21 CFR Part 211 - Current Good Manufacturing Practice for Finished Pharmaceuticals"},
	},
	{
		Title:       "Record Retention Verification",
		Description: "Verify this evidence and any related records are retained per the applicable retention schedule.",
		Severity:    model.SeverityLow,
		CFRRefs:     []string{"21 CFR 211.180"},
		Citations:   []string{"21 CFR 211.180 - General Requirements for Records and Reports"},
	},
	{
		Title:       "Documentation Completeness Check",
		Description: "No specific keyword category matched beyond the first two reviews; confirm supporting documentation is complete and legible.",
		Severity:    model.SeverityLow,
		CFRRefs:     []string{"21 CFR 211.188"},
		Citations:   []string{"21 CFR 211.188 - Batch Production and Control Records"},
	},
}

// fallbackFinding supplies the fixed top-up finding at index, cycling
// through fixedFallbacks if minFindings is ever raised beyond its length.
func fallbackFinding(index int) model.Finding {
	return fixedFallbacks[index%len(fixedFallbacks)]
}
