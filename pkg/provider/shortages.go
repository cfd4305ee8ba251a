package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// ShortagesAdapter fetches FDA drug-shortage records. Primary endpoint is
// a JSON API; falls back to HTML table parsing on an alternate page.
// Grounded on original_source's fda_shortages.py (dual content-type
// sniffing, field-name fallback chains, "failed source" on exhaustion —
// see DESIGN.md's Open Question #2 decision).
type ShortagesAdapter struct {
	BaseAdapter
	primaryURL   string
	fallbackURLs []string
}

// NewShortagesAdapter builds the FDA Drug Shortages adapter.
func NewShortagesAdapter(primaryURL string, fallbackURLs []string) *ShortagesAdapter {
	return &ShortagesAdapter{
		BaseAdapter:  newBaseAdapter(model.SourceFDAShortages, "FDA Drug Shortages", model.CategoryShortage),
		primaryURL:   primaryURL,
		fallbackURLs: fallbackURLs,
	}
}

func (a *ShortagesAdapter) Fetch(ctx context.Context) ([]*model.FeedItem, int, error) {
	urls := append([]string{a.primaryURL}, a.fallbackURLs...)
	res, err := fetchURLsWithRetry(ctx, a.client, urls, nil)
	if err != nil {
		a.setHealthy(false)
		return nil, res.httpStatus, fmt.Errorf("fda_shortages: %w", err)
	}
	a.setHealthy(true)

	items, parseErr := a.parseResponse(res)
	if parseErr != nil {
		return nil, res.httpStatus, fmt.Errorf("fda_shortages: %w", parseErr)
	}
	return items, res.httpStatus, nil
}

// parseResponse implements the "try JSON first based on content-type,
// fall back to HTML, try both if ambiguous" sniffing original_source
// performs in _try_fetch_url.
func (a *ShortagesAdapter) parseResponse(res fetchResult) ([]*model.FeedItem, error) {
	ct := strings.ToLower(res.contentType)
	tryJSON := strings.Contains(ct, "json")
	tryHTML := strings.Contains(ct, "html") || strings.Contains(ct, "text")

	if tryJSON {
		if items, err := a.parseJSON(res.body); err == nil && len(items) > 0 {
			return items, nil
		}
	}
	if tryHTML {
		if items, err := a.parseHTML(res.body); err == nil && len(items) > 0 {
			return items, nil
		}
	}
	// Ambiguous content-type: try both.
	if !tryJSON && !tryHTML {
		if items, err := a.parseJSON(res.body); err == nil && len(items) > 0 {
			return items, nil
		}
		if items, err := a.parseHTML(res.body); err == nil && len(items) > 0 {
			return items, nil
		}
	}
	return nil, model.NewError(model.ErrProviderParse, "no items parsed from shortages response")
}

func (a *ShortagesAdapter) parseJSON(body []byte) ([]*model.FeedItem, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	raw, _ := extractResultsList(payload, "results", "data", "shortages")

	now := time.Now().UTC()
	var items []*model.FeedItem
	for _, r := range raw {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		item := a.parseShortageItem(obj, now)
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (a *ShortagesAdapter) parseShortageItem(obj map[string]any, ingestedAt time.Time) *model.FeedItem {
	genericName := FirstNonEmpty(
		StringField(obj, "generic_name"),
		StringField(obj, "drug_name"),
		StringField(obj, "product_name"),
		StringField(obj, "name"),
	)
	if genericName == "" {
		return nil
	}

	companyName := FirstNonEmpty(
		StringField(obj, "company_name"),
		StringField(obj, "manufacturer"),
		StringField(obj, "labeler"),
		StringField(obj, "firm_name"),
	)

	rawStatus := FirstNonEmpty(
		StringField(obj, "status"),
		StringField(obj, "availability"),
		StringField(obj, "shortage_status"),
	)
	status := model.NormalizeShortageStatus(rawStatus)

	updateDate := FirstNonEmpty(
		StringField(obj, "update_date"),
		StringField(obj, "updated_date"),
		StringField(obj, "last_update"),
		StringField(obj, "date"),
	)
	initialDate := FirstNonEmpty(StringField(obj, "initial_posting_date"), StringField(obj, "initial_date"))
	publishedAt := ParseDate(updateDate)
	if publishedAt == nil {
		publishedAt = ParseDate(initialDate)
	}

	ndc := FirstNonEmpty(StringField(obj, "package_ndc"), StringField(obj, "ndc"))

	title := "Drug Shortage: " + genericName
	if availability := FirstNonEmpty(StringField(obj, "availability"), StringField(obj, "available")); availability != "" {
		title += " (" + availability + ")"
	}

	var summaryParts []string
	if companyName != "" {
		summaryParts = append(summaryParts, "Manufacturer: "+companyName)
	}
	if status != model.StatusAbsent {
		summaryParts = append(summaryParts, "Status: "+string(status))
	}
	if form := FirstNonEmpty(StringField(obj, "dosage_form"), StringField(obj, "form")); form != "" {
		summaryParts = append(summaryParts, "Form: "+form)
	}
	summary := strings.Join(summaryParts, ". ")
	if len(summary) > 1000 {
		summary = summary[:1000]
	}

	url := "https://www.accessdata.fda.gov/scripts/drugshortages/default.cfm"
	tags := append([]string{"shortage"}, ListField(obj, "therapeutic_category")...)

	externalID := ""
	if ndc != "" {
		externalID = "shortage-" + ndc
	}

	rawPayload, _ := json.Marshal(obj)

	item, err := model.NewFeedItem(a.SourceID(), a.Category(), externalID, title, url, publishedAt, summary, companyName, status, tags, string(rawPayload), ingestedAt)
	if err != nil {
		return nil
	}
	return item
}

func (a *ShortagesAdapter) parseHTML(body []byte) ([]*model.FeedItem, error) {
	rows, err := parseHTMLTable(body, []string{"shortage", "datatable"})
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var items []*model.FeedItem
	for i, row := range rows {
		if i >= 50 {
			break
		}
		item := a.parseTableRow(row, now)
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (a *ShortagesAdapter) parseTableRow(row []tableCell, ingestedAt time.Time) *model.FeedItem {
	if len(row) < 2 {
		return nil
	}
	drugName := row[0].text
	if drugName == "" {
		return nil
	}
	link := row[0].link

	var manufacturer string
	var status model.ShortageStatus
	var postedDate *time.Time

	for _, cell := range row[1:] {
		if d := ParseDate(cell.text); d != nil {
			postedDate = d
			continue
		}
		if s := model.NormalizeShortageStatus(cell.text); s != model.StatusAbsent {
			status = s
			continue
		}
		if manufacturer == "" && len(cell.text) > 3 {
			manufacturer = cell.text
		}
	}

	title := "Drug Shortage: " + drugName
	if len(title) > 200 {
		title = title[:200]
	}

	var summaryParts []string
	if manufacturer != "" {
		summaryParts = append(summaryParts, "Manufacturer: "+manufacturer)
	}
	if status != model.StatusAbsent {
		summaryParts = append(summaryParts, "Status: "+string(status))
	}

	url := link
	if url == "" {
		url = "https://www.accessdata.fda.gov/scripts/drugshortages/default.cfm"
	}

	rawPayload := fmt.Sprintf(`{"drug_name":%q,"manufacturer":%q,"status":%q}`, drugName, manufacturer, status)

	item, err := model.NewFeedItem(a.SourceID(), a.Category(), "", title, url, postedDate, strings.Join(summaryParts, ". "), manufacturer, status, nil, rawPayload, ingestedAt)
	if err != nil {
		return nil
	}
	return item
}

// extractResultsList pulls the first present key from candidates whose
// value is a JSON array (or wraps a lone object into a one-element
// slice), mirroring the `data.get("results", data.get("data", ...))`
// chain in original_source.
func extractResultsList(payload map[string]any, candidates ...string) ([]any, bool) {
	for _, key := range candidates {
		v, ok := payload[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			return t, true
		case map[string]any:
			return []any{t}, true
		}
	}
	return nil, false
}
