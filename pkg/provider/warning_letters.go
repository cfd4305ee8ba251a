package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// WarningLettersAdapter scrapes the FDA Warning Letters listing page.
// HTML-only: no API exists for this source (spec.md §4.2).
type WarningLettersAdapter struct {
	BaseAdapter
	urls []string
}

// NewWarningLettersAdapter builds the FDA Warning Letters adapter.
func NewWarningLettersAdapter(urls []string) *WarningLettersAdapter {
	return &WarningLettersAdapter{
		BaseAdapter: newBaseAdapter(model.SourceFDAWarningLetters, "FDA Warning Letters", model.CategoryWarningLetter),
		urls:        urls,
	}
}

func (a *WarningLettersAdapter) Fetch(ctx context.Context) ([]*model.FeedItem, int, error) {
	res, err := fetchURLsWithRetry(ctx, a.client, a.urls, nil)
	if err != nil {
		a.setHealthy(false)
		return nil, res.httpStatus, fmt.Errorf("fda_warning_letters: %w", err)
	}

	rows, parseErr := parseHTMLTable(res.body, []string{"warning", "datatable"})
	if parseErr != nil {
		a.setHealthy(false)
		return nil, res.httpStatus, fmt.Errorf("fda_warning_letters: %w", parseErr)
	}

	now := time.Now().UTC()
	var items []*model.FeedItem
	for i, row := range rows {
		if i >= 50 {
			break
		}
		if item := a.parseRow(row, now); item != nil {
			items = append(items, item)
		}
	}
	a.setHealthy(true)
	return items, res.httpStatus, nil
}

func (a *WarningLettersAdapter) parseRow(row []tableCell, ingestedAt time.Time) *model.FeedItem {
	if len(row) < 2 {
		return nil
	}
	companyName := row[0].text
	if companyName == "" {
		return nil
	}
	link := row[0].link

	var issueDate *time.Time
	var subject string
	for _, cell := range row[1:] {
		if d := ParseDate(cell.text); d != nil && issueDate == nil {
			issueDate = d
			continue
		}
		if subject == "" && len(cell.text) > 3 {
			subject = cell.text
		}
	}

	title := "Warning Letter: " + companyName
	if len(title) > 200 {
		title = title[:200]
	}

	url := link
	if url == "" {
		url = "https://www.fda.gov/inspections-compliance-enforcement-and-criminal-investigations/compliance-actions-and-activities/warning-letters"
	}

	rawPayload := fmt.Sprintf(`{"company":%q,"subject":%q}`, companyName, subject)

	item, err := model.NewFeedItem(a.SourceID(), a.Category(), "", title, url, issueDate, subject, companyName, model.StatusAbsent, []string{"warning_letter"}, rawPayload, ingestedAt)
	if err != nil {
		return nil
	}
	return item
}
