package provider

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// RecallsAdapter fetches FDA drug-recall records. Primary endpoint is a
// JSON API returning a "results" array; falls back to an RSS feed when
// the primary returns a non-retryable 4xx or retries are exhausted
// (spec.md §4.2).
type RecallsAdapter struct {
	BaseAdapter
	primaryURL string
	rssURLs    []string
}

// NewRecallsAdapter builds the FDA Drug Recalls adapter.
func NewRecallsAdapter(primaryURL string, rssURLs []string) *RecallsAdapter {
	return &RecallsAdapter{
		BaseAdapter: newBaseAdapter(model.SourceFDARecalls, "FDA Drug Recalls", model.CategoryRecall),
		primaryURL:  primaryURL,
		rssURLs:     rssURLs,
	}
}

func (a *RecallsAdapter) Fetch(ctx context.Context) ([]*model.FeedItem, int, error) {
	// Try the JSON primary first, on its own retry budget, before
	// falling through to the RSS fallback list.
	jsonRes, jsonErr := fetchURLsWithRetry(ctx, a.client, []string{a.primaryURL}, nil)
	if jsonErr == nil {
		items, err := a.parseJSON(jsonRes.body)
		if err == nil && len(items) > 0 {
			a.setHealthy(true)
			return items, jsonRes.httpStatus, nil
		}
	}

	if len(a.rssURLs) == 0 {
		a.setHealthy(false)
		return nil, jsonRes.httpStatus, fmt.Errorf("fda_recalls: primary failed and no fallback configured: %w", jsonErr)
	}

	rssRes, rssErr := fetchURLsWithRetry(ctx, a.client, a.rssURLs, nil)
	if rssErr != nil {
		a.setHealthy(false)
		return nil, rssRes.httpStatus, fmt.Errorf("fda_recalls: %w", rssErr)
	}

	items, err := a.parseRSS(rssRes.body)
	if err != nil {
		a.setHealthy(false)
		return nil, rssRes.httpStatus, fmt.Errorf("fda_recalls: %w", err)
	}
	a.setHealthy(true)
	return items, rssRes.httpStatus, nil
}

func (a *RecallsAdapter) parseJSON(body []byte) ([]*model.FeedItem, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	raw, _ := extractResultsList(payload, "results", "data", "recalls")

	now := time.Now().UTC()
	var items []*model.FeedItem
	for _, r := range raw {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if item := a.parseRecallItem(obj, now); item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (a *RecallsAdapter) parseRecallItem(obj map[string]any, ingestedAt time.Time) *model.FeedItem {
	productDesc := FirstNonEmpty(
		StringField(obj, "product_description"),
		StringField(obj, "openfda_brand_name"),
		StringField(obj, "product"),
	)
	if productDesc == "" {
		return nil
	}
	firm := FirstNonEmpty(StringField(obj, "recalling_firm"), StringField(obj, "firm_name"), StringField(obj, "company"))
	recallNumber := FirstNonEmpty(StringField(obj, "recall_number"), StringField(obj, "event_id"))
	reason := FirstNonEmpty(StringField(obj, "reason_for_recall"), StringField(obj, "reason"))
	classification := FirstNonEmpty(StringField(obj, "classification"), StringField(obj, "recall_class"))
	reportDate := FirstNonEmpty(StringField(obj, "report_date"), StringField(obj, "recall_initiation_date"), StringField(obj, "center_classification_date"))
	publishedAt := ParseDate(reportDate)

	title := "Drug Recall: " + productDesc
	if classification != "" {
		title += " (Class " + classification + ")"
	}
	if len(title) > 200 {
		title = title[:200]
	}

	var summaryParts []string
	if firm != "" {
		summaryParts = append(summaryParts, "Recalling firm: "+firm)
	}
	if reason != "" {
		summaryParts = append(summaryParts, "Reason: "+reason)
	}
	summary := strings.Join(summaryParts, ". ")
	if len(summary) > 1000 {
		summary = summary[:1000]
	}

	externalID := ""
	if recallNumber != "" {
		externalID = "recall-" + recallNumber
	}

	url := "https://www.fda.gov/safety/recalls-market-withdrawals-safety-alerts"
	tags := []string{"recall"}
	if classification != "" {
		tags = append(tags, "class-"+classification)
	}

	rawPayload, _ := json.Marshal(obj)

	item, err := model.NewFeedItem(a.SourceID(), a.Category(), externalID, title, url, publishedAt, summary, firm, model.StatusAbsent, tags, string(rawPayload), ingestedAt)
	if err != nil {
		return nil
	}
	return item
}

// rssFeed mirrors the minimal subset of an RSS 2.0 document used as the
// recalls fallback channel.
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

func (a *RecallsAdapter) parseRSS(body []byte) ([]*model.FeedItem, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var items []*model.FeedItem
	for _, it := range feed.Channel.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		publishedAt := parseRFC1123ish(it.PubDate)
		externalID := ""
		if it.GUID != "" {
			externalID = "recall-rss-" + it.GUID
		}
		item, err := model.NewFeedItem(a.SourceID(), a.Category(), externalID, title, it.Link, publishedAt, it.Description, "", model.StatusAbsent, []string{"recall"}, it.Description, now)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func parseRFC1123ish(raw string) *time.Time {
	layouts := []string{time.RFC1123, time.RFC1123Z, time.RFC822, time.RFC822Z}
	raw = strings.TrimSpace(raw)
	for _, l := range layouts {
		if t, err := time.Parse(l, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return ParseDate(raw)
}
