package sync

import (
	"context"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// requiredSources are the sources whose failure affects overall health,
// matching feed_service.py's SOURCE_CONFIG[*]["required"]=True for all
// three registered sources.
var requiredSources = map[model.Source]bool{
	model.SourceFDARecalls:        true,
	model.SourceFDAShortages:      true,
	model.SourceFDAWarningLetters: true,
}

// SourceStatus is one row of GetHealth's per-source breakdown.
type SourceStatus struct {
	Source         model.Source
	Status         string // "pending", "error", "ok"
	Required       bool
	LastSuccessAt  *time.Time
	LastAttemptAt  *time.Time
	LastError      string
	LastHTTPStatus int
	ItemsFetched   int
	ItemsSaved     int
}

// Health is the GetHealth result (spec.md §4.5, derived from
// feed_service.py's get_health_status).
type Health struct {
	OverallStatus    string // "healthy", "degraded", "down"
	Sources          []SourceStatus
	FeedItems        int
	ActiveAlerts     int
	Vendors          int
	// Facilities is always 0: no facility entity exists in this core
	// (facilities tracking is an out-of-scope external concern, spec.md §6).
	Facilities        int
	AllSourcesHealthy bool
	Timestamp        time.Time
}

// GetHealth derives overall health from each registered source's
// SyncStatus. required-source failures drive OverallStatus; facilities
// are not modeled by this core, so GetHealth always sets Facilities to
// zero (spec.md SUPPLEMENTED FEATURES).
func (e *Engine) GetHealth(ctx context.Context) (Health, error) {
	statuses, err := e.gateway.ListSyncStatuses(ctx)
	if err != nil {
		return Health{}, err
	}
	bySource := make(map[model.Source]*model.SyncStatus, len(statuses))
	for _, s := range statuses {
		bySource[s.Source] = s
	}

	var (
		sourceRows      []SourceStatus
		requiredCount   int
		requiredFailing int
	)

	for _, source := range e.registry.EnabledSources() {
		required := requiredSources[source]
		if required {
			requiredCount++
		}

		status := bySource[source]
		row := SourceStatus{Source: source, Required: required}

		switch {
		case status == nil:
			row.Status = "pending"
		case isSourceErroring(status):
			row.Status = "error"
			row.LastError = status.LastErrorMessage
		default:
			row.Status = "ok"
		}

		if status != nil {
			row.LastSuccessAt = status.LastSuccessAt
			t := status.LastRunAt
			row.LastAttemptAt = &t
			row.LastHTTPStatus = status.LastHTTPStatus
			row.ItemsFetched = status.ItemsFetched
			row.ItemsSaved = status.ItemsSaved
		}

		if required && row.Status != "ok" {
			requiredFailing++
		}
		sourceRows = append(sourceRows, row)
	}

	overall := "healthy"
	switch {
	case requiredCount == 0:
		overall = "healthy"
	case requiredFailing == requiredCount:
		overall = "down"
	case requiredFailing > 0:
		overall = "degraded"
	}

	feedItems, err := e.gateway.CountFeedItems(ctx)
	if err != nil {
		return Health{}, err
	}
	activeAlerts, err := e.gateway.CountActiveAlerts(ctx)
	if err != nil {
		return Health{}, err
	}
	vendors, err := e.gateway.CountVendors(ctx)
	if err != nil {
		return Health{}, err
	}

	return Health{
		OverallStatus:     overall,
		Sources:           sourceRows,
		FeedItems:         feedItems,
		ActiveAlerts:      activeAlerts,
		Vendors:           vendors,
		Facilities:        0,
		AllSourcesHealthy: requiredFailing == 0,
		Timestamp:         time.Now().UTC(),
	}, nil
}

// isSourceErroring reports whether a source's most recent event was a
// failure rather than a success, matching feed_service.py's check that
// last_error_at postdates (or exists without) last_success_at.
func isSourceErroring(s *model.SyncStatus) bool {
	if s.LastErrorAt == nil {
		return false
	}
	return s.LastSuccessAt == nil || s.LastErrorAt.After(*s.LastSuccessAt)
}
