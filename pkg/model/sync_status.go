package model

import "time"

// SyncStatus is the per-source telemetry row. One row per source,
// global (not tenant-scoped). Upserted per sync run.
type SyncStatus struct {
	Source           Source
	LastRunAt        time.Time
	LastSuccessAt    *time.Time
	LastErrorAt      *time.Time
	LastErrorMessage string
	LastHTTPStatus   int // 0 means absent
	ItemsFetched     int
	ItemsSaved       int
}

// Valid reports whether the timestamp-ordering invariant in spec.md §3
// holds: LastSuccessAt <= LastRunAt and LastErrorAt <= LastRunAt.
func (s *SyncStatus) Valid() bool {
	if s.LastSuccessAt != nil && s.LastSuccessAt.After(s.LastRunAt) {
		return false
	}
	if s.LastErrorAt != nil && s.LastErrorAt.After(s.LastRunAt) {
		return false
	}
	return true
}
