// Package sync implements the Sync Engine (C5): orchestrates cache
// lookups, provider fetches, and persistence for the three registered
// feed sources, grounded on feed_service.py's sync_provider /
// sync_all_providers (the service this package's SyncOne/SyncAll
// directly translate).
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/audit"
	"github.com/Ebang213/pharmaforge/pkg/cache"
	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/Ebang213/pharmaforge/pkg/observability"
	"github.com/Ebang213/pharmaforge/pkg/provider"
	"github.com/Ebang213/pharmaforge/pkg/storage"
)

// defaultSyncDelay spaces consecutive sources in SyncAll to avoid
// hammering upstream APIs; overridden by Engine.SyncDelay.
const defaultSyncDelay = 500 * time.Millisecond

// Result is the outcome of one SyncOne call. Constructed for every code
// path, including unknown sources and fetch failures — SyncOne never
// returns a bare error.
type Result struct {
	Source         model.Source
	Success        bool
	ItemsFetched   int
	ItemsAdded     int
	Cached         bool
	ErrorMessage   string
	LastHTTPStatus int
	UpdatedAt      time.Time
	LastSuccessAt  *time.Time
	LastErrorAt    *time.Time
}

// AllResult is the outcome of a SyncAll call.
type AllResult struct {
	Status           string // "ok" or "error"
	Degraded         bool
	Results          []Result
	TotalItemsAdded  int
	SourcesSucceeded int
	SourcesFailed    int
}

// Engine is the Sync Engine. Safe for concurrent use: SyncOne is
// re-entrant across distinct sources, and sync status for a source is a
// last-writer-wins single row in the gateway.
type Engine struct {
	registry *provider.Registry
	cache    cache.Cache
	gateway  *storage.Gateway
	log      *slog.Logger
	obs      *observability.Provider
	auditLog audit.Logger

	// SyncDelay spaces consecutive sources during SyncAll. Zero disables
	// spacing entirely. Defaults to 500ms when the Engine is built via
	// NewEngine.
	SyncDelay time.Duration
}

// NewEngine builds an Engine wired to the given registry, cache, and
// persistence gateway. Operational sync events (source succeeded/failed,
// batch completed) are recorded through a default audit.Logger writing
// to stdout; override it with WithAuditLog.
func NewEngine(registry *provider.Registry, c cache.Cache, gateway *storage.Gateway, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{registry: registry, cache: c, gateway: gateway, log: log, auditLog: audit.NewLogger(), SyncDelay: defaultSyncDelay}
}

// WithObservability attaches a tracing/metrics provider; SyncOne records
// a span and RED metrics around each source sync when one is set.
func (e *Engine) WithObservability(p *observability.Provider) *Engine {
	e.obs = p
	return e
}

// WithAuditLog overrides the operational audit sink (default: a Logger
// writing to stdout).
func (e *Engine) WithAuditLog(l audit.Logger) *Engine {
	e.auditLog = l
	return e
}

// SyncOne fetches (or reuses cached) items for one source, persists new
// ones, and records sync telemetry. It never returns a non-nil error;
// every failure mode is captured in the returned Result.
func (e *Engine) SyncOne(ctx context.Context, source model.Source, force bool) Result {
	var finish func(error)
	if e.obs != nil {
		ctx, finish = e.obs.TrackOperation(ctx, "sync.source", observability.SyncOperationAttrs(string(source), false, 0, false)...)
	}
	result := e.syncOne(ctx, source, force)
	if finish != nil {
		if result.Success {
			finish(nil)
		} else {
			finish(errors.New(result.ErrorMessage))
		}
	}
	return result
}

func (e *Engine) syncOne(ctx context.Context, source model.Source, force bool) Result {
	now := time.Now().UTC()
	result := Result{Source: source, UpdatedAt: now}

	adapter, ok := e.registry.Get(source)
	if !ok {
		msg := "unknown source: " + string(source)
		e.log.ErrorContext(ctx, "sync failed", "source", source, "error", msg)
		result.ErrorMessage = msg
		result.LastErrorAt = &now
		e.recordStatus(ctx, source, false, 0, 0, 0, msg)
		e.recordAudit(ctx, source, false, 0, 0, msg)
		return result
	}

	e.log.InfoContext(ctx, "sync starting", "source", source, "force", force)

	items, cached, httpStatus, err := e.fetchOrUseCache(ctx, adapter, force)
	result.Cached = cached
	result.LastHTTPStatus = httpStatus

	if err != nil {
		result.ErrorMessage = err.Error()
		result.LastErrorAt = &now
		e.log.ErrorContext(ctx, "sync fetch failed", "source", source, "error", err)
		e.recordStatus(ctx, source, false, httpStatus, 0, 0, err.Error())
		e.recordAudit(ctx, source, false, 0, 0, err.Error())
		return result
	}

	result.ItemsFetched = len(items)

	newCount, err := e.gateway.UpsertFeedItems(ctx, items)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.LastErrorAt = &now
		e.log.ErrorContext(ctx, "sync persist failed", "source", source, "error", err)
		e.recordStatus(ctx, source, false, httpStatus, len(items), newCount, err.Error())
		e.recordAudit(ctx, source, false, len(items), newCount, err.Error())
		return result
	}

	result.ItemsAdded = newCount
	result.Success = true
	result.LastSuccessAt = &now
	e.log.InfoContext(ctx, "sync completed", "source", source, "items_fetched", len(items), "items_added", newCount)
	e.recordStatus(ctx, source, true, httpStatus, len(items), newCount, "")
	e.recordAudit(ctx, source, true, len(items), newCount, "")
	return result
}

// recordAudit emits an operational audit event for one source's sync
// outcome; failures to write it are not propagated (spec.md §7 treats
// telemetry paths as best-effort).
func (e *Engine) recordAudit(ctx context.Context, source model.Source, success bool, fetched, added int, errMsg string) {
	if e.auditLog == nil {
		return
	}
	action := "sync_source_succeeded"
	if !success {
		action = "sync_source_failed"
	}
	metadata := map[string]interface{}{"items_fetched": fetched, "items_added": added}
	if errMsg != "" {
		metadata["error"] = errMsg
	}
	if err := e.auditLog.Record(ctx, "", "", audit.EventSystem, action, string(source), metadata); err != nil {
		e.log.WarnContext(ctx, "operational audit record failed", "source", source, "error", err)
	}
}

func (e *Engine) fetchOrUseCache(ctx context.Context, a provider.Adapter, force bool) ([]*model.FeedItem, bool, int, error) {
	if !force {
		if raw, ok := e.cache.Get(ctx, a.CacheKey()); ok {
			var items []*model.FeedItem
			if err := json.Unmarshal(raw, &items); err == nil {
				return items, true, 0, nil
			}
			e.log.WarnContext(ctx, "cache payload unreadable, refetching", "key", a.CacheKey())
		}
	}

	items, httpStatus, err := a.Fetch(ctx)
	if err != nil {
		return nil, false, httpStatus, err
	}

	if raw, err := json.Marshal(items); err == nil {
		e.cache.SetEx(ctx, a.CacheKey(), raw, a.CacheTTL())
	}
	return items, false, httpStatus, nil
}

func (e *Engine) recordStatus(ctx context.Context, source model.Source, success bool, httpStatus, fetched, saved int, errMsg string) {
	now := time.Now().UTC()
	s := &model.SyncStatus{
		Source:           source,
		LastRunAt:        now,
		LastErrorMessage: errMsg,
		LastHTTPStatus:   httpStatus,
		ItemsFetched:     fetched,
		ItemsSaved:       saved,
	}
	if success {
		s.LastSuccessAt = &now
	} else {
		s.LastErrorAt = &now
	}
	e.gateway.UpdateSyncStatus(ctx, s)
}

// SyncAll syncs every enabled source in registry order, spacing
// consecutive sources by SyncDelay. status is "ok" if at least one
// source succeeded, else "error"; degraded is true iff any source
// failed — partial success still reports "ok" (spec.md §4.5).
func (e *Engine) SyncAll(ctx context.Context, force bool) AllResult {
	sources := e.registry.EnabledSources()
	out := AllResult{Results: make([]Result, 0, len(sources))}

	for i, source := range sources {
		if i > 0 && e.SyncDelay > 0 {
			select {
			case <-ctx.Done():
				out.Results = append(out.Results, Result{Source: source, ErrorMessage: ctx.Err().Error()})
				out.SourcesFailed++
				continue
			case <-time.After(e.SyncDelay):
			}
		}

		result := e.SyncOne(ctx, source, force)
		out.Results = append(out.Results, result)
		if result.Success {
			out.SourcesSucceeded++
			out.TotalItemsAdded += result.ItemsAdded
		} else {
			out.SourcesFailed++
		}
	}

	if out.SourcesSucceeded > 0 {
		out.Status = "ok"
	} else {
		out.Status = "error"
	}
	out.Degraded = out.SourcesFailed > 0

	e.log.InfoContext(ctx, "sync all complete", "status", out.Status, "degraded", out.Degraded,
		"succeeded", out.SourcesSucceeded, "failed", out.SourcesFailed, "items_added", out.TotalItemsAdded)
	if e.auditLog != nil {
		metadata := map[string]interface{}{
			"status": out.Status, "degraded": out.Degraded,
			"sources_succeeded": out.SourcesSucceeded, "sources_failed": out.SourcesFailed,
			"total_items_added": out.TotalItemsAdded,
		}
		if err := e.auditLog.Record(ctx, "", "", audit.EventSystem, "sync_batch_completed", "all_sources", metadata); err != nil {
			e.log.WarnContext(ctx, "operational audit record failed", "error", err)
		}
	}
	return out
}
