package provider

import "github.com/Ebang213/pharmaforge/pkg/model"

// SourceURLs holds the primary and fallback URL list for one source,
// sourced from pkg/config so operators can override them.
type SourceURLs struct {
	Primary   string
	Fallbacks []string
}

// Registry holds one Adapter per enabled source and is the lookup table
// pkg/sync consults for a source_id (spec.md §4.5 step 1).
type Registry struct {
	adapters map[model.Source]Adapter
	order    []model.Source
}

// NewRegistry builds a Registry wired with the three concrete adapters,
// grounded on pkg/compliance/regwatch/adapters.go's
// CreateDefaultAdapters() pattern of assembling one adapter per
// registered source from config-supplied URLs.
func NewRegistry(recalls, shortages, warningLetters SourceURLs) *Registry {
	r := &Registry{adapters: make(map[model.Source]Adapter)}
	r.register(NewRecallsAdapter(recalls.Primary, recalls.Fallbacks))
	r.register(NewShortagesAdapter(shortages.Primary, shortages.Fallbacks))
	r.register(NewWarningLettersAdapter(append([]string{warningLetters.Primary}, warningLetters.Fallbacks...)))
	return r
}

func (r *Registry) register(a Adapter) {
	r.adapters[a.SourceID()] = a
	r.order = append(r.order, a.SourceID())
}

// Get looks up the adapter for source. The bool is false for an unknown
// source (spec.md §4.5 step 1: "Unknown source → return error result").
func (r *Registry) Get(source model.Source) (Adapter, bool) {
	a, ok := r.adapters[source]
	return a, ok
}

// EnabledSources returns the registered sources in stable
// enumeration order (spec.md §5's ordering guarantee for SyncAll).
func (r *Registry) EnabledSources() []model.Source {
	out := make([]model.Source, len(r.order))
	copy(out, r.order)
	return out
}
