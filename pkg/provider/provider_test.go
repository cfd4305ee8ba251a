package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/Ebang213/pharmaforge/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortagesAdapter_ParsesJSONPrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"generic_name":"Amoxicillin","company_name":"Acme Pharma","status":"Currently in Shortage","update_date":"2026-01-10"}]}`))
	}))
	defer srv.Close()

	a := provider.NewShortagesAdapter(srv.URL, nil)
	items, status, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, items, 1)
	assert.Equal(t, "Acme Pharma", items[0].VendorName)
	assert.Equal(t, model.StatusCurrent, items[0].Status)
	assert.NotContains(t, items[0].Title, "Unknown")
}

func TestShortagesAdapter_FallsBackToHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><table class="shortage-datatable"><tbody>
<tr><td>Widgetol</td><td>Widget Labs</td><td>Resolved</td></tr>
</tbody></table></body></html>`))
	}))
	defer srv.Close()

	a := provider.NewShortagesAdapter(srv.URL, nil)
	items, _, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusResolved, items[0].Status)
}

func TestShortagesAdapter_AllSourcesFailedReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := provider.NewShortagesAdapter(srv.URL, nil)
	_, _, err := a.Fetch(context.Background())
	assert.Error(t, err)
	assert.False(t, a.IsHealthy())
}

func TestRecallsAdapter_FallsBackToRSSOn4xx(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer primary.Close()

	rss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0"?><rss><channel><item>
<title>Recall of Widget Tablets</title><link>https://fda.gov/r1</link>
<description>Contamination risk</description><guid>r-1</guid>
</item></channel></rss>`))
	}))
	defer rss.Close()

	a := provider.NewRecallsAdapter(primary.URL, []string{rss.URL})
	items, _, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "recall-rss-r-1", items[0].ExternalID)
}

func TestWarningLettersAdapter_ParsesTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><table id="warning-letters-datatable"><tbody>
<tr><td><a href="https://fda.gov/wl/1">Acme Pharma</a></td><td>2026-02-01</td><td>cGMP deviations noted</td></tr>
</tbody></table></body></html>`))
	}))
	defer srv.Close()

	a := provider.NewWarningLettersAdapter([]string{srv.URL})
	items, _, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://fda.gov/wl/1", items[0].URL)
	assert.Equal(t, model.CategoryWarningLetter, items[0].Category)
}

func TestRegistry_UnknownSourceNotFound(t *testing.T) {
	r := provider.NewRegistry(
		provider.SourceURLs{Primary: "http://example.invalid"},
		provider.SourceURLs{Primary: "http://example.invalid"},
		provider.SourceURLs{Primary: "http://example.invalid"},
	)
	_, ok := r.Get(model.Source("nonexistent"))
	assert.False(t, ok)
	assert.Len(t, r.EnabledSources(), 3)
}
