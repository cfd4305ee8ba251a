package provider

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts mirrors original_source's fda_shortages.py._parse_date
// format list, tried in order.
var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

var slashDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

// ParseDate tries each known layout in turn, then falls back to a
// loose M/D/YYYY regex extraction, always normalizing to UTC. Returns
// nil (not a zero time.Time) when nothing matches.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if m := slashDateRe.FindStringSubmatch(raw); m != nil {
		if t, err := time.Parse("1/2/2006", m[1]+"/"+m[2]+"/"+m[3]); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FirstNonEmpty returns the first non-empty string field, following the
// upstream field-name fallback-chain convention (e.g. generic_name OR
// drug_name OR product_name) from original_source's field parsing.
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// StringField extracts a string-valued field from a loosely-typed JSON
// object (map[string]any), returning "" if absent or of another type.
func StringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// ListField extracts a []string from a field that may be a JSON array
// of strings or a single string.
func ListField(obj map[string]any, key string) []string {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}
