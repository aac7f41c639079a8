// Package news merges freshly fetched news with the previously published
// window, deduplicating by canonical identity and keeping a bounded
// most-recent slice.
package news

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/marketfeed/internal/models"
)

// trackingPrefixes is the denylist of query parameter name prefixes removed
// during URL canonicalization.
var trackingPrefixes = []string{"utm_", "gclid", "fbclid", "igshid", "mc_cid", "mc_eid"}

// timestampLayouts are the forms upstream producers emit, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type identity struct {
	title     string
	url       string
	timestamp string
}

// CanonicalTitle collapses whitespace and case-folds a title for identity
// comparison.
func CanonicalTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// CanonicalURL strips tracking query parameters, normalizes the scheme to
// https and removes the trailing slash on non-root paths. Remaining query
// parameters keep their original order. Unparseable URLs are returned
// trimmed but otherwise untouched.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Scheme == "" || u.Scheme == "http" {
		u.Scheme = "https"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.RawQuery != "" {
		var kept []string
		for _, pair := range strings.Split(u.RawQuery, "&") {
			name, _, _ := strings.Cut(pair, "=")
			if isTracking(name) {
				continue
			}
			kept = append(kept, pair)
		}
		u.RawQuery = strings.Join(kept, "&")
	}
	return u.String()
}

func isTracking(name string) bool {
	name = strings.ToLower(name)
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Merge combines freshly fetched and previously persisted items into one
// deduplicated, bounded list. Fresh items are considered first, so an item
// re-published with updated metadata supersedes the stale copy. The result
// is ordered by timestamp descending; items with unparseable timestamps
// sort after all parseable ones, keeping their relative input order.
func Merge(fresh, previous []models.NewsItem, max int) []models.NewsItem {
	seen := make(map[identity]struct{}, len(fresh)+len(previous))
	merged := make([]models.NewsItem, 0, len(fresh)+len(previous))

	for _, batch := range [][]models.NewsItem{fresh, previous} {
		for _, item := range batch {
			if item.Title == "" || item.URL == "" {
				continue
			}
			id := identity{
				title:     CanonicalTitle(item.Title),
				url:       CanonicalURL(item.URL),
				timestamp: item.Timestamp,
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, item)
		}
	}

	sortByRecency(merged)
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}

func sortByRecency(items []models.NewsItem) {
	type entry struct {
		item models.NewsItem
		at   time.Time
		ok   bool
	}
	entries := make([]entry, len(items))
	for i, item := range items {
		at, ok := parseTimestamp(item.Timestamp)
		entries[i] = entry{item: item, at: at, ok: ok}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.ok && b.ok:
			return a.at.After(b.at)
		case a.ok:
			return true
		default:
			return false
		}
	})
	for i := range entries {
		items[i] = entries[i].item
	}
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
