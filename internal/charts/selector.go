// Package charts selects a representative chart artifact per instrument and
// timeframe from the published file listing.
package charts

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/bobmcallan/marketfeed/internal/models"
)

// chartFilePattern is the chart filename grammar: SYMBOL_TIMEFRAME_VARIANT.png.
var chartFilePattern = regexp.MustCompile(`^([A-Za-z0-9.\-]+)_(hourly|daily|weekly|monthly)_(compact|price|rsi|macd)\.png$`)

// bestOrder is the cross-timeframe priority for the "best" slot.
var bestOrder = []models.Timeframe{
	models.TimeframeDaily,
	models.TimeframeWeekly,
	models.TimeframeMonthly,
	models.TimeframeHourly,
}

// variantRank orders variants within a timeframe; lower wins. The compact
// rendering beats any of the detailed ones.
var variantRank = map[string]int{"compact": 0, "price": 1, "rsi": 2, "macd": 3}

// Artifact is one chart file parsed from the listing.
type Artifact struct {
	Symbol    string
	Timeframe models.Timeframe
	Variant   string
	Path      string
}

// Parse applies the filename grammar to a listed relative path.
// Paths that do not match the grammar are not chart artifacts.
func Parse(rel string) (Artifact, bool) {
	m := chartFilePattern.FindStringSubmatch(path.Base(rel))
	if m == nil {
		return Artifact{}, false
	}
	return Artifact{
		Symbol:    strings.ToUpper(m[1]),
		Timeframe: models.Timeframe(m[2]),
		Variant:   m[3],
		Path:      rel,
	}, true
}

// Symbols returns the distinct instrument symbols present in the listing,
// sorted for stable output.
func Symbols(paths []string) []string {
	seen := make(map[string]struct{})
	for _, rel := range paths {
		if a, ok := Parse(rel); ok {
			seen[a.Symbol] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Select builds the per-symbol chart mapping from the listed paths. When
// symbols is non-empty only those instruments are considered; otherwise
// every symbol discovered in the listing is included. urlFor resolves a
// relative path to its published absolute URL. Symbol/timeframe pairs with
// no qualifying artifact are omitted.
func Select(paths []string, symbols []string, urlFor func(rel string) string) map[string]models.ChartSet {
	var allowed map[string]struct{}
	if len(symbols) > 0 {
		allowed = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			allowed[strings.ToUpper(s)] = struct{}{}
		}
	}

	type slot struct {
		symbol string
		tf     models.Timeframe
	}
	picked := make(map[slot]Artifact)
	for _, rel := range paths {
		a, ok := Parse(rel)
		if !ok {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[a.Symbol]; !ok {
				continue
			}
		}
		key := slot{symbol: a.Symbol, tf: a.Timeframe}
		current, exists := picked[key]
		// First listing position wins among equal variants.
		if !exists || variantRank[a.Variant] < variantRank[current.Variant] {
			picked[key] = a
		}
	}

	sets := make(map[string]models.ChartSet)
	for key, a := range picked {
		set := sets[key.symbol]
		set.SetFrame(key.tf, urlFor(a.Path))
		sets[key.symbol] = set
	}
	for symbol, set := range sets {
		for _, tf := range bestOrder {
			if u := set.Frame(tf); u != "" {
				set.Best = u
				break
			}
		}
		sets[symbol] = set
	}
	return sets
}
