package publish

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/models"
)

// Sentinel markers delimiting the injected report fragment in the hosted page.
const (
	MarkerStart = "<!-- REPORT_TABLE_START -->"
	MarkerEnd   = "<!-- REPORT_TABLE_END -->"
)

type column struct {
	header string
	value  func(models.TickerRecord) string
}

func frameBool(rec models.TickerRecord, tf models.Timeframe) string {
	if rec.Frames == nil {
		return ""
	}
	return common.FormatYesNo(rec.Frames[tf].CloseAboveSMA36)
}

var reportColumns = []column{
	{"Asset", func(r models.TickerRecord) string { return r.Symbol }},
	{"Last", func(r models.TickerRecord) string { return common.FormatNum(r.Metrics.Last, 2) }},
	{"52w High", func(r models.TickerRecord) string { return common.FormatYesNo(r.Metrics.Is52WHigh) }},
	{"52w Low", func(r models.TickerRecord) string { return common.FormatYesNo(r.Metrics.Is52WLow) }},
	{"Weeks >= 36WMA", func(r models.TickerRecord) string { return common.FormatCount(r.Metrics.WeeklyCloseCountAbove36WMA) }},
	{"Dist 36WMA", func(r models.TickerRecord) string { return common.FormatPct(r.Metrics.DistTo36WMA) }},
	{"Dist 36MMA", func(r models.TickerRecord) string { return common.FormatPct(r.Metrics.DistTo36MMA) }},
	{"D >= SMA36", func(r models.TickerRecord) string { return frameBool(r, models.TimeframeDaily) }},
	{"W >= SMA36", func(r models.TickerRecord) string { return frameBool(r, models.TimeframeWeekly) }},
	{"M >= SMA36", func(r models.TickerRecord) string { return frameBool(r, models.TimeframeMonthly) }},
	{"RSI14 (D)", func(r models.TickerRecord) string {
		if r.Frames == nil {
			return ""
		}
		return common.FormatNum(r.Frames[models.TimeframeDaily].RSI14, 1)
	}},
	{"MACD (D)", func(r models.TickerRecord) string {
		if r.Frames == nil {
			return ""
		}
		return common.FormatNum(r.Frames[models.TimeframeDaily].MACD, 3)
	}},
	{"MACD Cross (D)", func(r models.TickerRecord) string {
		if r.Frames == nil {
			return ""
		}
		return common.FormatYesNo(r.Frames[models.TimeframeDaily].MACDCross)
	}},
}

func sortedTickers(doc *models.FeedDocument) []models.TickerRecord {
	tickers := make([]models.TickerRecord, len(doc.Tickers))
	copy(tickers, doc.Tickers)
	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Symbol < tickers[j].Symbol })
	return tickers
}

// RenderHTMLFragment renders the report table as a marker-delimited HTML
// fragment suitable for injection into the hosted page.
func RenderHTMLFragment(doc *models.FeedDocument) string {
	var b strings.Builder
	b.WriteString(MarkerStart)
	b.WriteString("\n<section id=\"report-table\">\n")
	fmt.Fprintf(&b, "<h2>Daily Market Report</h2>\n<p>Generated %s UTC</p>\n", doc.Generated.UTC().Format("2006-01-02 15:04"))

	b.WriteString("<table>\n<thead>\n<tr>")
	for _, c := range reportColumns {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(c.header))
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, rec := range sortedTickers(doc) {
		b.WriteString("<tr>")
		for _, c := range reportColumns {
			cell := html.EscapeString(c.value(rec))
			if c.header == "Asset" && rec.Charts.Best != "" {
				cell = fmt.Sprintf("<a href=%q>%s</a>", rec.Charts.Best, cell)
			}
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")

	if len(doc.Missing) > 0 {
		b.WriteString("<p class=\"degraded\">Degraded inputs: ")
		escaped := make([]string, len(doc.Missing))
		for i, m := range doc.Missing {
			escaped[i] = html.EscapeString(m)
		}
		b.WriteString(strings.Join(escaped, "; "))
		b.WriteString("</p>\n")
	}

	b.WriteString("</section>\n")
	b.WriteString(MarkerEnd)
	b.WriteString("\n")
	return b.String()
}

// RenderMarkdown renders the report as a standalone Markdown document with
// the indicator table and the current news window.
func RenderMarkdown(doc *models.FeedDocument) string {
	var b strings.Builder
	b.WriteString("# Daily Market Report\n\n")
	fmt.Fprintf(&b, "Generated %s UTC\n\n", doc.Generated.UTC().Format("2006-01-02 15:04"))

	headers := make([]string, len(reportColumns))
	separators := make([]string, len(reportColumns))
	for i, c := range reportColumns {
		headers[i] = c.header
		separators[i] = "---"
	}
	fmt.Fprintf(&b, "| %s |\n", strings.Join(headers, " | "))
	fmt.Fprintf(&b, "| %s |\n", strings.Join(separators, " | "))
	for _, rec := range sortedTickers(doc) {
		cells := make([]string, len(reportColumns))
		for i, c := range reportColumns {
			cells[i] = c.value(rec)
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}

	if len(doc.News) > 0 {
		b.WriteString("\n## News\n\n")
		for _, item := range doc.News {
			fmt.Fprintf(&b, "- [%s](%s)", item.Title, item.URL)
			if item.Source != "" {
				fmt.Fprintf(&b, " (%s)", item.Source)
			}
			if item.Timestamp != "" {
				fmt.Fprintf(&b, " %s", item.Timestamp)
			}
			b.WriteString("\n")
		}
	}

	if len(doc.Missing) > 0 {
		b.WriteString("\n## Diagnostics\n\n")
		for _, m := range doc.Missing {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	return b.String()
}
