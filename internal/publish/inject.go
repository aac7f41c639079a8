package publish

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

const legacyHeading = "Daily Market Report"

// UpdatePage injects the marker-delimited fragment into the hosted page.
// When both markers are present the region between them is replaced
// wholesale; otherwise any marker-free legacy fragment is stripped and the
// fragment is inserted once before </body> (or appended when the page has
// no closing anchor). Running this any number of times converges to exactly
// one copy of the fragment.
func UpdatePage(page, fragment string) string {
	if strings.TrimSpace(page) == "" {
		return BootstrapPage(fragment)
	}

	start := strings.Index(page, MarkerStart)
	end := strings.Index(page, MarkerEnd)
	if start >= 0 && end > start {
		return page[:start] + strings.TrimSuffix(fragment, "\n") + page[end+len(MarkerEnd):]
	}

	page = stripLegacyFragment(page)

	if idx := strings.LastIndex(strings.ToLower(page), "</body>"); idx >= 0 {
		return page[:idx] + fragment + page[idx:]
	}
	return strings.TrimRight(page, "\n") + "\n" + fragment
}

// stripLegacyFragment removes the report table emitted before markers were
// introduced: a <section id="report-table">, or a heading-delimited table.
// The page is only reserialized when something was actually removed.
func stripLegacyFragment(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return page
	}

	removed := false
	doc.Find("section#report-table").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
		removed = true
	})

	if !removed {
		doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
			if strings.TrimSpace(s.Text()) != legacyHeading {
				return
			}
			// Drop the heading and its following siblings up to and
			// including the table it introduced.
			node := s.Next()
			s.Remove()
			removed = true
			for node.Length() > 0 {
				isTable := goquery.NodeName(node) == "table"
				next := node.Next()
				node.Remove()
				if isTable {
					break
				}
				node = next
			}
		})
	}

	if !removed {
		return page
	}
	out, err := doc.Html()
	if err != nil {
		return page
	}
	return out
}

const bootstrapIntro = `Static daily snapshot of market prices, indicators, charts and news.

The table below is regenerated on every run. The machine-readable version
lives in [feed.json](feed.json).`

// BootstrapPage builds a minimal hosted page around the fragment for sites
// that have never published an index.html.
func BootstrapPage(fragment string) string {
	var intro bytes.Buffer
	if err := goldmark.Convert([]byte(bootstrapIntro), &intro); err != nil {
		intro.Reset()
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Daily Market Snapshot</title>
</head>
<body>
<h1>Daily Market Snapshot</h1>
%s%s</body>
</html>
`, intro.String(), fragment)
}
