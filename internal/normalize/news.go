package normalize

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/bobmcallan/marketfeed/internal/models"
)

// newsContainerKeys are the object keys a news document may expose its item
// list under, consulted in declared order.
var newsContainerKeys = []string{"items", "news", "data", "posts"}

var (
	aliasNewsTitle     = []string{"title", "headline"}
	aliasNewsURL       = []string{"url", "link"}
	aliasNewsTimestamp = []string{"timestamp", "timestamp_iso", "published", "published_at", "pubDate", "date"}
	aliasNewsSummary   = []string{"summary", "description"}
	aliasNewsImage     = []string{"image", "image_url", "thumb"}
	aliasNewsSource    = []string{"source", "site"}
)

var summaryConverter = md.NewConverter("", true, nil)

// News extracts news entries from a raw news document. Accepts a bare list
// or an object exposing the list under one of the recognized keys; any
// other shape yields an empty list. Entries without both a title and a URL
// are dropped.
func News(doc any) []models.NewsItem {
	list, ok := asList(doc)
	if !ok {
		m, isMap := asMap(doc)
		if !isMap {
			return nil
		}
		for _, key := range newsContainerKeys {
			if l, found := asList(m[key]); found {
				list = l
				break
			}
		}
		if list == nil {
			return nil
		}
	}

	items := make([]models.NewsItem, 0, len(list))
	for _, v := range list {
		entry, ok := asMap(v)
		if !ok {
			continue
		}
		item := models.NewsItem{
			Title:     pickString(entry, aliasNewsTitle...),
			URL:       pickString(entry, aliasNewsURL...),
			Timestamp: pickString(entry, aliasNewsTimestamp...),
			Summary:   plainSummary(pickString(entry, aliasNewsSummary...)),
			Image:     pickString(entry, aliasNewsImage...),
			Source:    pickString(entry, aliasNewsSource...),
		}
		if item.Title == "" || item.URL == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// plainSummary strips HTML markup from a summary. RSS producers emit a mix
// of plain text and HTML bodies.
func plainSummary(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	converted, err := summaryConverter.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(converted)
}
