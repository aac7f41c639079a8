package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/marketfeed/internal/common"
	"github.com/bobmcallan/marketfeed/internal/models"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func testFeed() *models.FeedDocument {
	return &models.FeedDocument{
		Spec:      models.FeedSpecVersion,
		Generated: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC),
		RunID:     "run-1",
		Mirrors:   map[string]string{"pages": "https://example.com"},
		Tickers: []models.TickerRecord{
			{
				Symbol: "GLD",
				Metrics: models.TickerMetrics{
					Last:      floatPtr(190.2),
					Is52WHigh: boolPtr(false),
				},
				Frames: map[models.Timeframe]models.FrameMetrics{
					models.TimeframeDaily: {RSI14: floatPtr(62.4), CloseAboveSMA36: boolPtr(true)},
				},
				Charts: models.ChartSet{
					Daily: "https://example.com/charts/GLD_daily_compact.png?v=run-1",
					Best:  "https://example.com/charts/GLD_daily_compact.png?v=run-1",
				},
			},
		},
		News: []models.NewsItem{
			{Title: "Gold steady", URL: "https://example.com/news/1", Timestamp: "2026-08-27T09:00:00Z"},
		},
		Missing: []string{},
	}
}

func countFragments(t *testing.T, page string) int {
	t.Helper()
	return strings.Count(page, MarkerStart)
}

func TestPublishIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(common.NewSilentLogger(), dir, "test")
	doc := testFeed()

	require.NoError(t, p.Publish(doc))
	firstFeed, err := os.ReadFile(filepath.Join(dir, "feed.json"))
	require.NoError(t, err)
	firstPage, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Publish(doc))
	}

	feed, err := os.ReadFile(filepath.Join(dir, "feed.json"))
	require.NoError(t, err)
	assert.Equal(t, string(firstFeed), string(feed), "feed.json byte-identical across runs")

	page, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, string(firstPage), string(page), "index.html byte-identical across runs")
	assert.Equal(t, 1, countFragments(t, string(page)))
}

func TestPublishWritesAllDocuments(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(common.NewSilentLogger(), dir, "test")
	require.NoError(t, p.Publish(testFeed()))

	for _, name := range []string{
		"feed.json", "report.json", "report.md", "report_table.html", "index.html", "heartbeat.json",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}

func TestPublishedTableContent(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(common.NewSilentLogger(), dir, "test")
	require.NoError(t, p.Publish(testFeed()))

	page, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	require.NoError(t, err)

	table := doc.Find("section#report-table table")
	require.Equal(t, 1, table.Length())
	row := table.Find("tbody tr").First()
	assert.Contains(t, row.Find("td").First().Text(), "GLD")
	link, ok := row.Find("a").Attr("href")
	require.True(t, ok)
	assert.Contains(t, link, "GLD_daily_compact.png")
}

func TestUpdatePageReplacesMarkerRegion(t *testing.T) {
	page := "<html><body>\n<p>intro</p>\n" + MarkerStart + "\nold content\n" + MarkerEnd + "\n<p>outro</p>\n</body></html>"
	fragment := MarkerStart + "\nnew content\n" + MarkerEnd + "\n"

	updated := UpdatePage(page, fragment)
	assert.Contains(t, updated, "new content")
	assert.NotContains(t, updated, "old content")
	assert.Contains(t, updated, "<p>intro</p>")
	assert.Contains(t, updated, "<p>outro</p>")
	assert.Equal(t, 1, strings.Count(updated, MarkerStart))

	// Converges: a second update with the same fragment changes nothing.
	assert.Equal(t, updated, UpdatePage(updated, fragment))
}

func TestUpdatePageInsertsBeforeBody(t *testing.T) {
	page := "<html><body>\n<p>intro</p>\n</body></html>"
	fragment := MarkerStart + "\ncontent\n" + MarkerEnd + "\n"

	updated := UpdatePage(page, fragment)
	assert.Equal(t, 1, strings.Count(updated, MarkerStart))
	assert.Less(t, strings.Index(updated, "<p>intro</p>"), strings.Index(updated, MarkerStart))
	assert.Less(t, strings.Index(updated, MarkerEnd), strings.Index(updated, "</body>"))
}

func TestUpdatePageStripsLegacyFragment(t *testing.T) {
	page := `<html><body>
<p>intro</p>
<section id="report-table"><h2>Daily Market Report</h2><table><tr><td>stale</td></tr></table></section>
</body></html>`
	fragment := MarkerStart + "\nfresh\n" + MarkerEnd + "\n"

	updated := UpdatePage(page, fragment)
	assert.NotContains(t, updated, "stale")
	assert.Contains(t, updated, "fresh")
	assert.Equal(t, 1, strings.Count(updated, MarkerStart))
}

func TestUpdatePageStripsHeadingDelimitedLegacy(t *testing.T) {
	page := `<html><body>
<p>intro</p>
<h2>Daily Market Report</h2>
<p>Generated 2026-08-01 00:00 UTC</p>
<table><tr><td>stale</td></tr></table>
<p>outro</p>
</body></html>`
	fragment := MarkerStart + "\nfresh\n" + MarkerEnd + "\n"

	updated := UpdatePage(page, fragment)
	assert.NotContains(t, updated, "stale")
	assert.NotContains(t, updated, "Generated 2026-08-01")
	assert.Contains(t, updated, "outro")
	assert.Equal(t, 1, strings.Count(updated, MarkerStart))
}

func TestUpdatePageBootstrapsMissingPage(t *testing.T) {
	fragment := MarkerStart + "\ncontent\n" + MarkerEnd + "\n"
	page := UpdatePage("", fragment)

	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, `<a href="feed.json">`)
	assert.Equal(t, 1, strings.Count(page, MarkerStart))
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(testFeed())
	assert.Contains(t, md, "# Daily Market Report")
	assert.Contains(t, md, "| GLD |")
	assert.Contains(t, md, "[Gold steady](https://example.com/news/1)")
}

func TestWriteFileAtomicCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")
	require.NoError(t, WriteFileAtomic(path, []byte("data")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}
