// Package models defines the canonical record types produced by a feed run.
package models

import (
	"time"
)

// FeedSpecVersion identifies the published feed document format.
const FeedSpecVersion = "market-feed-v1"

// Timeframe identifies one of the four chart/indicator aggregation windows.
type Timeframe string

const (
	TimeframeHourly  Timeframe = "hourly"
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// Timeframes lists all recognized timeframes.
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeHourly, TimeframeDaily, TimeframeWeekly, TimeframeMonthly}
}

// FrameMetrics holds the per-timeframe indicator snapshot for one ticker.
// Numeric fields are pointers: nil means the upstream producer did not supply
// a finite value. Malformed or non-finite inputs are never carried through.
type FrameMetrics struct {
	Last            *float64 `json:"last"`
	SMA36           *float64 `json:"sma36"`
	CloseAboveSMA36 *bool    `json:"close_above_sma36"`
	DistTo36MA      *float64 `json:"dist_to_36MA"`
	RSI14           *float64 `json:"rsi14"`
	MACD            *float64 `json:"macd"`
	MACDSignal      *float64 `json:"macd_signal"`
	MACDHist        *float64 `json:"macd_hist"`
	MACDCross       *bool    `json:"macd_cross"`
}

// IsZero reports whether no field of the frame is populated.
func (f FrameMetrics) IsZero() bool {
	return f.Last == nil && f.SMA36 == nil && f.CloseAboveSMA36 == nil &&
		f.DistTo36MA == nil && f.RSI14 == nil && f.MACD == nil &&
		f.MACDSignal == nil && f.MACDHist == nil && f.MACDCross == nil
}

// TickerMetrics holds the top-level per-ticker facts.
// The 52-week extreme flags are recomputed from the raw extremes and last
// price during normalization. They are never taken verbatim from input.
type TickerMetrics struct {
	Last                       *float64 `json:"last"`
	Is52WHigh                  *bool    `json:"is_52w_high"`
	Is52WLow                   *bool    `json:"is_52w_low"`
	High52W                    *float64 `json:"52w_high"`
	Low52W                     *float64 `json:"52w_low"`
	DistTo36WMA                *float64 `json:"dist_to_36WMA"`
	DistTo36MMA                *float64 `json:"dist_to_36MMA"`
	WeeklyCloseCountAbove36WMA *float64 `json:"weekly_close_count_above_36WMA"`
	GDXGLDRatioVs50DMA         *bool    `json:"gdx_gld_ratio_vs_50dma"`
	SILSLVRatioVs50DMA         *bool    `json:"sil_slv_ratio_vs_50dma"`
	Vol20UpOK                  *bool    `json:"vol20_up_ok"`
}

// ChartSet maps timeframes to resolved absolute chart URLs for one ticker,
// plus the "best" slot chosen by timeframe priority.
// Absent combinations are omitted from the serialized document.
type ChartSet struct {
	Hourly  string `json:"hourly,omitempty"`
	Daily   string `json:"daily,omitempty"`
	Weekly  string `json:"weekly,omitempty"`
	Monthly string `json:"monthly,omitempty"`
	Best    string `json:"best,omitempty"`
}

// Frame returns the URL for the given timeframe, or empty if unset.
func (c ChartSet) Frame(tf Timeframe) string {
	switch tf {
	case TimeframeHourly:
		return c.Hourly
	case TimeframeDaily:
		return c.Daily
	case TimeframeWeekly:
		return c.Weekly
	case TimeframeMonthly:
		return c.Monthly
	}
	return ""
}

// SetFrame assigns the URL for the given timeframe.
func (c *ChartSet) SetFrame(tf Timeframe, url string) {
	switch tf {
	case TimeframeHourly:
		c.Hourly = url
	case TimeframeDaily:
		c.Daily = url
	case TimeframeWeekly:
		c.Weekly = url
	case TimeframeMonthly:
		c.Monthly = url
	}
}

// IsZero reports whether no chart URL is set.
func (c ChartSet) IsZero() bool {
	return c.Hourly == "" && c.Daily == "" && c.Weekly == "" && c.Monthly == "" && c.Best == ""
}

// TickerRecord is the canonical per-instrument record assembled each run.
// Records are rebuilt from scratch on every run, never patched in place.
type TickerRecord struct {
	Symbol  string                     `json:"symbol"`
	Metrics TickerMetrics              `json:"metrics"`
	Frames  map[Timeframe]FrameMetrics `json:"frames,omitempty"`
	Charts  ChartSet                   `json:"charts"`
}

// NewsItem is one canonical news entry. Timestamp stays a string because
// upstream producers emit a mix of ISO-8601 and RFC1123 forms; ordering
// code parses it best-effort.
type NewsItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary,omitempty"`
	Image     string `json:"image,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Mirror is one equivalent hosting endpoint for the published artifact tree.
type Mirror struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// FeedDocument is the published aggregate. It is exclusively owned by the
// publisher and replaced wholesale each run.
type FeedDocument struct {
	Spec      string            `json:"spec"`
	Generated time.Time         `json:"generated_utc"`
	RunID     string            `json:"run_id,omitempty"`
	Mirrors   map[string]string `json:"mirrors"`
	Tickers   []TickerRecord    `json:"tickers"`
	News      []NewsItem        `json:"news"`
	Missing   []string          `json:"missing"`
}

// ReportDocument is the human-oriented rendering companion to the feed,
// published alongside the Markdown and HTML table exports.
type ReportDocument struct {
	Generated time.Time      `json:"generated_utc"`
	Spec      string         `json:"spec_version"`
	Assets    []TickerRecord `json:"assets"`
	News      []NewsItem     `json:"news"`
}

// Heartbeat records that a run completed, regardless of how degraded it was.
type Heartbeat struct {
	LastRun time.Time `json:"last_run_utc"`
	RunID   string    `json:"run_id"`
	Version string    `json:"version"`
}
