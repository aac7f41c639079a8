package normalize

import (
	"github.com/bobmcallan/marketfeed/internal/models"
)

// Alias tables for catalog fields, consulted in declared order.
var (
	aliasLast       = []string{"last", "close", "price", "last_price"}
	aliasHigh52     = []string{"52w_high", "high52", "high_52w"}
	aliasLow52      = []string{"52w_low", "low52", "low_52w"}
	aliasDist36WMA  = []string{"dist_to_36WMA", "dist_to_36wma", "dist_36wma"}
	aliasDist36MMA  = []string{"dist_to_36MMA", "dist_to_36mma", "dist_36mma"}
	aliasWeeksAbove = []string{"weekly_close_count_above_36WMA", "weeks_above_36wma", "weekly_closes_above_36wma"}
	aliasGDXGLD     = []string{"gdx_gld_ratio_vs_50dma", "gdxgld_vs_50dma"}
	aliasSILSLV     = []string{"sil_slv_ratio_vs_50dma", "silslv_vs_50dma"}
	aliasVol20      = []string{"vol20_up_ok", "vol_20_up_ok", "volume20_up"}

	aliasFrameLast  = []string{"last", "close", "price"}
	aliasSMA36      = []string{"sma36", "sma_36", "ma36"}
	aliasRSI14      = []string{"rsi14", "rsi_14", "rsi"}
	aliasMACD       = []string{"macd"}
	aliasMACDSignal = []string{"macd_signal", "signal"}
	aliasMACDHist   = []string{"macd_hist", "macd_histogram", "hist"}
	aliasMACDCross  = []string{"macd_cross", "macd_cross_up"}
	aliasCloseAbove = []string{"close_above_sma36", "above_sma36", "close_gt_sma36"}

	aliasFrames = []string{"frames", "timeframes"}
)

// Catalog extracts canonical ticker records from a raw catalog document.
// The asset mapping is looked up under "summary.assets", then top-level
// "assets", then the whole document is treated as the mapping. Returns
// ok=false only when no mapping shape is recognized at all; per-asset and
// per-field problems degrade to absent values.
func Catalog(doc any, tolerance float64) (map[string]models.TickerRecord, bool) {
	assets, ok := assetMap(doc)
	if !ok {
		return nil, false
	}

	records := make(map[string]models.TickerRecord, len(assets))
	for symbol, raw := range assets {
		obj, ok := asMap(raw)
		if !ok {
			continue
		}
		rec := models.TickerRecord{Symbol: symbol}
		rec.Metrics = metricsOf(obj, tolerance)
		rec.Frames = framesOf(obj, rec.Metrics.Last)
		records[symbol] = rec
	}
	return records, true
}

func assetMap(doc any) (map[string]any, bool) {
	m, ok := asMap(doc)
	if !ok {
		return nil, false
	}
	if summary, ok := asMap(m["summary"]); ok {
		if assets, ok := asMap(summary["assets"]); ok {
			return assets, true
		}
	}
	if assets, ok := asMap(m["assets"]); ok {
		return assets, true
	}
	return m, true
}

func metricsOf(obj map[string]any, tolerance float64) models.TickerMetrics {
	m := models.TickerMetrics{
		Last:                       pickNumber(obj, aliasLast...),
		High52W:                    pickNumber(obj, aliasHigh52...),
		Low52W:                     pickNumber(obj, aliasLow52...),
		DistTo36WMA:                pickNumber(obj, aliasDist36WMA...),
		DistTo36MMA:                pickNumber(obj, aliasDist36MMA...),
		WeeklyCloseCountAbove36WMA: pickNumber(obj, aliasWeeksAbove...),
		GDXGLDRatioVs50DMA:         pickBool(obj, aliasGDXGLD...),
		SILSLVRatioVs50DMA:         pickBool(obj, aliasSILSLV...),
		Vol20UpOK:                  pickBool(obj, aliasVol20...),
	}
	m.Is52WHigh, m.Is52WLow = extremeFlags(m.Last, m.High52W, m.Low52W, tolerance)
	return m
}

// extremeFlags recomputes the 52-week extreme flags from the raw extremes
// and last price. Upstream producers disagree on boundary semantics, so
// input flags are never trusted. A price within the tolerance band of the
// extreme counts as at the extreme.
func extremeFlags(last, high, low *float64, tolerance float64) (*bool, *bool) {
	var isHigh, isLow *bool
	if last != nil && high != nil && *high > 0 {
		v := *last >= *high*(1-tolerance)
		isHigh = &v
	}
	if last != nil && low != nil && *low > 0 {
		v := *last <= *low*(1+tolerance)
		isLow = &v
	}
	return isHigh, isLow
}

func framesOf(obj map[string]any, assetLast *float64) map[models.Timeframe]models.FrameMetrics {
	container, _ := pick(obj, aliasFrames...)
	frameMap, ok := asMap(container)
	if !ok {
		// Older catalogs keyed frames directly on the asset object.
		frameMap = obj
	}

	frames := make(map[models.Timeframe]models.FrameMetrics)
	for _, tf := range models.Timeframes() {
		raw, ok := asMap(frameMap[string(tf)])
		if !ok {
			continue
		}
		f := frameOf(raw)
		if tf == models.TimeframeDaily && f.Last == nil {
			// Daily close and the asset-level last price are the same
			// quantity; some producers emit only one of the two.
			f.Last = assetLast
		}
		if f.Last != nil && f.SMA36 != nil && *f.SMA36 != 0 {
			d := (*f.Last - *f.SMA36) / *f.SMA36
			f.DistTo36MA = &d
		}
		if f.CloseAboveSMA36 == nil && f.Last != nil && f.SMA36 != nil {
			v := *f.Last > *f.SMA36
			f.CloseAboveSMA36 = &v
		}
		if f.IsZero() {
			continue
		}
		frames[tf] = f
	}
	if len(frames) == 0 {
		return nil
	}
	return frames
}

func frameOf(raw map[string]any) models.FrameMetrics {
	return models.FrameMetrics{
		Last:            pickNumber(raw, aliasFrameLast...),
		SMA36:           pickNumber(raw, aliasSMA36...),
		CloseAboveSMA36: pickBool(raw, aliasCloseAbove...),
		RSI14:           pickNumber(raw, aliasRSI14...),
		MACD:            pickNumber(raw, aliasMACD...),
		MACDSignal:      pickNumber(raw, aliasMACDSignal...),
		MACDHist:        pickNumber(raw, aliasMACDHist...),
		MACDCross:       pickBool(raw, aliasMACDCross...),
	}
}
