package common

import (
	"fmt"
	"strconv"
)

// FormatNum formats an optional float with the given number of decimals.
// Nil renders as an empty cell.
func FormatNum(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// FormatPct formats an optional ratio (0.0117 -> "1.17%").
// Nil renders as an empty cell.
func FormatPct(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// FormatYesNo formats an optional boolean as "Yes"/"No", empty when unknown.
func FormatYesNo(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "Yes"
	}
	return "No"
}

// FormatCount formats an optional count-like value without decimals.
func FormatCount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 0, 64)
}
