// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// FormatCompact formats an amount with human-readable suffixes.
// e.g., 1234 -> "1.2K", 12345678 -> "12.3M", 1234567890 -> "1.2B"
func FormatCompact(v float64) string {
	abs := math.Abs(v)

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
}

// FormatAmount formats a billed or requested amount rounded to whole units
// with comma separators.
func FormatAmount(v float64) string {
	return FormatNumber(int64(math.Round(v)))
}

// FormatARPU formats an average revenue per line with two decimals below
// 100 and whole units above. Halves round away from zero.
func FormatARPU(v float64) string {
	if math.Abs(v) >= 100 {
		return FormatAmount(v)
	}
	return fmt.Sprintf("%.2f", math.Round(v*100)/100)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatSignedPercent formats a percentage change with an explicit sign.
// e.g., 25 -> "+25.0%", -15 -> "-15.0%", 0 -> "0.0%"
func FormatSignedPercent(pct float64) string {
	if pct > 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	if pct == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatDays formats a day-count delta, e.g. +2d or -1d.
func FormatDays(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%dd", delta)
	}
	return fmt.Sprintf("%dd", delta)
}

// Fit truncates s to at most w terminal cells and pads it with spaces to
// exactly w. Wide (CJK) runes count as two cells.
func Fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillRight(s, w)
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
