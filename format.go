package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// statusf prints progress chatter to stderr so stdout stays parseable.
func statusf(format string, args ...any) {
	if flagQuiet {
		return
	}

	fmt.Fprintf(os.Stderr, format, args...)
}

// sizeUnits runs largest first so the first threshold that fits wins.
var sizeUnits = []struct {
	limit int64
	label string
}{
	{1 << 40, "TB"},
	{1 << 30, "GB"},
	{1 << 20, "MB"},
	{1 << 10, "KB"},
}

// formatSize renders a byte count as a short human string like "1.2 MB".
func formatSize(n int64) string {
	for _, u := range sizeUnits {
		if n >= u.limit {
			return fmt.Sprintf("%.1f %s", float64(n)/float64(u.limit), u.label)
		}
	}

	return fmt.Sprintf("%d B", n)
}

// formatTime renders a timestamp ls-style: time of day for dates in the
// current year, the year for anything older.
func formatTime(t time.Time) string {
	if t.Year() == time.Now().Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// truncateCell shortens long table cells, keeping the tail visible because
// file paths differ at the end.
func truncateCell(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return "..." + s[len(s)-max+3:]
}

// printTable writes headers and rows as space-aligned columns. Every row
// must have len(headers) cells.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))

	measure := func(cells []string) {
		for i, c := range cells {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	emit := func(cells []string) {
		padded := make([]string, len(cells))
		for i, c := range cells {
			padded[i] = c + strings.Repeat(" ", widths[i]-len(c))
		}

		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}

	emit(headers)
	for _, row := range rows {
		emit(row)
	}
}
