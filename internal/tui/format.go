package tui

import (
	"fmt"
	"strings"
	"time"
)

// maxDisplayTimestamp caps timestamps at year 9999; anything beyond is
// garbage from the server
const maxDisplayTimestamp = 253402300799

// FormatBytes renders a byte count in the largest fitting unit with two
// decimals (e.g. "1.00 KB", "523.00 MB").
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, units[unit])
}

// FormatRate renders a transfer rate in bytes per second
func FormatRate(bytesPerSec int64) string {
	return FormatBytes(bytesPerSec) + "/s"
}

// FormatTimestamp renders a Unix timestamp as "2006-01-02 15:04:05" in UTC.
// Zero (the server's "not set") renders as "-", nonsense values as "N/A".
func FormatTimestamp(ts int64) string {
	if ts == 0 {
		return "-"
	}
	if ts < 0 || ts > maxDisplayTimestamp {
		return "N/A"
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

// duration unit lengths in seconds, matching the humanized output the
// original client produced (month = 30.44 days)
const (
	secsPerYear  = 31557600
	secsPerMonth = 2630016
	secsPerDay   = 86400
)

// FormatSeconds renders a duration in compact human units, largest first,
// skipping zero components: "50s", "2m 1s", "3months 23days 40m 6s".
func FormatSeconds(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	var parts []string
	appendNamed := func(n int64, singular string) {
		if n == 0 {
			return
		}
		name := singular
		if n != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d%s", n, name))
	}

	appendNamed(secs/secsPerYear, "year")
	secs %= secsPerYear
	appendNamed(secs/secsPerMonth, "month")
	secs %= secsPerMonth
	appendNamed(secs/secsPerDay, "day")
	secs %= secsPerDay

	if h := secs / 3600; h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	secs %= 3600
	if m := secs / 60; m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s := secs % 60; s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}

	return strings.Join(parts, " ")
}

// CalculateElapsed renders the elapsed time of a task: start to finish, or
// start to now for a task still running (finish == 0).
func CalculateElapsed(start, finish int64) string {
	if start == 0 {
		return "-"
	}
	end := finish
	if end == 0 {
		end = time.Now().Unix()
	}
	if end < start {
		return "0s"
	}
	return FormatSeconds(end - start)
}

// RenderProgressBar draws a fixed-width bar with the percentage centered
// over the fill: RenderProgressBar(50, 10) == "[███ 50%   ]".
func RenderProgressBar(percentage int, width int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	text := fmt.Sprintf("%3d%%", percentage)
	filled := percentage * width / 100
	if filled > width {
		filled = width
	}
	start := (width - len(text)) / 2
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i >= start && i < start+len(text):
			b.WriteByte(text[i-start])
		case i < filled:
			b.WriteRune('█')
		default:
			b.WriteByte(' ')
		}
	}
	return "[" + b.String() + "]"
}

// TruncateString shortens s to max display characters, marking the cut
// with an ellipsis.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
