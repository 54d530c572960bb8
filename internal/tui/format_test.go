package tui

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512.00 B"},
		{1024, "1.00 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
		{1099511627776, "1.00 TB"},
		{1536, "1.50 KB"},
		{-5, "0 B"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(1048576); got != "1.00 MB/s" {
		t.Errorf("FormatRate(1048576) = %q", got)
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		percentage int
		width      int
		want       string
	}{
		{50, 10, "[███ 50%   ]"},
		{100, 10, "[███100%███]"},
		{0, 10, "[     0%   ]"},
		{150, 10, "[███100%███]"},
		{-10, 10, "[     0%   ]"},
	}

	for _, tt := range tests {
		if got := RenderProgressBar(tt.percentage, tt.width); got != tt.want {
			t.Errorf("RenderProgressBar(%d, %d) = %q, want %q",
				tt.percentage, tt.width, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{50, "50s"},
		{121, "2m 1s"},
		{25674, "7h 7m 54s"},
		{9879654, "3months 23days 40m 6s"},
	}

	for _, tt := range tests {
		if got := FormatSeconds(tt.secs); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(1271651654); got != "2010-04-19 04:34:14" {
		t.Errorf("FormatTimestamp(1271651654) = %q", got)
	}
	if got := FormatTimestamp(989791271651654); got != "N/A" {
		t.Errorf("FormatTimestamp(huge) = %q, want N/A", got)
	}
	if got := FormatTimestamp(0); got != "-" {
		t.Errorf("FormatTimestamp(0) = %q, want -", got)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a long task name here", 10, "a long ta…"},
		{"anything", 0, ""},
		{"ab", 1, "…"},
	}

	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
