package utils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"sales_fact", 20, "sales_fact"},
		{"db.sales_fact@cl1", 8, "db.sales..."},
		{"x", 0, "x"},
		{"x", -1, "x"},
		{"売上テーブル", 2, "売上..."},
		{"売上", 2, "売上"},
		{"日本", 5, "日本"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
