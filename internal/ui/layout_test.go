package ui

import "testing"

func TestDetermineLayoutMode(t *testing.T) {
	tests := []struct {
		cols, rows int
		want       LayoutMode
	}{
		{140, 30, LayoutWide},
		{110, 24, LayoutWide},
		{100, 30, LayoutMedium},
		{59, 30, LayoutTooSmall},
		{100, 17, LayoutTooSmall},
	}
	for _, tc := range tests {
		if got := DetermineLayoutMode(tc.cols, tc.rows); got != tc.want {
			t.Fatalf("%dx%d: expected %v, got %v", tc.cols, tc.rows, tc.want, got)
		}
	}
}
