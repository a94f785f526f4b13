package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekNumber(t *testing.T) {
	// 2026-01-01 is a Thursday, ISO week 1.
	assert.Equal(t, 1, WeekNumber(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	// 2023-01-01 is a Sunday belonging to ISO week 52 of 2022.
	assert.Equal(t, 52, WeekNumber(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSlot(t *testing.T) {
	// 2026-08-30 is a Sunday.
	day, week := Slot(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, day)
	assert.Equal(t, 35, week)

	// The following Monday starts the next ISO week.
	day, week = Slot(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, day)
	assert.Equal(t, 36, week)
}

func TestAt(t *testing.T) {
	in := time.Date(2026, 9, 1, 3, 45, 12, 0, time.UTC)
	got := At(in, 17)
	assert.Equal(t, time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC), got)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short enough", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"cut with ellipsis", "hello world", 8, "hello w…"},
		{"multibyte safe", "héllo wörld", 8, "héllo w…"},
		{"zero max", "hello", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.max))
		})
	}
}

func TestNormalizeHashtags(t *testing.T) {
	got := NormalizeHashtags([]string{"fitness", "#routine", "  morning habits ", "", "##double"})
	assert.Equal(t, []string{"#fitness", "#routine", "#morninghabits", "#double"}, got)
}
