package autotransition

import (
	"testing"
	"time"

	"github.com/dvfashion/backend/pkg/config"
)

func TestSnapToBusinessHours(t *testing.T) {
	t.Parallel()

	cfg := config.AutoTransitionConfig{
		RespectBusinessHours: true,
		BusinessStartHour:    5,
		BusinessEndHour:      21,
	}

	// 2026-01-05 is a Monday.
	day := func(d, hour, minute int) time.Time {
		return time.Date(2026, time.January, d, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{name: "inside window untouched", in: day(5, 14, 30), want: day(5, 14, 30)},
		{name: "window start inclusive", in: day(5, 5, 0), want: day(5, 5, 0)},
		{name: "before window snaps to start", in: day(5, 3, 45), want: day(5, 5, 0)},
		{name: "after window snaps to next morning", in: day(5, 22, 10), want: day(6, 5, 0)},
		{name: "end hour counts as after", in: day(5, 21, 0), want: day(6, 5, 0)},
		{name: "saturday rolls to monday", in: day(10, 12, 0), want: day(12, 5, 0)},
		{name: "sunday rolls to monday", in: day(11, 9, 0), want: day(12, 5, 0)},
		{name: "friday night lands monday morning", in: day(9, 23, 0), want: day(12, 5, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := snapToBusinessHours(tc.in, cfg)
			if !got.Equal(tc.want) {
				t.Fatalf("snap(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSnapDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := config.AutoTransitionConfig{RespectBusinessHours: false, BusinessStartHour: 5, BusinessEndHour: 21}
	in := time.Date(2026, time.January, 10, 2, 0, 0, 0, time.UTC) // Saturday, before the window
	if got := snapToBusinessHours(in, cfg); !got.Equal(in) {
		t.Fatalf("expected passthrough when disabled, got %v", got)
	}
}
