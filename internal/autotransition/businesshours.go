package autotransition

import (
	"time"

	"github.com/dvfashion/backend/pkg/config"
)

// snapToBusinessHours moves a scheduled time into the configured window.
// Times before the window snap to its start the same day, times after it
// to the start of the next day, and weekends roll forward to Monday.
func snapToBusinessHours(t time.Time, cfg config.AutoTransitionConfig) time.Time {
	if !cfg.RespectBusinessHours {
		return t
	}

	out := t
	switch {
	case out.Hour() < cfg.BusinessStartHour:
		out = atHour(out, cfg.BusinessStartHour)
	case out.Hour() >= cfg.BusinessEndHour:
		out = atHour(out.AddDate(0, 0, 1), cfg.BusinessStartHour)
	}

	for out.Weekday() == time.Saturday || out.Weekday() == time.Sunday {
		out = atHour(out.AddDate(0, 0, 1), cfg.BusinessStartHour)
	}
	return out
}

// withinBusinessHours reports whether t falls inside the configured window.
// Always true when the window is disabled.
func withinBusinessHours(t time.Time, cfg config.AutoTransitionConfig) bool {
	if !cfg.RespectBusinessHours {
		return true
	}
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return t.Hour() >= cfg.BusinessStartHour && t.Hour() < cfg.BusinessEndHour
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
