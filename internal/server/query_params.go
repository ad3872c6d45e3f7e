package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

func parseLimit(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return 0, errors.New("invalid_limit")
	}
	return parsed, nil
}

// parseRange resolves an optional start/end query pair, defaulting to the
// trailing defaultDays-day window ending now.
func parseRange(now time.Time, startRaw, endRaw string, defaultDays int) (time.Time, time.Time, error) {
	start, err := parseOptionalTime(startRaw, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseOptionalTime(endRaw, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	resolvedEnd := now
	if end != nil {
		resolvedEnd = *end
	}
	resolvedStart := resolvedEnd.AddDate(0, 0, -defaultDays)
	if start != nil {
		resolvedStart = *start
	}
	if resolvedStart.After(resolvedEnd) {
		return time.Time{}, time.Time{}, errors.New("invalid_time")
	}
	return resolvedStart, resolvedEnd, nil
}
