// Package validation checks identifiers and pagination parameters at the
// transport boundary. The engine itself trusts its callers.
package validation

import (
	"fmt"
	"strings"
)

const (
	MaxIDLength         = 128
	DefaultHistoryCount = 500
	MaxHistoryCount     = 10000
)

// Error is a client input error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ID validates a chart or series identifier.
func ID(field, value string) error {
	if value == "" {
		return invalid(field, "must not be empty")
	}
	if len(value) > MaxIDLength {
		return invalid(field, "must be at most %d characters", MaxIDLength)
	}
	if strings.HasPrefix(value, "/") || strings.HasPrefix(value, "\\") {
		return invalid(field, "must not start with a path separator")
	}
	if strings.Contains(value, "..") {
		return invalid(field, "must not contain '..'")
	}
	for _, r := range value {
		if !isIDRune(r) {
			return invalid(field, "contains invalid character %q", r)
		}
	}
	return nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	}
	return false
}

// PaneID validates a pane id.
func PaneID(paneID int) error {
	if paneID < 0 {
		return invalid("paneId", "must be >= 0")
	}
	return nil
}

// HistoryCount validates a page size.
func HistoryCount(count int) error {
	if count < 1 || count > MaxHistoryCount {
		return invalid("count", "must be between 1 and %d", MaxHistoryCount)
	}
	return nil
}

// Timestamp validates a cursor or range bound.
func Timestamp(field string, ts int64) error {
	if ts < 0 {
		return invalid(field, "must be >= 0")
	}
	return nil
}

// TimeRange validates an inclusive [start, end] range.
func TimeRange(start, end int64) error {
	if err := Timestamp("start_time", start); err != nil {
		return err
	}
	if err := Timestamp("end_time", end); err != nil {
		return err
	}
	if start > end {
		return invalid("start_time", "must not be after end_time")
	}
	return nil
}

// SeriesRef validates a (chart, pane, series) reference.
func SeriesRef(chartID string, paneID int, seriesID string) error {
	if err := ID("chartId", chartID); err != nil {
		return err
	}
	if err := PaneID(paneID); err != nil {
		return err
	}
	return ID("seriesId", seriesID)
}
