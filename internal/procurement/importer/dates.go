package importer

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial day 25569 is 1970-01-01.
const (
	unixEpochSerial = 25569
	secondsPerDay   = 86400
	// 9999-12-31
	maxSerial = 2958465
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/06",
	"2-Jan-2006",
	"2-Jan-06",
	"02 Jan 2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeDate converts a cell value into an ISO calendar date (YYYY-MM-DD).
// Accepts spreadsheet serial numbers, time.Time and common date strings.
// The second result is false when the value is empty or not a date.
func NormalizeDate(v any) (string, bool) {
	switch d := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if d.IsZero() {
			return "", false
		}
		return d.Format(time.DateOnly), true
	case *time.Time:
		if d == nil {
			return "", false
		}
		return NormalizeDate(*d)
	case int:
		return serialToDate(float64(d))
	case int64:
		return serialToDate(float64(d))
	case float64:
		return serialToDate(d)
	case string:
		return parseDateString(d)
	default:
		return "", false
	}
}

func parseDateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToDate(f)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

func serialToDate(serial float64) (string, bool) {
	if math.IsNaN(serial) || serial < 1 || serial > maxSerial {
		return "", false
	}
	secs := math.Round((serial - unixEpochSerial) * secondsPerDay)
	return time.Unix(int64(secs), 0).UTC().Format(time.DateOnly), true
}

// DateToSerial is the inverse of serial normalization for whole days.
func DateToSerial(iso string) (float64, bool) {
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return 0, false
	}
	return float64(t.Unix()/secondsPerDay + unixEpochSerial), true
}
