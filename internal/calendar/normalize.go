package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is the spreadsheet serial-date epoch. Day 1 on that scale is
// 1899-12-31, which matches what the remote sheet exports for date cells.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Normalize converts a raw event date from the remote sheet into the
// canonical zero-padded "DD/MM" key used to place events on the grid.
//
// Accepted shapes, checked in order:
//
//   - pure integer        -> spreadsheet serial day count
//   - "YYYY-MM-DD"        -> ISO date, year discarded
//   - "DD/MM" or "DD/MM/YYYY" (also with "-") -> day/month zero-padded
//
// Anything else is returned verbatim. The upstream sheet is hand-edited and
// uncontrolled, so Normalize never fails: a malformed value simply produces a
// key that matches no day cell.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if n, err := strconv.Atoi(s); err == nil {
		d := serialEpoch.AddDate(0, 0, n)
		return fmt.Sprintf("%02d/%02d", d.Day(), int(d.Month()))
	}

	if !strings.ContainsAny(s, "-/") {
		return s
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) < 2 {
		return s
	}

	if len(parts[0]) == 4 {
		// ISO year first: day and month trade places.
		if len(parts) < 3 {
			return s
		}
		return pad2(parts[2]) + "/" + pad2(parts[1])
	}

	return pad2(parts[0]) + "/" + pad2(parts[1])
}

// SplitKey parses a canonical "DD/MM" key into its numeric day and month.
// ok is false for anything that is not two /-separated integers.
func SplitKey(key string) (day, month int, ok bool) {
	parts := strings.Split(strings.TrimSpace(key), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	d, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return d, m, true
}

// ValidKey reports whether a canonical key names a real day of the given
// year. Keys like "40/13" parse but never materialize as a calendar date.
func ValidKey(key string, year int) bool {
	d, m, ok := SplitKey(key)
	if !ok || m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && int(t.Month()) == m
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
