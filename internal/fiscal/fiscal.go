// Package fiscal converts fiscal-year ids to calendar dates.
//
// Fiscal-year ids are small integers counted from a fixed epoch. Two
// offsets coexist: donation windows use Epoch (1995) while labels and the
// current-year default count from Epoch+1. Both are kept as they are so
// stored ids keep their meaning.
package fiscal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Epoch is added to a fiscal-year id to obtain the calendar year used by
// donation windows.
const Epoch = 1995

// Year returns the calendar year a fiscal-year id maps to for date windows.
func Year(fyID int) int {
	return fyID + Epoch
}

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DonationWindow returns the range in which a donation must fall for a
// family to count as contributing during the `years` fiscal years ending
// with fyID. Both bounds are the first day of fyMonth.
func DonationWindow(fyID, years int, fyMonth time.Month) Window {
	return Window{
		Start: time.Date(Year(fyID)-years, fyMonth, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(Year(fyID)+1, fyMonth, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Label formats a fiscal-year id for display: "2025" when the fiscal year
// starts in January, "2024/25" otherwise.
func Label(fyID int, fyMonth time.Month) string {
	if fyMonth == time.January {
		return strconv.Itoa(Epoch + 1 + fyID)
	}
	next := strconv.Itoa(Epoch + 1 + fyID)
	return fmt.Sprintf("%d/%s", Epoch+fyID, next[len(next)-2:])
}

// Current returns the fiscal-year id that contains now.
func Current(now time.Time, fyMonth time.Month) int {
	fyID := now.Year() - (Epoch + 1)
	if now.Month() >= fyMonth && fyMonth > time.January {
		fyID++
	}
	return fyID
}

// Parse reads a fiscal-year id from form input. Empty, non-numeric and
// non-positive input falls back to the current fiscal year.
func Parse(raw string, now time.Time, fyMonth time.Month) int {
	fyID, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || fyID <= 0 {
		return Current(now, fyMonth)
	}
	return fyID
}

// Options lists the fiscal-year ids offered in report forms, newest first,
// from the current year back `count` years.
func Options(now time.Time, fyMonth time.Month, count int) []Option {
	cur := Current(now, fyMonth)
	opts := make([]Option, 0, count)
	for id := cur; id > cur-count && id > 0; id-- {
		opts = append(opts, Option{ID: id, Label: Label(id, fyMonth)})
	}
	return opts
}

type Option struct {
	ID    int
	Label string
}
