package domain

import "time"

// Window is an inclusive range of calendar dates in a fixed location.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow truncates start and end to their calendar dates in loc and
// rejects ranges whose end precedes their start.
func NewWindow(start, end time.Time, loc *time.Location) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, ErrInvalidWindow
	}
	w := Window{
		Start: dateOf(start, loc),
		End:   dateOf(end, loc),
	}
	if w.End.Before(w.Start) {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

// DayWindow covers the single calendar date of t.
func DayWindow(t time.Time, loc *time.Location) Window {
	d := dateOf(t, loc)
	return Window{Start: d, End: d}
}

// MonthWindow covers every date of the given month.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	loc = location(loc)
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}
}

// YearWindow covers January 1st through December 31st of year.
func YearWindow(year int, loc *time.Location) Window {
	loc = location(loc)
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, loc),
	}
}

// Bounds returns the half-open instant range [start, end+1 day) in UTC,
// which selects exactly the timestamps whose calendar date lies in the window.
func (w Window) Bounds() (time.Time, time.Time) {
	loc := w.Start.Location()
	end := time.Date(w.End.Year(), w.End.Month(), w.End.Day()+1, 0, 0, 0, 0, loc)
	return w.Start.UTC(), end.UTC()
}

// Contains reports whether t falls on a date inside the window.
func (w Window) Contains(t time.Time) bool {
	start, end := w.Bounds()
	t = t.UTC()
	return !t.Before(start) && t.Before(end)
}

// Days lists each calendar date of the window in chronological order.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, d.Location()) {
		days = append(days, d)
	}
	return days
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(location(loc))
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
