package reports

import (
	"fmt"
	"time"
)

type FilterKind int

const (
	FilterYear FilterKind = iota + 1
	FilterYearMonth
	FilterRange
)

func (k FilterKind) String() string {
	switch k {
	case FilterYear:
		return "year"
	case FilterYearMonth:
		return "year_month"
	case FilterRange:
		return "range"
	}
	return "unknown"
}

// DateFilterInput is the raw report filter. DateStart and DateEnd are calendar
// dates; only their year, month and day are used.
type DateFilterInput struct {
	Year      *int       `json:"year,omitempty"`
	Month     *int       `json:"month,omitempty"`
	DateStart *time.Time `json:"date_start,omitempty"`
	DateEnd   *time.Time `json:"date_end,omitempty"`
}

// DateWindow is a resolved filter: the half-open instant range [From, To).
type DateWindow struct {
	Kind     FilterKind
	From     time.Time
	To       time.Time
	Location *time.Location
}

// Contains reports whether t falls in [From, To).
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// CacheKey is stable across equal filters.
func (w DateWindow) CacheKey() string {
	return fmt.Sprintf("%s:%d:%d", w.Kind, w.From.Unix(), w.To.Unix())
}

// ResolveDateFilter accepts exactly one of Year, Year+Month or DateStart+DateEnd.
// Bounds are local midnights in loc; the range end covers its whole day.
func ResolveDateFilter(in DateFilterInput, loc *time.Location) (DateWindow, error) {
	if loc == nil {
		loc = time.UTC
	}
	hasYear := in.Year != nil
	hasMonth := in.Month != nil
	hasStart := in.DateStart != nil
	hasEnd := in.DateEnd != nil
	hasRange := hasStart || hasEnd

	switch {
	case hasYear && !hasMonth && !hasRange:
		if err := checkYear(*in.Year); err != nil {
			return DateWindow{}, err
		}
		from := time.Date(*in.Year, time.January, 1, 0, 0, 0, 0, loc)
		return DateWindow{Kind: FilterYear, From: from.UTC(), To: from.AddDate(1, 0, 0).UTC(), Location: loc}, nil

	case hasYear && hasMonth && !hasRange:
		if err := checkYear(*in.Year); err != nil {
			return DateWindow{}, err
		}
		if *in.Month < 1 || *in.Month > 12 {
			return DateWindow{}, fmt.Errorf("%w: month %d out of range", ErrAmbiguousOrMissingDateFilter, *in.Month)
		}
		from := time.Date(*in.Year, time.Month(*in.Month), 1, 0, 0, 0, 0, loc)
		return DateWindow{Kind: FilterYearMonth, From: from.UTC(), To: from.AddDate(0, 1, 0).UTC(), Location: loc}, nil

	case !hasYear && !hasMonth && hasStart && hasEnd:
		from := civilMidnight(*in.DateStart, loc)
		end := civilMidnight(*in.DateEnd, loc)
		if from.After(end) {
			return DateWindow{}, fmt.Errorf("%w: date_start is after date_end", ErrAmbiguousOrMissingDateFilter)
		}
		return DateWindow{Kind: FilterRange, From: from.UTC(), To: end.AddDate(0, 0, 1).UTC(), Location: loc}, nil
	}

	switch {
	case !hasYear && !hasMonth && !hasRange:
		return DateWindow{}, fmt.Errorf("%w: no date filter", ErrAmbiguousOrMissingDateFilter)
	case hasMonth && !hasYear && !hasRange:
		return DateWindow{}, fmt.Errorf("%w: month without year", ErrAmbiguousOrMissingDateFilter)
	case hasRange && (hasYear || hasMonth):
		return DateWindow{}, fmt.Errorf("%w: year or month combined with a date range", ErrAmbiguousOrMissingDateFilter)
	default:
		return DateWindow{}, fmt.Errorf("%w: date range needs both date_start and date_end", ErrAmbiguousOrMissingDateFilter)
	}
}

func checkYear(y int) error {
	if y < 1 || y > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrAmbiguousOrMissingDateFilter, y)
	}
	return nil
}

func civilMidnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
