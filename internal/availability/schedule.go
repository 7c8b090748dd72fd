package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the wire and storage format for calendar dates.
	DateLayout = "2006-01-02"

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidClock         = errors.New("clock value must be HH:MM between 00:00 and 24:00")
	ErrInvalidRange         = errors.New("time range start must be before end")
	ErrRangesNotSorted      = errors.New("time ranges must be sorted ascending by start")
	ErrRangesOverlap        = errors.New("time ranges must not overlap")
	ErrDisabledDayHasRanges = errors.New("disabled day must have no time ranges")
)

// TimeRange is a wall-clock interval within a single day, held as minutes
// since midnight. It carries no date or timezone.
type TimeRange struct {
	Start int
	End   int
}

func (r TimeRange) Validate() error {
	if r.Start < 0 || r.End > minutesPerDay {
		return ErrInvalidClock
	}
	if r.Start >= r.End {
		return ErrInvalidRange
	}
	return nil
}

type timeRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeJSON{
		Start: FormatClock(r.Start),
		End:   FormatClock(r.End),
	})
}

func (r *TimeRange) UnmarshalJSON(data []byte) error {
	var raw timeRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	start, err := ParseClock(raw.Start)
	if err != nil {
		return fmt.Errorf("parse range start: %w", err)
	}
	end, err := ParseClock(raw.End)
	if err != nil {
		return fmt.Errorf("parse range end: %w", err)
	}

	r.Start = start
	r.End = end
	return nil
}

// ParseClock converts an "HH:MM" string to minutes since midnight. "24:00"
// is accepted so ranges can end at midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidClock
		}
	}

	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DaySchedule is the bookable portion of one day. A disabled day yields no
// slots regardless of ranges.
type DaySchedule struct {
	Enabled bool        `json:"enabled"`
	Ranges  []TimeRange `json:"ranges"`
}

func (d DaySchedule) Validate() error {
	if !d.Enabled && len(d.Ranges) > 0 {
		return ErrDisabledDayHasRanges
	}
	return ValidateRanges(d.Ranges)
}

// ValidateRanges checks each range individually and requires the sequence to
// be sorted ascending by start with no overlaps.
func ValidateRanges(ranges []TimeRange) error {
	for i, r := range ranges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("range %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		prev := ranges[i-1]
		if r.Start < prev.Start {
			return ErrRangesNotSorted
		}
		if r.Start < prev.End {
			return ErrRangesOverlap
		}
	}
	return nil
}

// WeeklySchedule maps time.Weekday (Sunday = 0) to that day's schedule. The
// fixed array makes the seven-entry invariant structural.
type WeeklySchedule [7]DaySchedule

func (w WeeklySchedule) Validate() error {
	for wd, day := range w {
		if err := day.Validate(); err != nil {
			return fmt.Errorf("%s: %w", time.Weekday(wd), err)
		}
	}
	return nil
}

// DateOverride replaces the weekly entry for one calendar date. When Blocked
// the date yields zero availability; otherwise Ranges are authoritative even
// when empty.
type DateOverride struct {
	Date    time.Time   `json:"date"`
	Blocked bool        `json:"blocked"`
	Ranges  []TimeRange `json:"ranges"`
}

func (o DateOverride) Validate() error {
	if o.Blocked && len(o.Ranges) > 0 {
		return ErrDisabledDayHasRanges
	}
	return ValidateRanges(o.Ranges)
}
