package availability

import (
	"encoding/json"
	"sort"
	"time"
)

// SlotStepMinutes is the offer granularity for slot start times. It is
// independent of event duration so longer events can still start on the
// quarter hour.
const SlotStepMinutes = 15

// Rules is the per-event-type booking policy supplied by the event-type
// collaborator.
type Rules struct {
	DurationMinutes      int
	BufferBeforeMinutes  int
	BufferAfterMinutes   int
	MinimumNoticeMinutes int
	SchedulingWindowDays int
}

// Interval is a confirmed booking's occupied window in minutes of day.
type Interval struct {
	Start int
	End   int
}

// TimeSlot is one offerable candidate. Unavailable slots are returned with
// Available=false rather than omitted so callers can render them greyed out.
type TimeSlot struct {
	Start     int
	End       int
	Available bool
}

func (s TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start     string `json:"start_time"`
		End       string `json:"end_time"`
		Available bool   `json:"available"`
	}{
		Start:     FormatClock(s.Start),
		End:       FormatClock(s.End),
		Available: s.Available,
	})
}

// EffectiveRules merges event-type policy with host-profile defaults: the
// conflict buffer-after is the larger of the two, and zero-valued notice or
// window fall back to the profile's values.
func EffectiveRules(p *Profile, r Rules) Rules {
	if p == nil {
		return r
	}
	if p.BufferBetweenMinutes > r.BufferAfterMinutes {
		r.BufferAfterMinutes = p.BufferBetweenMinutes
	}
	if r.MinimumNoticeMinutes == 0 {
		r.MinimumNoticeMinutes = p.MinimumNoticeMinutes
	}
	if r.SchedulingWindowDays == 0 {
		r.SchedulingWindowDays = p.SchedulingWindowDays
	}
	return r
}

// ResolveSlots computes the ordered candidate slots for one date. All
// arithmetic is integer minutes of day in the host's own timezone; now must
// already be expressed in that timezone. The result is recomputed per call
// and must not be cached across requests.
func ResolveSlots(p *Profile, rules Rules, date time.Time, booked []Interval, now time.Time) []TimeSlot {
	day := p.ResolveDaySchedule(date)
	if !day.Enabled {
		return nil
	}

	rules = EffectiveRules(p, rules)
	if rules.DurationMinutes <= 0 {
		return nil
	}

	var slots []TimeSlot
	for _, r := range day.Ranges {
		for c := r.Start; c+rules.DurationMinutes <= r.End; c += SlotStepMinutes {
			slots = append(slots, TimeSlot{Start: c, End: c + rules.DurationMinutes})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})

	// Overlapping configured ranges are rejected on write, but dedupe here
	// as a backstop so stored bad data cannot surface duplicate slots.
	slots = dedupeSlots(slots)

	withinWindow := DaysUntil(now, date) <= rules.SchedulingWindowDays

	for i := range slots {
		s := &slots[i]
		s.Available = withinWindow &&
			MinutesUntil(now, date, s.Start) >= rules.MinimumNoticeMinutes &&
			!conflicts(*s, booked, rules)
	}

	return slots
}

func dedupeSlots(slots []TimeSlot) []TimeSlot {
	out := slots[:0]
	for i, s := range slots {
		if i > 0 && s.Start == out[len(out)-1].Start && s.End == out[len(out)-1].End {
			continue
		}
		out = append(out, s)
	}
	return out
}

// conflicts reports whether the candidate overlaps any confirmed booking
// once buffers are applied around the booking.
func conflicts(s TimeSlot, booked []Interval, rules Rules) bool {
	for _, b := range booked {
		bufferedStart := b.Start - rules.BufferBeforeMinutes
		bufferedEnd := b.End + rules.BufferAfterMinutes
		if s.Start < bufferedEnd && s.End > bufferedStart {
			return true
		}
	}
	return false
}

// MinutesUntil is the lead time from now to a wall-clock minute on date.
// Negative for slots already in the past.
func MinutesUntil(now, date time.Time, minuteOfDay int) int {
	slotStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location()).
		Add(time.Duration(minuteOfDay) * time.Minute)
	return int(slotStart.Sub(now) / time.Minute)
}

// DaysUntil counts whole calendar days from now's date to date. Zero for
// today, negative for past dates.
func DaysUntil(now, date time.Time) int {
	nowMid := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dateMid := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	return int(dateMid.Sub(nowMid).Round(24*time.Hour) / (24 * time.Hour))
}
