package availability

import (
	"reflect"
	"testing"
	"time"
)

// 2026-09-07 is a Monday.
var (
	testDate = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	// Well before the date so notice checks pass unless a test says otherwise.
	testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
)

func profileWithMonday(ranges ...TimeRange) *Profile {
	var weekly WeeklySchedule
	weekly[time.Monday] = DaySchedule{Enabled: true, Ranges: ranges}
	return &Profile{
		Weekly:               weekly,
		SchedulingWindowDays: 30,
	}
}

func slotStarts(slots []TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, FormatClock(s.Start))
	}
	return out
}

func findSlot(t *testing.T, slots []TimeSlot, start int) TimeSlot {
	t.Helper()
	for _, s := range slots {
		if s.Start == start {
			return s
		}
	}
	t.Fatalf("no slot starting at %s", FormatClock(start))
	return TimeSlot{}
}

func TestResolveSlotsDefaultFallback(t *testing.T) {
	rules := Rules{DurationMinutes: 60, MinimumNoticeMinutes: 60, SchedulingWindowDays: 30}

	slots := ResolveSlots(nil, rules, testDate, nil, testNow)
	if len(slots) == 0 {
		t.Fatal("default profile should produce slots")
	}

	for _, s := range slots {
		if s.Start < 9*60 || s.End > 17*60 {
			t.Errorf("slot %s-%s outside default 09:00-17:00 window",
				FormatClock(s.Start), FormatClock(s.End))
		}
		if !s.Available {
			t.Errorf("slot %s should be available with no bookings", FormatClock(s.Start))
		}
	}

	// 15-minute offer granularity: first slots are 09:00, 09:15, 09:30.
	if got := slotStarts(slots)[:3]; !reflect.DeepEqual(got, []string{"09:00", "09:15", "09:30"}) {
		t.Errorf("unexpected leading starts: %v", got)
	}

	// Last 60-minute slot that still fits ends exactly at 17:00.
	last := slots[len(slots)-1]
	if last.Start != 16*60 || last.End != 17*60 {
		t.Errorf("last slot should be 16:00-17:00, got %s-%s",
			FormatClock(last.Start), FormatClock(last.End))
	}
}

func TestResolveSlotsDisabledDay(t *testing.T) {
	var weekly WeeklySchedule // all days disabled
	p := &Profile{Weekly: weekly, SchedulingWindowDays: 30}

	slots := ResolveSlots(p, Rules{DurationMinutes: 30, SchedulingWindowDays: 30}, testDate, nil, testNow)
	if len(slots) != 0 {
		t.Fatalf("disabled day should yield no slots, got %d", len(slots))
	}
}

func TestResolveSlotsBlockedOverride(t *testing.T) {
	p := profileWithMonday(TimeRange{Start: 540, End: 1020})
	p.Overrides = map[string]DateOverride{
		testDate.Format(DateLayout): {Date: testDate, Blocked: true},
	}

	slots := ResolveSlots(p, Rules{DurationMinutes: 30, SchedulingWindowDays: 30}, testDate, nil, testNow)
	if len(slots) != 0 {
		t.Fatalf("blocked override should yield no slots, got %d", len(slots))
	}
}

func TestResolveSlotsDurationTruncation(t *testing.T) {
	// 09:00-10:00 with 45-minute duration: starts 09:00 and 09:15 fit, 09:30 does not.
	p := profileWithMonday(TimeRange{Start: 540, End: 600})

	slots := ResolveSlots(p, Rules{DurationMinutes: 45, SchedulingWindowDays: 30}, testDate, nil, testNow)
	if got := slotStarts(slots); !reflect.DeepEqual(got, []string{"09:00", "09:15"}) {
		t.Fatalf("unexpected starts: %v", got)
	}
}

func TestResolveSlotsConflictBuffering(t *testing.T) {
	p := profileWithMonday(TimeRange{Start: 540, End: 1020})
	rules := Rules{
		DurationMinutes:      30,
		BufferBeforeMinutes:  10,
		BufferAfterMinutes:   10,
		SchedulingWindowDays: 30,
	}
	// Confirmed booking 10:00-10:30; buffered window 09:50-10:40.
	booked := []Interval{{Start: 600, End: 630}}

	slots := ResolveSlots(p, rules, testDate, booked, testNow)

	if s := findSlot(t, slots, 585); s.Available { // 09:45-10:15
		t.Error("09:45 slot overlaps the buffered booking and must be unavailable")
	}
	if s := findSlot(t, slots, 540); !s.Available { // 09:00-09:30
		t.Error("09:00 slot ends before the buffered window and must be available")
	}
	if s := findSlot(t, slots, 615); s.Available { // 10:15-10:45, overlaps booking itself
		t.Error("10:15 slot overlaps the booking and must be unavailable")
	}
	if s := findSlot(t, slots, 645); !s.Available { // 10:45-11:15, clear of 10:40
		t.Error("10:45 slot starts after the buffered window and must be available")
	}
}

func TestResolveSlotsProfileBufferBetweenMeetings(t *testing.T) {
	p := profileWithMonday(TimeRange{Start: 540, End: 1020})
	p.BufferBetweenMinutes = 30 // larger than the event type's buffer-after

	rules := Rules{DurationMinutes: 30, BufferAfterMinutes: 10, SchedulingWindowDays: 30}
	booked := []Interval{{Start: 600, End: 630}} // buffered end becomes 11:00

	slots := ResolveSlots(p, rules, testDate, booked, testNow)

	if s := findSlot(t, slots, 645); s.Available { // 10:45-11:15 crosses 11:00
		t.Error("profile buffer-between should widen the conflict window")
	}
	if s := findSlot(t, slots, 660); !s.Available { // 11:00-11:30
		t.Error("slot at the buffered boundary should be available")
	}
}

func TestResolveSlotsMinimumNotice(t *testing.T) {
	p := profileWithMonday(TimeRange{Start: 540, End: 1020})
	rules := Rules{DurationMinutes: 30, MinimumNoticeMinutes: 60, SchedulingWindowDays: 30}

	// now = 09:30 on the requested date itself.
	now := time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC)
	slots := ResolveSlots(p, rules, testDate, nil, now)

	if s := findSlot(t, slots, 600); s.Available { // 10:00, 30 minutes of notice
		t.Error("slot inside the notice window must be unavailable")
	}
	if s := findSlot(t, slots, 630); !s.Available { // 10:30, exactly 60 minutes
		t.Error("slot with exactly the minimum notice must be available")
	}
	if s := findSlot(t, slots, 540); s.Available { // 09:00, already past
		t.Error("past slot must be unavailable")
	}
}

func TestResolveSlotsSchedulingWindow(t *testing.T) {
	p := profileWithMonday(TimeRange{Start: 540, End: 1020})
	rules := Rules{DurationMinutes: 30, SchedulingWindowDays: 3}

	slots := ResolveSlots(p, rules, testDate, nil, testNow) // 6 days ahead
	if len(slots) == 0 {
		t.Fatal("out-of-window slots are still listed")
	}
	for _, s := range slots {
		if s.Available {
			t.Fatalf("slot %s beyond the scheduling window must be unavailable", FormatClock(s.Start))
		}
	}
}

func TestResolveSlotsNoDuplicates(t *testing.T) {
	// Overlapping ranges 09:00-12:00 and 11:00-13:00 stored before validation
	// existed. The resolver must not emit duplicate (start,end) pairs.
	p := profileWithMonday(
		TimeRange{Start: 540, End: 720},
		TimeRange{Start: 660, End: 780},
	)
	rules := Rules{DurationMinutes: 30, SchedulingWindowDays: 30}

	slots := ResolveSlots(p, rules, testDate, nil, testNow)

	seen := make(map[[2]int]bool)
	prev := -1
	for _, s := range slots {
		key := [2]int{s.Start, s.End}
		if seen[key] {
			t.Fatalf("duplicate slot %s-%s", FormatClock(s.Start), FormatClock(s.End))
		}
		seen[key] = true
		if s.Start < prev {
			t.Fatalf("slots not sorted at %s", FormatClock(s.Start))
		}
		prev = s.Start
	}

	// The merged coverage still offers every start from both ranges.
	if s := findSlot(t, slots, 690); s.End != 720 { // 11:30-12:00 from either range
		t.Errorf("unexpected slot end %s", FormatClock(s.End))
	}
}

func TestResolveSlotsDeterministic(t *testing.T) {
	p := profileWithMonday(TimeRange{Start: 540, End: 1020})
	rules := Rules{DurationMinutes: 30, BufferAfterMinutes: 5, SchedulingWindowDays: 30}
	booked := []Interval{{Start: 600, End: 630}, {Start: 840, End: 900}}

	a := ResolveSlots(p, rules, testDate, booked, testNow)
	b := ResolveSlots(p, rules, testDate, booked, testNow)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same inputs must produce identical output")
	}
}

func TestEffectiveRules(t *testing.T) {
	p := &Profile{
		BufferBetweenMinutes: 20,
		MinimumNoticeMinutes: 120,
		SchedulingWindowDays: 14,
	}

	got := EffectiveRules(p, Rules{DurationMinutes: 30, BufferAfterMinutes: 10})
	if got.BufferAfterMinutes != 20 {
		t.Errorf("buffer-after should take the profile max, got %d", got.BufferAfterMinutes)
	}
	if got.MinimumNoticeMinutes != 120 {
		t.Errorf("zero event notice should fall back to profile, got %d", got.MinimumNoticeMinutes)
	}
	if got.SchedulingWindowDays != 14 {
		t.Errorf("zero event window should fall back to profile, got %d", got.SchedulingWindowDays)
	}

	got = EffectiveRules(p, Rules{DurationMinutes: 30, BufferAfterMinutes: 45, MinimumNoticeMinutes: 15, SchedulingWindowDays: 7})
	if got.BufferAfterMinutes != 45 || got.MinimumNoticeMinutes != 15 || got.SchedulingWindowDays != 7 {
		t.Errorf("event type values should win when set: %+v", got)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC)
	if d := DaysUntil(now, now); d != 0 {
		t.Errorf("same day = %d, want 0", d)
	}
	if d := DaysUntil(now, now.AddDate(0, 0, 6)); d != 6 {
		t.Errorf("six days out = %d, want 6", d)
	}
	if d := DaysUntil(now, now.AddDate(0, 0, -1)); d != -1 {
		t.Errorf("yesterday = %d, want -1", d)
	}
}
