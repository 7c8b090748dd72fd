package availability

import (
	"time"

	"github.com/google/uuid"
)

// Default schedule offered while a host has not configured availability yet.
// Lets a new host receive bookings before touching settings.
const (
	defaultDayStart = 9 * 60
	defaultDayEnd   = 17 * 60

	DefaultTimezone             = "UTC"
	DefaultBufferBetweenMinutes = 0
	DefaultMinimumNoticeMinutes = 60
	DefaultSchedulingWindowDays = 30
)

// Profile is a host's availability configuration: the recurring weekly
// schedule, per-date overrides, and host-level policy defaults.
type Profile struct {
	HostID               uuid.UUID
	Timezone             string
	Weekly               WeeklySchedule
	Overrides            map[string]DateOverride // keyed by DateLayout
	BufferBetweenMinutes int
	MinimumNoticeMinutes int
	SchedulingWindowDays int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p *Profile) Validate() error {
	if err := p.Weekly.Validate(); err != nil {
		return err
	}
	for _, o := range p.Overrides {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDaySchedule is the system fallback: enabled, 09:00-17:00.
func DefaultDaySchedule() DaySchedule {
	return DaySchedule{
		Enabled: true,
		Ranges:  []TimeRange{{Start: defaultDayStart, End: defaultDayEnd}},
	}
}

// DefaultProfile is used when a host has no stored profile.
func DefaultProfile(hostID uuid.UUID) *Profile {
	var weekly WeeklySchedule
	for wd := range weekly {
		weekly[wd] = DefaultDaySchedule()
	}
	return &Profile{
		HostID:               hostID,
		Timezone:             DefaultTimezone,
		Weekly:               weekly,
		BufferBetweenMinutes: DefaultBufferBetweenMinutes,
		MinimumNoticeMinutes: DefaultMinimumNoticeMinutes,
		SchedulingWindowDays: DefaultSchedulingWindowDays,
	}
}

// ResolveDaySchedule returns the effective schedule for a date. A date
// override replaces the weekly entry wholesale; a nil profile falls back to
// the system default.
func (p *Profile) ResolveDaySchedule(date time.Time) DaySchedule {
	if p == nil {
		return DefaultDaySchedule()
	}

	if o, ok := p.Overrides[date.Format(DateLayout)]; ok {
		if o.Blocked {
			return DaySchedule{Enabled: false}
		}
		return DaySchedule{Enabled: true, Ranges: o.Ranges}
	}

	return p.Weekly[date.Weekday()]
}
