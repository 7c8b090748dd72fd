package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/pulsedesk/scheduling/internal/availability"
)

type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

type Host struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventType is a bookable meeting template. Its policy fields feed the slot
// resolver; zero notice/window fall back to the host profile's defaults.
type EventType struct {
	ID                   uuid.UUID
	HostID               uuid.UUID
	Name                 string
	DurationMinutes      int
	BufferBeforeMinutes  int
	BufferAfterMinutes   int
	MinimumNoticeMinutes int
	SchedulingWindowDays int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (e *EventType) Rules() availability.Rules {
	return availability.Rules{
		DurationMinutes:      e.DurationMinutes,
		BufferBeforeMinutes:  e.BufferBeforeMinutes,
		BufferAfterMinutes:   e.BufferAfterMinutes,
		MinimumNoticeMinutes: e.MinimumNoticeMinutes,
		SchedulingWindowDays: e.SchedulingWindowDays,
	}
}

// Booking is one ledger entry. Start and end are minutes of day in the
// host's timezone; only confirmed rows participate in conflict detection.
type Booking struct {
	ID            uuid.UUID
	HostID        uuid.UUID
	EventTypeID   uuid.UUID
	Date          time.Time
	StartMinute   int
	EndMinute     int
	Status        Status
	AttendeeName  string
	AttendeeEmail string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b *Booking) Interval() availability.Interval {
	return availability.Interval{Start: b.StartMinute, End: b.EndMinute}
}

// Attendee is the booker's contact info captured at reservation time.
type Attendee struct {
	Name  string
	Email string
}

// SlotPage is the response of a slot listing: one host-local date with the
// ordered candidate slots. Never cached across requests.
type SlotPage struct {
	Date      time.Time
	Timezone  string
	EventType *EventType
	Slots     []availability.TimeSlot
}
