package api

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pulsedesk/scheduling/internal/availability"
	"github.com/pulsedesk/scheduling/internal/booking"
)

type EventTypeSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
}

type SlotsResponse struct {
	Date      string                  `json:"date"`
	Timezone  string                  `json:"timezone"`
	EventType EventTypeSummary        `json:"event_type"`
	Slots     []availability.TimeSlot `json:"slots"`
}

type ReserveRequest struct {
	Date          string `json:"date"`       // YYYY-MM-DD, host-local
	StartTime     string `json:"start_time"` // HH:MM, host-local
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
}

type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	HostID        uuid.UUID `json:"host_id"`
	EventTypeID   uuid.UUID `json:"event_type_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Status        string    `json:"status"`
	AttendeeName  string    `json:"attendee_name"`
	AttendeeEmail string    `json:"attendee_email"`
	CreatedAt     time.Time `json:"created_at"`
}

func newBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		HostID:        b.HostID,
		EventTypeID:   b.EventTypeID,
		Date:          b.Date.Format(availability.DateLayout),
		StartTime:     availability.FormatClock(b.StartMinute),
		EndTime:       availability.FormatClock(b.EndMinute),
		Status:        string(b.Status),
		AttendeeName:  b.AttendeeName,
		AttendeeEmail: b.AttendeeEmail,
		CreatedAt:     b.CreatedAt,
	}
}

type ProfileRequest struct {
	Timezone             string                      `json:"timezone"`
	Weekly               availability.WeeklySchedule `json:"weekly"`
	BufferBetweenMinutes int                         `json:"buffer_between_minutes"`
	MinimumNoticeMinutes int                         `json:"minimum_notice_minutes"`
	SchedulingWindowDays int                         `json:"scheduling_window_days"`
}

type OverrideResponse struct {
	Date    string                   `json:"date"`
	Blocked bool                     `json:"blocked"`
	Ranges  []availability.TimeRange `json:"ranges"`
}

type ProfileResponse struct {
	HostID               uuid.UUID                   `json:"host_id"`
	Timezone             string                      `json:"timezone"`
	Weekly               availability.WeeklySchedule `json:"weekly"`
	Overrides            []OverrideResponse          `json:"overrides"`
	BufferBetweenMinutes int                         `json:"buffer_between_minutes"`
	MinimumNoticeMinutes int                         `json:"minimum_notice_minutes"`
	SchedulingWindowDays int                         `json:"scheduling_window_days"`
}

func newProfileResponse(p *availability.Profile) ProfileResponse {
	resp := ProfileResponse{
		HostID:               p.HostID,
		Timezone:             p.Timezone,
		Weekly:               p.Weekly,
		Overrides:            make([]OverrideResponse, 0, len(p.Overrides)),
		BufferBetweenMinutes: p.BufferBetweenMinutes,
		MinimumNoticeMinutes: p.MinimumNoticeMinutes,
		SchedulingWindowDays: p.SchedulingWindowDays,
	}
	for key, o := range p.Overrides {
		resp.Overrides = append(resp.Overrides, OverrideResponse{
			Date:    key,
			Blocked: o.Blocked,
			Ranges:  o.Ranges,
		})
	}
	sort.Slice(resp.Overrides, func(i, j int) bool {
		return resp.Overrides[i].Date < resp.Overrides[j].Date
	})
	return resp
}

type OverrideRequest struct {
	Blocked bool                     `json:"blocked"`
	Ranges  []availability.TimeRange `json:"ranges"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
