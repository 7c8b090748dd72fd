package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulsedesk/scheduling/internal/availability"
	"github.com/pulsedesk/scheduling/internal/booking"
	redisclient "github.com/pulsedesk/scheduling/internal/redis"
)

// BookingService is the surface the handlers need from the booking core.
type BookingService interface {
	GetSlots(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time) (*booking.SlotPage, error)
	Reserve(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time, startMinute int, attendee booking.Attendee) (*booking.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	GetProfile(ctx context.Context, hostID uuid.UUID) (*availability.Profile, error)
	UpdateProfile(ctx context.Context, p *availability.Profile) (*availability.Profile, error)
	UpsertOverride(ctx context.Context, hostID uuid.UUID, o availability.DateOverride) error
	RemoveOverride(ctx context.Context, hostID uuid.UUID, date time.Time) error
}

func getSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, ok := parseUUIDParam(w, r, "hostID")
		if !ok {
			return
		}
		eventTypeID, ok := parseUUIDParam(w, r, "eventTypeID")
		if !ok {
			return
		}

		date, err := time.Parse(availability.DateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		page, err := svc.GetSlots(r.Context(), hostID, eventTypeID, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		slots := page.Slots
		if slots == nil {
			slots = []availability.TimeSlot{}
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			Date:     page.Date.Format(availability.DateLayout),
			Timezone: page.Timezone,
			EventType: EventTypeSummary{
				ID:              page.EventType.ID,
				Name:            page.EventType.Name,
				DurationMinutes: page.EventType.DurationMinutes,
			},
			Slots: slots,
		})
	}
}

func reserveHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, ok := parseUUIDParam(w, r, "hostID")
		if !ok {
			return
		}
		eventTypeID, ok := parseUUIDParam(w, r, "eventTypeID")
		if !ok {
			return
		}

		var req ReserveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := time.Parse(availability.DateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		startMinute, err := availability.ParseClock(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}

		if req.AttendeeName == "" {
			writeError(w, http.StatusBadRequest, "missing_attendee_name", "attendee_name is required")
			return
		}

		b, err := svc.Reserve(r.Context(), hostID, eventTypeID, date, startMinute, booking.Attendee{
			Name:  req.AttendeeName,
			Email: req.AttendeeEmail,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newBookingResponse(b))
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newBookingResponse(b))
	}
}

func getProfileHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, ok := parseUUIDParam(w, r, "hostID")
		if !ok {
			return
		}

		p, err := svc.GetProfile(r.Context(), hostID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newProfileResponse(p))
	}
}

func updateProfileHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, ok := parseUUIDParam(w, r, "hostID")
		if !ok {
			return
		}

		var req ProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := svc.UpdateProfile(r.Context(), &availability.Profile{
			HostID:               hostID,
			Timezone:             req.Timezone,
			Weekly:               req.Weekly,
			BufferBetweenMinutes: req.BufferBetweenMinutes,
			MinimumNoticeMinutes: req.MinimumNoticeMinutes,
			SchedulingWindowDays: req.SchedulingWindowDays,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newProfileResponse(p))
	}
}

func upsertOverrideHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, ok := parseUUIDParam(w, r, "hostID")
		if !ok {
			return
		}

		date, err := time.Parse(availability.DateLayout, chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		var req OverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		err = svc.UpsertOverride(r.Context(), hostID, availability.DateOverride{
			Date:    date,
			Blocked: req.Blocked,
			Ranges:  req.Ranges,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, OverrideResponse{
			Date:    date.Format(availability.DateLayout),
			Blocked: req.Blocked,
			Ranges:  req.Ranges,
		})
	}
}

func removeOverrideHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, ok := parseUUIDParam(w, r, "hostID")
		if !ok {
			return
		}

		date, err := time.Parse(availability.DateLayout, chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		if err := svc.RemoveOverride(r.Context(), hostID, date); err != nil {
			handleBookingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrHostNotFound):
		writeError(w, http.StatusNotFound, "host_not_found", err.Error())
	case errors.Is(err, booking.ErrEventTypeNotFound):
		writeError(w, http.StatusNotFound, "event_type_not_found", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrDateOutOfWindow):
		writeError(w, http.StatusBadRequest, "date_out_of_window", err.Error())
	case errors.Is(err, booking.ErrInvalidSlotStart):
		writeError(w, http.StatusBadRequest, "invalid_slot_start", err.Error())
	case isScheduleValidationError(err):
		writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
	case errors.Is(err, booking.ErrSlotNotBookable):
		writeError(w, http.StatusConflict, "slot_not_bookable", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func isScheduleValidationError(err error) bool {
	return errors.Is(err, availability.ErrInvalidClock) ||
		errors.Is(err, availability.ErrInvalidRange) ||
		errors.Is(err, availability.ErrRangesNotSorted) ||
		errors.Is(err, availability.ErrRangesOverlap) ||
		errors.Is(err, availability.ErrDisabledDayHasRanges)
}
