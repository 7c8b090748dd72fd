package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulsedesk/scheduling/internal/availability"
	"github.com/pulsedesk/scheduling/internal/booking"
)

// stubService implements BookingService with per-test function fields.
type stubService struct {
	getSlots       func(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time) (*booking.SlotPage, error)
	reserve        func(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time, startMinute int, attendee booking.Attendee) (*booking.Booking, error)
	getBooking     func(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	getProfile     func(ctx context.Context, hostID uuid.UUID) (*availability.Profile, error)
	updateProfile  func(ctx context.Context, p *availability.Profile) (*availability.Profile, error)
	upsertOverride func(ctx context.Context, hostID uuid.UUID, o availability.DateOverride) error
	removeOverride func(ctx context.Context, hostID uuid.UUID, date time.Time) error
}

func (s *stubService) GetSlots(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time) (*booking.SlotPage, error) {
	return s.getSlots(ctx, hostID, eventTypeID, date)
}

func (s *stubService) Reserve(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time, startMinute int, attendee booking.Attendee) (*booking.Booking, error) {
	return s.reserve(ctx, hostID, eventTypeID, date, startMinute, attendee)
}

func (s *stubService) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.getBooking(ctx, id)
}

func (s *stubService) GetProfile(ctx context.Context, hostID uuid.UUID) (*availability.Profile, error) {
	return s.getProfile(ctx, hostID)
}

func (s *stubService) UpdateProfile(ctx context.Context, p *availability.Profile) (*availability.Profile, error) {
	return s.updateProfile(ctx, p)
}

func (s *stubService) UpsertOverride(ctx context.Context, hostID uuid.UUID, o availability.DateOverride) error {
	return s.upsertOverride(ctx, hostID, o)
}

func (s *stubService) RemoveOverride(ctx context.Context, hostID uuid.UUID, date time.Time) error {
	return s.removeOverride(ctx, hostID, date)
}

func testRouter(svc BookingService) http.Handler {
	return NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"})
}

var (
	testHostID      = uuid.MustParse("7b0a4b5e-27c9-4f8a-9f55-4cbb4f7de101")
	testEventTypeID = uuid.MustParse("b43a2e0c-9641-4f12-8b3f-55d2e2a10f02")
)

func slotsURL(date string) string {
	return "/hosts/" + testHostID.String() + "/event-types/" + testEventTypeID.String() + "/slots?date=" + date
}

func reservationsURL() string {
	return "/hosts/" + testHostID.String() + "/event-types/" + testEventTypeID.String() + "/reservations"
}

func TestGetSlotsHandler(t *testing.T) {
	svc := &stubService{
		getSlots: func(_ context.Context, hostID, eventTypeID uuid.UUID, date time.Time) (*booking.SlotPage, error) {
			if hostID != testHostID || eventTypeID != testEventTypeID {
				t.Errorf("unexpected IDs: %s %s", hostID, eventTypeID)
			}
			return &booking.SlotPage{
				Date:     date,
				Timezone: "UTC",
				EventType: &booking.EventType{
					ID:              eventTypeID,
					Name:            "Intro Call",
					DurationMinutes: 30,
				},
				Slots: []availability.TimeSlot{
					{Start: 540, End: 570, Available: true},
					{Start: 555, End: 585, Available: false},
				},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, slotsURL("2026-09-07"), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Date     string `json:"date"`
		Timezone string `json:"timezone"`
		Slots    []struct {
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Available bool   `json:"available"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Date != "2026-09-07" || resp.Timezone != "UTC" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if len(resp.Slots) != 2 {
		t.Fatalf("%d slots, want 2", len(resp.Slots))
	}
	if resp.Slots[0].StartTime != "09:00" || resp.Slots[0].EndTime != "09:30" || !resp.Slots[0].Available {
		t.Errorf("slot[0] = %+v", resp.Slots[0])
	}
	if resp.Slots[1].Available {
		t.Errorf("slot[1] should be unavailable")
	}
}

func TestGetSlotsHandlerBadInput(t *testing.T) {
	svc := &stubService{}

	cases := []struct {
		name string
		url  string
	}{
		{name: "missing date", url: slotsURL("")},
		{name: "malformed date", url: slotsURL("07-09-2026")},
		{name: "bad host id", url: "/hosts/nope/event-types/" + testEventTypeID.String() + "/slots?date=2026-09-07"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGetSlotsHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "host missing", err: booking.ErrHostNotFound, wantStatus: 404, wantCode: "host_not_found"},
		{name: "event type missing", err: booking.ErrEventTypeNotFound, wantStatus: 404, wantCode: "event_type_not_found"},
		{name: "window", err: booking.ErrDateOutOfWindow, wantStatus: 400, wantCode: "date_out_of_window"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				getSlots: func(context.Context, uuid.UUID, uuid.UUID, time.Time) (*booking.SlotPage, error) {
					return nil, tc.err
				},
			}

			rec := httptest.NewRecorder()
			testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, slotsURL("2026-09-07"), nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tc.wantCode {
				t.Errorf("error code = %q, want %q", resp.Error, tc.wantCode)
			}
		})
	}
}

func TestReserveHandler(t *testing.T) {
	bookingID := uuid.New()
	svc := &stubService{
		reserve: func(_ context.Context, hostID, eventTypeID uuid.UUID, date time.Time, startMinute int, attendee booking.Attendee) (*booking.Booking, error) {
			if startMinute != 600 {
				t.Errorf("startMinute = %d, want 600", startMinute)
			}
			if attendee.Name != "Avery Chen" {
				t.Errorf("attendee = %+v", attendee)
			}
			return &booking.Booking{
				ID:           bookingID,
				HostID:       hostID,
				EventTypeID:  eventTypeID,
				Date:         date,
				StartMinute:  600,
				EndMinute:    630,
				Status:       booking.StatusConfirmed,
				AttendeeName: attendee.Name,
			}, nil
		},
	}

	body := `{"date":"2026-09-07","start_time":"10:00","attendee_name":"Avery Chen","attendee_email":"avery@example.com"}`
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, reservationsURL(), strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp BookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != bookingID || resp.StartTime != "10:00" || resp.EndTime != "10:30" || resp.Status != "confirmed" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestReserveHandlerConflict(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "slot taken", err: booking.ErrSlotTaken, wantCode: "slot_taken"},
		{name: "being booked", err: booking.ErrSlotBeingBooked, wantCode: "slot_being_booked"},
		{name: "not bookable", err: booking.ErrSlotNotBookable, wantCode: "slot_not_bookable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				reserve: func(context.Context, uuid.UUID, uuid.UUID, time.Time, int, booking.Attendee) (*booking.Booking, error) {
					return nil, tc.err
				},
			}

			body := `{"date":"2026-09-07","start_time":"10:00","attendee_name":"x"}`
			rec := httptest.NewRecorder()
			testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, reservationsURL(), strings.NewReader(body)))

			if rec.Code != http.StatusConflict {
				t.Fatalf("status = %d, want 409", rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tc.wantCode {
				t.Errorf("error code = %q, want %q", resp.Error, tc.wantCode)
			}
		})
	}
}

func TestReserveHandlerBadInput(t *testing.T) {
	svc := &stubService{}

	cases := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{{`},
		{name: "bad date", body: `{"date":"soon","start_time":"10:00","attendee_name":"x"}`},
		{name: "bad start", body: `{"date":"2026-09-07","start_time":"10am","attendee_name":"x"}`},
		{name: "missing name", body: `{"date":"2026-09-07","start_time":"10:00"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, reservationsURL(), strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestUpsertOverrideHandler(t *testing.T) {
	var got availability.DateOverride
	svc := &stubService{
		upsertOverride: func(_ context.Context, hostID uuid.UUID, o availability.DateOverride) error {
			got = o
			return nil
		},
	}

	body := `{"blocked":false,"ranges":[{"start":"10:00","end":"12:00"}]}`
	url := "/hosts/" + testHostID.String() + "/availability/overrides/2026-09-07"
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, url, strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got.Date.Format(availability.DateLayout) != "2026-09-07" {
		t.Errorf("date = %s", got.Date)
	}
	if len(got.Ranges) != 1 || got.Ranges[0] != (availability.TimeRange{Start: 600, End: 720}) {
		t.Errorf("ranges = %+v", got.Ranges)
	}
}

func TestUpsertOverrideHandlerValidation(t *testing.T) {
	svc := &stubService{
		upsertOverride: func(context.Context, uuid.UUID, availability.DateOverride) error {
			return availability.ErrRangesOverlap
		},
	}

	body := `{"blocked":false,"ranges":[{"start":"09:00","end":"12:00"},{"start":"11:00","end":"13:00"}]}`
	url := "/hosts/" + testHostID.String() + "/availability/overrides/2026-09-07"
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, url, strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "invalid_schedule" {
		t.Errorf("error code = %q, want invalid_schedule", resp.Error)
	}
}

func TestRemoveOverrideHandler(t *testing.T) {
	called := false
	svc := &stubService{
		removeOverride: func(_ context.Context, hostID uuid.UUID, date time.Time) error {
			called = true
			return nil
		},
	}

	url := "/hosts/" + testHostID.String() + "/availability/overrides/2026-09-07"
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, url, nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !called {
		t.Error("RemoveOverride was not called")
	}
}

func TestUpdateProfileHandler(t *testing.T) {
	svc := &stubService{
		updateProfile: func(_ context.Context, p *availability.Profile) (*availability.Profile, error) {
			if p.HostID != testHostID {
				t.Errorf("hostID = %s", p.HostID)
			}
			if !p.Weekly[time.Monday].Enabled {
				t.Error("Monday should be enabled")
			}
			return p, nil
		},
	}

	body := `{
		"timezone": "Europe/Berlin",
		"weekly": [
			{"enabled": false, "ranges": []},
			{"enabled": true, "ranges": [{"start":"09:00","end":"17:00"}]},
			{"enabled": true, "ranges": [{"start":"09:00","end":"17:00"}]},
			{"enabled": true, "ranges": [{"start":"09:00","end":"17:00"}]},
			{"enabled": true, "ranges": [{"start":"09:00","end":"17:00"}]},
			{"enabled": true, "ranges": [{"start":"09:00","end":"12:00"}]},
			{"enabled": false, "ranges": []}
		],
		"buffer_between_minutes": 10,
		"minimum_notice_minutes": 120,
		"scheduling_window_days": 21
	}`
	url := "/hosts/" + testHostID.String() + "/availability"
	rec := httptest.NewRecorder()
	testRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, url, strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp ProfileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Timezone != "Europe/Berlin" || resp.SchedulingWindowDays != 21 {
		t.Errorf("unexpected response: %+v", resp)
	}
}
