package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsedesk/scheduling/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanHost(row pgx.Row) (*Host, error) {
	var h Host

	err := row.Scan(
		&h.ID,
		&h.Name,
		&h.Email,
		&h.Timezone,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHostNotFound
		}
		return nil, err
	}

	return &h, nil
}

func scanEventType(row pgx.Row) (*EventType, error) {
	var e EventType

	err := row.Scan(
		&e.ID,
		&e.HostID,
		&e.Name,
		&e.DurationMinutes,
		&e.BufferBeforeMinutes,
		&e.BufferAfterMinutes,
		&e.MinimumNoticeMinutes,
		&e.SchedulingWindowDays,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventTypeNotFound
		}
		return nil, err
	}

	return &e, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.HostID,
		&b.EventTypeID,
		&b.Date,
		&b.StartMinute,
		&b.EndMinute,
		&b.Status,
		&b.AttendeeName,
		&b.AttendeeEmail,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

const bookingColumns = `id, host_id, event_type_id, booking_date, start_minute, end_minute, status, attendee_name, attendee_email, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetHostByID(ctx context.Context, id uuid.UUID) (*Host, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, timezone, created_at, updated_at
		FROM hosts
		WHERE id = $1
	`, id)
	return scanHost(row)
}

func (r *PgRepository) GetEventTypeByID(ctx context.Context, id uuid.UUID) (*EventType, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, host_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes,
		       minimum_notice_minutes, scheduling_window_days, created_at, updated_at
		FROM event_types
		WHERE id = $1
	`, id)
	return scanEventType(row)
}

func (r *PgRepository) GetProfile(ctx context.Context, hostID uuid.UUID) (*availability.Profile, error) {
	var (
		p      availability.Profile
		weekly []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT host_id, timezone, weekly, buffer_between_minutes,
		       minimum_notice_minutes, scheduling_window_days, created_at, updated_at
		FROM availability_profiles
		WHERE host_id = $1
	`, hostID).Scan(
		&p.HostID,
		&p.Timezone,
		&weekly,
		&p.BufferBetweenMinutes,
		&p.MinimumNoticeMinutes,
		&p.SchedulingWindowDays,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(weekly, &p.Weekly); err != nil {
		return nil, fmt.Errorf("decode weekly schedule: %w", err)
	}

	overrides, err := r.listOverrides(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	p.Overrides = overrides

	return &p, nil
}

func (r *PgRepository) listOverrides(ctx context.Context, hostID uuid.UUID) (map[string]availability.DateOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT override_date, blocked, ranges
		FROM date_overrides
		WHERE host_id = $1
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(map[string]availability.DateOverride)
	for rows.Next() {
		var (
			o      availability.DateOverride
			ranges []byte
		)
		if err := rows.Scan(&o.Date, &o.Blocked, &ranges); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ranges, &o.Ranges); err != nil {
			return nil, fmt.Errorf("decode override ranges: %w", err)
		}
		overrides[o.Date.Format(availability.DateLayout)] = o
	}

	return overrides, rows.Err()
}

func (r *PgRepository) UpsertProfile(ctx context.Context, p *availability.Profile) error {
	weekly, err := json.Marshal(p.Weekly)
	if err != nil {
		return fmt.Errorf("encode weekly schedule: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO availability_profiles
			(host_id, timezone, weekly, buffer_between_minutes, minimum_notice_minutes, scheduling_window_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (host_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			weekly = EXCLUDED.weekly,
			buffer_between_minutes = EXCLUDED.buffer_between_minutes,
			minimum_notice_minutes = EXCLUDED.minimum_notice_minutes,
			scheduling_window_days = EXCLUDED.scheduling_window_days,
			updated_at = now()
	`, p.HostID, p.Timezone, weekly, p.BufferBetweenMinutes, p.MinimumNoticeMinutes, p.SchedulingWindowDays)
	if err != nil {
		return fmt.Errorf("upsert availability profile: %w", err)
	}

	return nil
}

func (r *PgRepository) UpsertOverride(ctx context.Context, hostID uuid.UUID, o availability.DateOverride) error {
	ranges, err := json.Marshal(o.Ranges)
	if err != nil {
		return fmt.Errorf("encode override ranges: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO date_overrides (host_id, override_date, blocked, ranges, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (host_id, override_date) DO UPDATE SET
			blocked = EXCLUDED.blocked,
			ranges = EXCLUDED.ranges,
			updated_at = now()
	`, hostID, o.Date, o.Blocked, ranges)
	if err != nil {
		return fmt.Errorf("upsert date override: %w", err)
	}

	return nil
}

func (r *PgRepository) DeleteOverride(ctx context.Context, hostID uuid.UUID, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM date_overrides
		WHERE host_id = $1 AND override_date = $2
	`, hostID, date)
	if err != nil {
		return fmt.Errorf("delete date override: %w", err)
	}
	return nil
}

func (r *PgRepository) ListConfirmedBookings(ctx context.Context, hostID uuid.UUID, date time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE host_id = $1
		  AND booking_date = $2
		  AND status = 'confirmed'
		ORDER BY start_minute
	`, hostID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	return result, rows.Err()
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

// InsertConfirmedBooking relies on the partial unique index over
// (host_id, booking_date, start_minute) WHERE status = 'confirmed'. A lost
// race surfaces as no returned row, which maps to ErrSlotTaken.
func (r *PgRepository) InsertConfirmedBooking(ctx context.Context, b *Booking) (*Booking, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings
			(id, host_id, event_type_id, booking_date, start_minute, end_minute, status, attendee_name, attendee_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'confirmed', $7, $8, now(), now())
		ON CONFLICT (host_id, booking_date, start_minute) WHERE status = 'confirmed' DO NOTHING
		RETURNING `+bookingColumns+`
	`, id, b.HostID, b.EventTypeID, b.Date, b.StartMinute, b.EndMinute, b.AttendeeName, b.AttendeeEmail)

	created, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) DeleteOverridesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM date_overrides
		WHERE override_date < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale overrides: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) DeleteNonConfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM bookings
		WHERE status <> 'confirmed'
		  AND booking_date < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old non-confirmed bookings: %w", err)
	}
	return tag.RowsAffected(), nil
}
