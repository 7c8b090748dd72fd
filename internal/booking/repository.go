package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pulsedesk/scheduling/internal/availability"
)

var (
	ErrHostNotFound      = errors.New("host not found")
	ErrEventTypeNotFound = errors.New("event type not found")
	ErrProfileNotFound   = errors.New("availability profile not found")
	ErrBookingNotFound   = errors.New("booking not found")

	// ErrSlotTaken is the storage layer losing-the-race outcome: an
	// overlapping confirmed booking already exists.
	ErrSlotTaken = errors.New("slot already has a confirmed booking")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetHostByID(ctx context.Context, id uuid.UUID) (*Host, error)
	GetEventTypeByID(ctx context.Context, id uuid.UUID) (*EventType, error)

	// GetProfile returns ErrProfileNotFound when the host never configured
	// availability; callers substitute the system default.
	GetProfile(ctx context.Context, hostID uuid.UUID) (*availability.Profile, error)
	UpsertProfile(ctx context.Context, p *availability.Profile) error
	UpsertOverride(ctx context.Context, hostID uuid.UUID, o availability.DateOverride) error
	DeleteOverride(ctx context.Context, hostID uuid.UUID, date time.Time) error

	// Ledger reads for conflict detection.
	ListConfirmedBookings(ctx context.Context, hostID uuid.UUID, date time.Time) ([]Booking, error)
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// InsertConfirmedBooking is the atomic reservation write. It must return
	// ErrSlotTaken when a confirmed booking for the same (host, date, start)
	// already exists, enforced by the storage layer rather than a prior read.
	InsertConfirmedBooking(ctx context.Context, b *Booking) (*Booking, error)

	// Retention worker.
	DeleteOverridesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteNonConfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
