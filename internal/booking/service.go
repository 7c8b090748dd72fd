package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pulsedesk/scheduling/internal/availability"
	"github.com/pulsedesk/scheduling/internal/config"
	redisclient "github.com/pulsedesk/scheduling/internal/redis"
)

var (
	ErrDateOutOfWindow  = errors.New("date is outside the bookable window")
	ErrInvalidSlotStart = errors.New("start time does not match an offerable slot")
	ErrSlotNotBookable  = errors.New("slot can no longer be booked")
	ErrSlotBeingBooked  = errors.New("slot is currently being booked, please retry")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config

	// now is swapped in tests; defaults to time.Now.
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
}

// readContext bundles the three independent reads every slot operation
// needs: the event type's rules, the host's profile, and the ledger snapshot.
type readContext struct {
	host      *Host
	eventType *EventType
	profile   *availability.Profile
	bookings  []Booking
}

// loadForDate issues the reads concurrently; they touch disjoint tables. A
// missing profile is not an error, the system default takes its place.
func (s *Service) loadForDate(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time) (*readContext, error) {
	var rc readContext

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h, err := s.repo.GetHostByID(gctx, hostID)
		if err != nil {
			return err
		}
		rc.host = h
		return nil
	})

	g.Go(func() error {
		et, err := s.repo.GetEventTypeByID(gctx, eventTypeID)
		if err != nil {
			return err
		}
		rc.eventType = et
		return nil
	})

	g.Go(func() error {
		p, err := s.repo.GetProfile(gctx, hostID)
		if err != nil {
			if errors.Is(err, ErrProfileNotFound) {
				rc.profile = availability.DefaultProfile(hostID)
				return nil
			}
			return err
		}
		rc.profile = p
		return nil
	})

	g.Go(func() error {
		bs, err := s.repo.ListConfirmedBookings(gctx, hostID, date)
		if err != nil {
			return fmt.Errorf("list confirmed bookings: %w", err)
		}
		rc.bookings = bs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if rc.eventType.HostID != hostID {
		return nil, ErrEventTypeNotFound
	}

	return &rc, nil
}

// hostNow expresses the current instant in the profile's timezone. The
// resolver itself is timezone naive; this is the single conversion point.
func (s *Service) hostNow(p *availability.Profile, host *Host) time.Time {
	tz := p.Timezone
	if tz == "" {
		tz = host.Timezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("unknown timezone %q for host %s, using UTC", tz, host.ID)
		loc = time.UTC
	}

	return s.now().In(loc)
}

// GetSlots resolves the offerable slots for one host-local date. The date
// must lie inside [today, today+window]; out-of-range requests fail fast
// because their output would be meaningless.
func (s *Service) GetSlots(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time) (*SlotPage, error) {
	rc, err := s.loadForDate(ctx, hostID, eventTypeID, date)
	if err != nil {
		return nil, err
	}

	rules := availability.EffectiveRules(rc.profile, rc.eventType.Rules())
	now := s.hostNow(rc.profile, rc.host)

	days := availability.DaysUntil(now, date)
	if days < 0 || days > rules.SchedulingWindowDays {
		return nil, ErrDateOutOfWindow
	}

	slots := availability.ResolveSlots(rc.profile, rules, date, bookedIntervals(rc.bookings), now)

	return &SlotPage{
		Date:      date,
		Timezone:  now.Location().String(),
		EventType: rc.eventType,
		Slots:     slots,
	}, nil
}

// Reserve atomically claims one slot. The Redis per-slot lock serializes
// hot-slot contention cheaply; the ledger's unique constraint is the
// authoritative guard, so a lost race always surfaces as ErrSlotTaken even
// if two instances slip past the lock.
func (s *Service) Reserve(ctx context.Context, hostID, eventTypeID uuid.UUID, date time.Time, startMinute int, attendee Attendee) (*Booking, error) {
	rc, err := s.loadForDate(ctx, hostID, eventTypeID, date)
	if err != nil {
		return nil, err
	}

	rules := availability.EffectiveRules(rc.profile, rc.eventType.Rules())
	now := s.hostNow(rc.profile, rc.host)

	days := availability.DaysUntil(now, date)
	if days < 0 || days > rules.SchedulingWindowDays {
		return nil, ErrDateOutOfWindow
	}

	slots := availability.ResolveSlots(rc.profile, rules, date, bookedIntervals(rc.bookings), now)
	slot, ok := findSlot(slots, startMinute)
	if !ok {
		return nil, ErrInvalidSlotStart
	}
	if !slot.Available {
		if availability.MinutesUntil(now, date, slot.Start) < rules.MinimumNoticeMinutes {
			return nil, ErrSlotNotBookable
		}
		return nil, ErrSlotTaken
	}

	var created *Booking

	lockKey := slotLockKey(hostID, date, startMinute)
	err = s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		// Re-read inside the critical section; the snapshot used for the
		// availability check above is already stale in principle.
		fresh, err := s.repo.ListConfirmedBookings(lockCtx, hostID, date)
		if err != nil {
			return fmt.Errorf("re-check confirmed bookings: %w", err)
		}
		for _, b := range fresh {
			if overlapsBuffered(slot, b, rules) {
				return ErrSlotTaken
			}
		}

		booking, err := s.repo.InsertConfirmedBooking(lockCtx, &Booking{
			HostID:        hostID,
			EventTypeID:   eventTypeID,
			Date:          date,
			StartMinute:   slot.Start,
			EndMinute:     slot.End,
			Status:        StatusConfirmed,
			AttendeeName:  attendee.Name,
			AttendeeEmail: attendee.Email,
		})
		if err != nil {
			return err
		}

		created = booking
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// GetProfile returns the stored profile, or the system default when the host
// has not configured availability yet.
func (s *Service) GetProfile(ctx context.Context, hostID uuid.UUID) (*availability.Profile, error) {
	if _, err := s.repo.GetHostByID(ctx, hostID); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProfile(ctx, hostID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return availability.DefaultProfile(hostID), nil
		}
		return nil, err
	}
	return p, nil
}

// UpdateProfile replaces the host's weekly schedule and policies. Ranges are
// validated here so malformed schedules never reach storage.
func (s *Service) UpdateProfile(ctx context.Context, p *availability.Profile) (*availability.Profile, error) {
	if _, err := s.repo.GetHostByID(ctx, p.HostID); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, p.HostID)
}

// UpsertOverride replaces any existing override for the date. The profile is
// created lazily here: an override is a first configuration like any other.
func (s *Service) UpsertOverride(ctx context.Context, hostID uuid.UUID, o availability.DateOverride) error {
	if _, err := s.repo.GetHostByID(ctx, hostID); err != nil {
		return err
	}

	if err := o.Validate(); err != nil {
		return err
	}

	if _, err := s.repo.GetProfile(ctx, hostID); err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			return err
		}
		if err := s.repo.UpsertProfile(ctx, availability.DefaultProfile(hostID)); err != nil {
			return fmt.Errorf("create default profile: %w", err)
		}
	}

	return s.repo.UpsertOverride(ctx, hostID, o)
}

func (s *Service) RemoveOverride(ctx context.Context, hostID uuid.UUID, date time.Time) error {
	if _, err := s.repo.GetHostByID(ctx, hostID); err != nil {
		return err
	}
	return s.repo.DeleteOverride(ctx, hostID, date)
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// PruneStaleData is called by the retention worker: overrides for past dates
// are dead weight, and non-confirmed bookings are kept only for a horizon.
func (s *Service) PruneStaleData(ctx context.Context) error {
	today := s.now().Truncate(24 * time.Hour)

	n, err := s.repo.DeleteOverridesBefore(ctx, today)
	if err != nil {
		return fmt.Errorf("prune overrides: %w", err)
	}
	if n > 0 {
		log.Printf("pruned %d stale date overrides", n)
	}

	cutoff := today.AddDate(0, 0, -s.cfg.RetentionDays)
	n, err = s.repo.DeleteNonConfirmedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune bookings: %w", err)
	}
	if n > 0 {
		log.Printf("pruned %d old non-confirmed bookings", n)
	}

	return nil
}

func bookedIntervals(bookings []Booking) []availability.Interval {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]availability.Interval, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookings[i].Interval())
	}
	return out
}

func findSlot(slots []availability.TimeSlot, start int) (availability.TimeSlot, bool) {
	for _, s := range slots {
		if s.Start == start {
			return s, true
		}
	}
	return availability.TimeSlot{}, false
}

func overlapsBuffered(slot availability.TimeSlot, b Booking, rules availability.Rules) bool {
	bufferedStart := b.StartMinute - rules.BufferBeforeMinutes
	bufferedEnd := b.EndMinute + rules.BufferAfterMinutes
	return slot.Start < bufferedEnd && slot.End > bufferedStart
}

func slotLockKey(hostID uuid.UUID, date time.Time, startMinute int) string {
	return fmt.Sprintf("%s:%s:%d", hostID, date.Format(availability.DateLayout), startMinute)
}
