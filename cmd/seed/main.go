package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsedesk/scheduling/internal/availability"
	"github.com/pulsedesk/scheduling/internal/booking"
	"github.com/pulsedesk/scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	hostIDs, err := seedHosts(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed hosts: %v", err)
	}
	if err := seedEventTypes(context.Background(), pool, hostIDs); err != nil {
		log.Fatalf("seed event types: %v", err)
	}
	if err := seedProfiles(context.Background(), pool, hostIDs); err != nil {
		log.Fatalf("seed profiles: %v", err)
	}

	log.Println("seed complete")
}

var timezones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Berlin",
	"Asia/Tokyo",
	"Australia/Sydney",
}

func seedHosts(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d hosts", count)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		tz := timezones[gofakeit.Number(0, len(timezones)-1)]

		_, err := pool.Exec(ctx, `
			INSERT INTO hosts (id, name, email, timezone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (email) DO NOTHING
		`, id, gofakeit.Name(), gofakeit.Email(), tz)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, nil
}

type eventTemplate struct {
	name     string
	duration int
	before   int
	after    int
	notice   int
	window   int
}

var eventTemplates = []eventTemplate{
	{name: "Intro Call", duration: 15, notice: 60, window: 14},
	{name: "30 Minute Meeting", duration: 30, after: 10, notice: 120, window: 30},
	{name: "Deep Dive", duration: 60, before: 10, after: 15, notice: 240, window: 30},
	{name: "Office Hours", duration: 45, notice: 60, window: 7},
}

func seedEventTypes(ctx context.Context, pool *pgxpool.Pool, hostIDs []uuid.UUID) error {
	log.Printf("seeding event types for %d hosts", len(hostIDs))

	for _, hostID := range hostIDs {
		n := gofakeit.Number(1, len(eventTemplates))
		for _, tmpl := range eventTemplates[:n] {
			_, err := pool.Exec(ctx, `
				INSERT INTO event_types
					(id, host_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes,
					 minimum_notice_minutes, scheduling_window_days, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			`, uuid.New(), hostID, tmpl.name, tmpl.duration, tmpl.before, tmpl.after, tmpl.notice, tmpl.window)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func seedProfiles(ctx context.Context, pool *pgxpool.Pool, hostIDs []uuid.UUID) error {
	log.Printf("seeding availability profiles for %d hosts", len(hostIDs))

	repo := booking.NewPgRepository(pool)

	for _, hostID := range hostIDs {
		var weekly availability.WeeklySchedule
		for wd := time.Monday; wd <= time.Friday; wd++ {
			start := gofakeit.Number(8, 10) * 60
			end := gofakeit.Number(16, 18) * 60
			weekly[wd] = availability.DaySchedule{
				Enabled: true,
				Ranges:  []availability.TimeRange{{Start: start, End: end}},
			}
		}

		p := &availability.Profile{
			HostID:               hostID,
			Timezone:             timezones[gofakeit.Number(0, len(timezones)-1)],
			Weekly:               weekly,
			BufferBetweenMinutes: gofakeit.Number(0, 3) * 5,
			MinimumNoticeMinutes: 60,
			SchedulingWindowDays: 30,
		}

		if err := repo.UpsertProfile(ctx, p); err != nil {
			return err
		}
	}

	return nil
}
