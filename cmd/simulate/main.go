package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsedesk/scheduling/internal/config"
	"github.com/pulsedesk/scheduling/internal/db"
)

// The simulator hammers the slots and reservation endpoints with many
// workers aimed at a small set of hosts, so concurrent attempts pile onto
// the same slots. At the end it audits the ledger for double bookings.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	HostLimit   int
	DaysAhead   int
	PostgresDSN string
}

type Target struct {
	HostID      uuid.UUID
	EventTypeID uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Slots   OperationMetrics
	Reserve OperationMetrics
}

type Simulator struct {
	config  SimConfig
	targets []Target
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d hosts=%d days_ahead=%d",
		cfg.Duration, cfg.Workers, cfg.HostLimit, cfg.DaysAhead)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	targets, err := loadTargets(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}
	log.Printf("loaded %d host/event-type targets", len(targets))

	sim := &Simulator{
		config:  cfg,
		targets: targets,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()

	auditDoubleBookings(context.Background(), pgPool)
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 20),
		HostLimit:   getInt("SIM_HOST_LIMIT", 5),
		DaysAhead:   getInt("SIM_DAYS_AHEAD", 7),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadTargets(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) ([]Target, error) {
	rows, err := pool.Query(ctx, `
		SELECT host_id, id FROM event_types
		WHERE host_id IN (SELECT id FROM hosts LIMIT $1)
	`, cfg.HostLimit)
	if err != nil {
		return nil, fmt.Errorf("load event types: %w", err)
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.HostID, &t.EventTypeID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no event types loaded, run cmd/seed first")
	}

	return targets, rows.Err()
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		target := s.targets[rng.Intn(len(s.targets))]
		date := time.Now().AddDate(0, 0, 1+rng.Intn(s.config.DaysAhead)).Format("2006-01-02")

		start, ok := s.fetchRandomSlot(ctx, rng, target, date)
		if !ok {
			continue
		}

		s.reserve(ctx, target, date, start, workerID)
	}
}

type slotsResponse struct {
	Slots []struct {
		StartTime string `json:"start_time"`
		Available bool   `json:"available"`
	} `json:"slots"`
}

func (s *Simulator) fetchRandomSlot(ctx context.Context, rng *rand.Rand, target Target, date string) (string, bool) {
	url := fmt.Sprintf("%s/hosts/%s/event-types/%s/slots?date=%s",
		s.config.APIBaseURL, target.HostID, target.EventTypeID, date)

	begin := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}

	resp, err := s.client.Do(req)
	latency := time.Since(begin)
	if err != nil {
		s.metrics.Slots.Record(latency, false, false)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		s.metrics.Slots.Record(latency, false, resp.StatusCode == http.StatusConflict)
		return "", false
	}

	var body slotsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.metrics.Slots.Record(latency, false, false)
		return "", false
	}
	s.metrics.Slots.Record(latency, true, false)

	var open []string
	for _, slot := range body.Slots {
		if slot.Available {
			open = append(open, slot.StartTime)
		}
	}
	if len(open) == 0 {
		return "", false
	}

	// Bias toward the first few open slots so workers collide often.
	idx := rng.Intn(len(open))
	if rng.Float64() < 0.5 {
		idx = rng.Intn((len(open) + 3) / 4)
	}
	return open[idx], true
}

func (s *Simulator) reserve(ctx context.Context, target Target, date, start string, workerID int) {
	url := fmt.Sprintf("%s/hosts/%s/event-types/%s/reservations",
		s.config.APIBaseURL, target.HostID, target.EventTypeID)

	payload, _ := json.Marshal(map[string]string{
		"date":           date,
		"start_time":     start,
		"attendee_name":  fmt.Sprintf("sim-worker-%d", workerID),
		"attendee_email": fmt.Sprintf("worker%d@sim.local", workerID),
	})

	begin := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(begin)
	if err != nil {
		s.metrics.Reserve.Record(latency, false, false)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	success := resp.StatusCode == http.StatusCreated
	conflict := resp.StatusCode == http.StatusConflict
	s.metrics.Reserve.Record(latency, success, conflict)
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println("=== Simulation Report ===")
	printOp("GET slots", &s.metrics.Slots)
	printOp("POST reserve", &s.metrics.Reserve)
}

func printOp(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		fmt.Printf("%-14s no requests\n", name)
		return
	}

	avg, min, max, p50, p95 := om.Stats()
	fmt.Printf("%-14s total=%d success=%d conflict=%d error=%d\n",
		name, total,
		atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Conflict),
		atomic.LoadInt64(&om.Error))
	fmt.Printf("%-14s latency avg=%s min=%s max=%s p50=%s p95=%s\n",
		"", avg, min, max, p50, p95)
}

// auditDoubleBookings is the pass/fail check: after the run, no two
// confirmed bookings may share (host, date, start).
func auditDoubleBookings(ctx context.Context, pool *pgxpool.Pool) {
	auditCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var dupes int
	err := pool.QueryRow(auditCtx, `
		SELECT count(*) FROM (
			SELECT host_id, booking_date, start_minute
			FROM bookings
			WHERE status = 'confirmed'
			GROUP BY host_id, booking_date, start_minute
			HAVING count(*) > 1
		) d
	`).Scan(&dupes)
	if err != nil {
		log.Printf("audit query failed: %v", err)
		return
	}

	if dupes > 0 {
		log.Printf("AUDIT FAILED: %d slots have multiple confirmed bookings", dupes)
		os.Exit(1)
	}
	log.Println("audit passed: no double-booked slots")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
