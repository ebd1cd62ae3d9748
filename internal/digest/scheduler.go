package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/manuscripts"
)

const DefaultSchedule = "@hourly"

var ErrAlreadyRunning = errors.New("digest scheduler already running")

// Digest is a snapshot of how many manuscripts sit in each state
type Digest struct {
	At     time.Time                   `json:"at"`
	Counts map[manuscripts.State]int64 `json:"counts"`
	Total  int64                       `json:"total"`
}

// Counter counts manuscripts per workflow state
type Counter interface {
	CountByState(ctx context.Context) (map[manuscripts.State]int64, error)
}

// Publisher receives every computed digest
type Publisher interface {
	PublishDigest(ctx context.Context, d Digest) error
}

// Config configures the scheduler
type Config struct {
	Schedule string
	Timeout  time.Duration
}

// DefaultConfig returns an hourly digest with a one minute budget
func DefaultConfig() Config {
	return Config{
		Schedule: DefaultSchedule,
		Timeout:  time.Minute,
	}
}

// Scheduler periodically builds and publishes a workflow digest
type Scheduler struct {
	cron      *cron.Cron
	counter   Counter
	publisher Publisher
	config    Config
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	last    *Digest
}

// NewScheduler validates the cron expression and builds a scheduler.
// publisher may be nil, in which case digests are only logged.
func NewScheduler(counter Counter, publisher Publisher, config Config, logger *zap.Logger) (*Scheduler, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}

	s := &Scheduler{
		cron:      cron.New(),
		counter:   counter,
		publisher: publisher,
		config:    config,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}

	if _, err := s.cron.AddFunc(config.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", config.Schedule, err)
	}
	return s, nil
}

// Start starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.logger.Info("Starting digest scheduler", zap.String("schedule", s.config.Schedule))
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping digest scheduler")
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run, or the zero time when stopped
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Last returns the most recent digest, if any
func (s *Scheduler) Last() *Digest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Digest run failed", zap.Error(err))
	}
}

// RunOnce builds one digest and hands it to the publisher
func (s *Scheduler) RunOnce(ctx context.Context) (*Digest, error) {
	counts, err := s.counter.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count manuscripts: %w", err)
	}

	d := Build(counts, s.now())

	s.mu.Lock()
	s.last = &d
	s.mu.Unlock()

	s.logger.Info("Workflow digest",
		zap.Int64("total", d.Total),
		zap.Any("counts", d.Counts))

	if s.publisher != nil {
		if err := s.publisher.PublishDigest(ctx, d); err != nil {
			return &d, fmt.Errorf("failed to publish digest: %w", err)
		}
	}
	return &d, nil
}

// Build fills in a zero count for every state missing from counts
func Build(counts map[manuscripts.State]int64, at time.Time) Digest {
	d := Digest{
		At:     at,
		Counts: make(map[manuscripts.State]int64, len(manuscripts.States())),
	}
	for _, state := range manuscripts.States() {
		n := counts[state]
		d.Counts[state] = n
		d.Total += n
	}
	return d
}
