package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// Job is periodic maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job   Job
	every time.Duration
}

// Scheduler runs registered jobs on fixed intervals. A job never overlaps with itself.
type Scheduler struct {
	log  *logger.Logger
	mu   sync.Mutex
	jobs []entry
	ctx  context.Context
	cron gocron.Scheduler
}

func NewScheduler(baseLog *logger.Logger) *Scheduler {
	return &Scheduler{log: baseLog.With("component", "Scheduler")}
}

func (s *Scheduler) Register(job Job, every time.Duration) error {
	if job == nil || job.Name() == "" {
		return fmt.Errorf("job must be non-nil and named")
	}
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.jobs {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("job already registered: %s", job.Name())
		}
	}
	s.jobs = append(s.jobs, entry{job: job, every: every})
	return nil
}

// Start schedules every registered job. ctx is handed to each run and cancels it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	cron, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	s.ctx = ctx
	for _, e := range s.jobs {
		if _, err := cron.NewJob(
			gocron.DurationJob(e.every),
			gocron.NewTask(s.runOnce, e.job),
			gocron.WithName(e.job.Name()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = cron.Shutdown()
			return fmt.Errorf("schedule %s: %w", e.job.Name(), err)
		}
		s.log.Info("job scheduled", "job", e.job.Name(), "every", e.every.String())
	}
	cron.Start()
	s.cron = cron
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	start := time.Now()
	if err := job.Run(s.ctx); err != nil {
		s.log.Warn("job failed", "job", job.Name(), "error", err, "duration", time.Since(start).String())
		return
	}
	s.log.Debug("job finished", "job", job.Name(), "duration", time.Since(start).String())
}

func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	err := s.cron.Shutdown()
	s.cron = nil
	return err
}
