// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the last known outcome of a registered job
type JobStatus struct {
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

type registration struct {
	job      Job
	schedule string
	entryID  cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu     sync.Mutex
	jobs   []registration
	status map[string]*JobStatus
}

// New creates a new scheduler. Schedules accept an optional seconds field
// and descriptors such as "@every 5m".
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(
				cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
			)),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log:    log.With().Str("component", "scheduler").Logger(),
		status: make(map[string]*JobStatus),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		_ = s.execute(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, registration{job: job, schedule: schedule, entryID: id})
	s.status[job.Name()] = &JobStatus{Name: job.Name(), Schedule: schedule}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

func (s *Scheduler) execute(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	started := time.Now()

	err := job.Run()

	s.mu.Lock()
	st, ok := s.status[job.Name()]
	if !ok {
		st = &JobStatus{Name: job.Name()}
		s.status[job.Name()] = st
	}
	st.LastRun = started
	st.Runs++
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
		return err
	}
	s.log.Debug().
		Str("job", job.Name()).
		Dur("duration", time.Since(started)).
		Msg("Job completed")
	return nil
}

// Status reports every registered job in registration order
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, reg := range s.jobs {
		st := *s.status[reg.job.Name()]
		st.NextRun = s.cron.Entry(reg.entryID).Next
		out = append(out, st)
	}
	return out
}
