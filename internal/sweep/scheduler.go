package sweep

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// DefaultMaxInFlight caps concurrent probes when no limit is configured.
const DefaultMaxInFlight = 1024

// ProbeFunc runs one probe. It must return once ctx is done; a true result
// reported after the job deadline still counts as a failure.
type ProbeFunc func(ctx context.Context, job models.ProbeJob) bool

// Scheduler runs probe batches: one goroutine per job, each started after
// its delay and bounded by its timeout, with at most maxInFlight probes
// running at once.
type Scheduler struct {
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewScheduler creates a Scheduler. maxInFlight <= 0 selects
// DefaultMaxInFlight.
func NewScheduler(maxInFlight int64, logger *zap.Logger) *Scheduler {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sem:    semaphore.NewWeighted(maxInFlight),
		logger: logger,
	}
}

// Run executes every job and waits for all of them. Results are in job
// order. A job waits for an admission slot as long as ctx allows; its
// timeout starts once it is admitted. A job whose probe does not succeed
// before its own deadline fails. Nothing is retried.
func (s *Scheduler) Run(ctx context.Context, jobs []models.ProbeJob, probe ProbeFunc) []models.ProbeResult {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]models.ProbeResult, len(jobs))
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i := range jobs {
		go func(i int) {
			defer wg.Done()
			job := jobs[i]
			results[i] = models.ProbeResult{
				Target:  job.Target,
				Port:    job.Port,
				Success: s.runJob(ctx, job, probe),
			}
		}(i)
	}
	wg.Wait()

	var online int
	for i := range results {
		if results[i].Success {
			online++
		}
	}
	s.logger.Debug("batch finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("succeeded", online),
	)
	return results
}

func (s *Scheduler) runJob(ctx context.Context, job models.ProbeJob, probe ProbeFunc) bool {
	if job.Delay > 0 {
		timer := time.NewTimer(job.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer s.sem.Release(1)

	// The probe window opens at admission, not at the scheduled delay.
	jobCtx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	ok := probe(jobCtx, job)
	return ok && jobCtx.Err() == nil
}
