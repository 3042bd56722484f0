// Package sweep schedules large batches of rate-shaped network probes.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/HerbHall/subnetsweep/internal/subnet"
	"github.com/HerbHall/subnetsweep/pkg/models"
)

// MaxJobs is the largest batch a Plan accepts. It is the usable host count
// of a /16.
const MaxJobs = 65534

// ErrBatchTooLarge is returned when a batch exceeds MaxJobs. Callers skip
// the whole batch.
var ErrBatchTooLarge = errors.New("sweep: batch exceeds maximum job count")

// Plan spreads N jobs evenly over time at a target issue rate.
type Plan struct {
	n    int
	rate float64
}

// NewPlan validates a batch of n jobs issued at rate jobs per second.
func NewPlan(n int, rate float64) (Plan, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Plan{}, fmt.Errorf("sweep: invalid rate %v", rate)
	}
	if n < 0 {
		return Plan{}, fmt.Errorf("sweep: negative job count %d", n)
	}
	if n > MaxJobs {
		return Plan{}, fmt.Errorf("%d jobs: %w", n, ErrBatchTooLarge)
	}
	return Plan{n: n, rate: rate}, nil
}

// Len returns the number of jobs in the batch.
func (p Plan) Len() int { return p.n }

// Rate returns the issue rate in jobs per second.
func (p Plan) Rate() float64 { return p.rate }

// Delay is the start offset of the i-th job, floor(i/rate*1000) milliseconds.
func (p Plan) Delay(i int) time.Duration {
	ms := math.Floor(float64(i) / p.rate * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Timeout is the per-job deadline shared by the whole batch,
// ceil((n/rate + 1) * 1.1) seconds.
func (p Plan) Timeout() time.Duration {
	s := math.Ceil((float64(p.n)/p.rate + 1) * 1.1)
	return time.Duration(s) * time.Second
}

// Budget is the wall time by which every job of the batch has either
// finished or hit its deadline, provided no job waits for admission.
func (p Plan) Budget() time.Duration {
	if p.n == 0 {
		return 0
	}
	return p.Delay(p.n-1) + p.Timeout()
}

// Jobs builds the job batch for s: one job per usable host, or one per
// (host, port) pair when ports is non-empty. The batch size is checked
// before any address is expanded, so an oversized subnet costs nothing.
func Jobs(s models.Subnet, ports []uint16, rate float64) ([]models.ProbeJob, error) {
	perHost := uint64(len(ports))
	if perHost == 0 {
		perHost = 1
	}
	total := s.Usable * perHost
	if total > MaxJobs {
		return nil, fmt.Errorf("%s: %d jobs: %w", s, total, ErrBatchTooLarge)
	}

	plan, err := NewPlan(int(total), rate)
	if err != nil {
		return nil, err
	}

	timeout := plan.Timeout()
	jobs := make([]models.ProbeJob, 0, plan.Len())
	for _, host := range subnet.Hosts(s) {
		if len(ports) == 0 {
			jobs = append(jobs, models.ProbeJob{
				Target:  host,
				Delay:   plan.Delay(len(jobs)),
				Timeout: timeout,
			})
			continue
		}
		for _, port := range ports {
			jobs = append(jobs, models.ProbeJob{
				Target:  host,
				Port:    port,
				Delay:   plan.Delay(len(jobs)),
				Timeout: timeout,
			})
		}
	}
	return jobs, nil
}
