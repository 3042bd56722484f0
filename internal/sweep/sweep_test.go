package sweep

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/subnetsweep/internal/subnet"
	"github.com/HerbHall/subnetsweep/pkg/models"
)

func mustSubnet(t *testing.T, cidr string) models.Subnet {
	t.Helper()
	p := netip.MustParsePrefix(cidr)
	return models.Subnet{Prefix: p.Masked(), Usable: subnet.UsableHosts(p.Bits())}
}

func TestPlan_Formula(t *testing.T) {
	p, err := NewPlan(10, 4096)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, p.Timeout())
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 2*time.Millisecond, p.Delay(9))
	assert.Equal(t, 2*time.Second+2*time.Millisecond, p.Budget())
}

func TestPlan_Delay(t *testing.T) {
	tests := []struct {
		i    int
		rate float64
		want time.Duration
	}{
		{0, 8096, 0},
		{8, 8096, 0},
		{9, 8096, time.Millisecond},
		{4096, 4096, time.Second},
		{4095, 4096, 999 * time.Millisecond},
		{65533, 4096, 15999 * time.Millisecond},
	}
	for _, tt := range tests {
		p, err := NewPlan(65534, tt.rate)
		require.NoError(t, err)
		if got := p.Delay(tt.i); got != tt.want {
			t.Errorf("Delay(%d) at %v/s = %v, want %v", tt.i, tt.rate, got, tt.want)
		}
	}
}

func TestPlan_Timeout(t *testing.T) {
	tests := []struct {
		n    int
		rate float64
		want time.Duration
	}{
		{0, 4096, 2 * time.Second},
		{2, 4096, 2 * time.Second},
		{6, 8096, 2 * time.Second},
		{254, 4096, 2 * time.Second},
		{65534, 4096, 19 * time.Second},
		{3 * 21844, 8096, 11 * time.Second},
	}
	for _, tt := range tests {
		p, err := NewPlan(tt.n, tt.rate)
		require.NoError(t, err)
		if got := p.Timeout(); got != tt.want {
			t.Errorf("Timeout(n=%d, rate=%v) = %v, want %v", tt.n, tt.rate, got, tt.want)
		}
	}
}

func TestNewPlan_Errors(t *testing.T) {
	_, err := NewPlan(MaxJobs+1, 4096)
	assert.True(t, errors.Is(err, ErrBatchTooLarge))

	_, err = NewPlan(MaxJobs, 4096)
	assert.NoError(t, err)

	_, err = NewPlan(10, 0)
	assert.Error(t, err)

	_, err = NewPlan(-1, 4096)
	assert.Error(t, err)
}

func TestJobs_Slash30(t *testing.T) {
	s := mustSubnet(t, "192.168.1.10/30")

	icmp, err := Jobs(s, nil, 4096)
	require.NoError(t, err)
	require.Len(t, icmp, 2)
	assert.Equal(t, "192.168.1.9", icmp[0].Target.String())
	assert.Equal(t, "192.168.1.10", icmp[1].Target.String())
	assert.Zero(t, icmp[0].Port)

	tcp, err := Jobs(s, []uint16{22, 80, 443}, 8096)
	require.NoError(t, err)
	require.Len(t, tcp, 6)
	assert.Equal(t, uint16(22), tcp[0].Port)
	assert.Equal(t, uint16(443), tcp[5].Port)
	assert.Equal(t, "192.168.1.10", tcp[5].Target.String())
	for _, j := range tcp {
		assert.Equal(t, 2*time.Second, j.Timeout)
	}
}

func TestJobs_TooLargeProducesNothing(t *testing.T) {
	tests := []struct {
		cidr  string
		ports []uint16
	}{
		{"10.0.0.0/15", nil},
		{"10.0.0.0/8", nil},
		{"10.0.0.0/16", []uint16{22, 80, 443}},
		{"10.0.0.0/17", []uint16{22, 80, 443}},
	}
	for _, tt := range tests {
		jobs, err := Jobs(mustSubnet(t, tt.cidr), tt.ports, 4096)
		if !errors.Is(err, ErrBatchTooLarge) {
			t.Errorf("%s ports=%v: err = %v, want ErrBatchTooLarge", tt.cidr, tt.ports, err)
		}
		if len(jobs) != 0 {
			t.Errorf("%s: got %d jobs, want 0", tt.cidr, len(jobs))
		}
	}
}

func TestJobs_Slash16Fits(t *testing.T) {
	jobs, err := Jobs(mustSubnet(t, "10.9.0.0/16"), nil, 4096)
	require.NoError(t, err)
	assert.Len(t, jobs, MaxJobs)
	assert.Equal(t, 15999*time.Millisecond, jobs[len(jobs)-1].Delay)
}

func TestScheduler_ResultsInJobOrder(t *testing.T) {
	jobs, err := Jobs(mustSubnet(t, "10.0.0.0/29"), nil, 4096)
	require.NoError(t, err)

	s := NewScheduler(0, zap.NewNop())
	results := s.Run(context.Background(), jobs, func(_ context.Context, j models.ProbeJob) bool {
		// Only odd last octets answer.
		return j.Target.As4()[3]%2 == 1
	})

	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, jobs[i].Target, r.Target)
		assert.Equal(t, jobs[i].Target.As4()[3]%2 == 1, r.Success, r.Target.String())
	}
}

func TestScheduler_DeadlineIsFailure(t *testing.T) {
	jobs := []models.ProbeJob{
		{Target: netip.MustParseAddr("10.0.0.1"), Timeout: 20 * time.Millisecond},
		{Target: netip.MustParseAddr("10.0.0.2"), Timeout: 20 * time.Millisecond},
	}

	s := NewScheduler(0, nil)
	start := time.Now()
	results := s.Run(context.Background(), jobs, func(ctx context.Context, j models.ProbeJob) bool {
		if j.Target.As4()[3] == 1 {
			return true
		}
		<-ctx.Done()
		// Late success must not count.
		return true
	})

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestScheduler_HonorsDelay(t *testing.T) {
	jobs := []models.ProbeJob{
		{Target: netip.MustParseAddr("10.0.0.1"), Delay: 30 * time.Millisecond, Timeout: time.Second},
	}

	var started time.Duration
	begin := time.Now()
	NewScheduler(0, nil).Run(context.Background(), jobs, func(context.Context, models.ProbeJob) bool {
		started = time.Since(begin)
		return true
	})
	assert.GreaterOrEqual(t, started, 30*time.Millisecond)
}

func TestScheduler_AdmissionCap(t *testing.T) {
	jobs := make([]models.ProbeJob, 20)
	for i := range jobs {
		jobs[i] = models.ProbeJob{
			Target:  netip.AddrFrom4([4]byte{10, 0, 0, byte(i + 1)}),
			Timeout: 5 * time.Second,
		}
	}

	var inFlight, peak atomic.Int32
	results := NewScheduler(3, nil).Run(context.Background(), jobs, func(context.Context, models.ProbeJob) bool {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return true
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestScheduler_CanceledContext(t *testing.T) {
	jobs, err := Jobs(mustSubnet(t, "10.0.0.0/30"), []uint16{22, 80, 443}, 8096)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Int32
	results := NewScheduler(0, nil).Run(ctx, jobs, func(context.Context, models.ProbeJob) bool {
		called.Add(1)
		return true
	})

	require.Len(t, results, 6)
	for _, r := range results {
		assert.False(t, r.Success)
	}
}

func TestScheduler_EmptyBatch(t *testing.T) {
	assert.Nil(t, NewScheduler(0, nil).Run(context.Background(), nil, nil))
}

func TestScheduler_QueuedJobsAreStillProbed(t *testing.T) {
	jobs := make([]models.ProbeJob, 6)
	for i := range jobs {
		jobs[i] = models.ProbeJob{
			Target:  netip.AddrFrom4([4]byte{10, 0, 0, byte(i + 1)}),
			Timeout: 30 * time.Millisecond,
		}
	}
	live := jobs[len(jobs)-1].Target

	var invoked atomic.Int32
	results := NewScheduler(1, nil).Run(context.Background(), jobs, func(ctx context.Context, j models.ProbeJob) bool {
		invoked.Add(1)
		if j.Target == live {
			return true
		}
		<-ctx.Done()
		return false
	})

	if got := invoked.Load(); got != int32(len(jobs)) {
		t.Errorf("probes invoked = %d, want %d", got, len(jobs))
	}
	for i, r := range results {
		want := r.Target == live
		if r.Success != want {
			t.Errorf("results[%d] (%s) Success = %v, want %v", i, r.Target, r.Success, want)
		}
	}
}

func TestScheduler_LiveHostAtEndOfSaturatedBatch(t *testing.T) {
	jobs, err := Jobs(mustSubnet(t, "10.0.3.0/28"), []uint16{22, 80, 443}, 8096)
	if err != nil {
		t.Fatalf("Jobs() error = %v", err)
	}
	for i := range jobs {
		jobs[i].Timeout = 20 * time.Millisecond
	}
	live := netip.MustParseAddr("10.0.3.14")

	var invoked atomic.Int32
	results := NewScheduler(4, nil).Run(context.Background(), jobs, func(ctx context.Context, j models.ProbeJob) bool {
		invoked.Add(1)
		if j.Target == live {
			return true
		}
		<-ctx.Done()
		return false
	})

	if got := invoked.Load(); got != int32(len(jobs)) {
		t.Errorf("probes invoked = %d, want %d", got, len(jobs))
	}
	var successes int
	for _, r := range results {
		if r.Success {
			successes++
			if r.Target != live {
				t.Errorf("unexpected success for %s:%d", r.Target, r.Port)
			}
		}
	}
	if successes != 3 {
		t.Errorf("successes = %d, want 3", successes)
	}
}

func TestScheduler_QueuedJobStopsWithCallerContext(t *testing.T) {
	jobs := []models.ProbeJob{
		{Target: netip.MustParseAddr("10.0.0.1"), Timeout: time.Minute},
		{Target: netip.MustParseAddr("10.0.0.2"), Timeout: time.Minute},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var invoked atomic.Int32
	start := time.Now()
	results := NewScheduler(1, nil).Run(ctx, jobs, func(ctx context.Context, _ models.ProbeJob) bool {
		invoked.Add(1)
		<-ctx.Done()
		return false
	})

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %v, want it to stop with the caller context", elapsed)
	}
	if got := invoked.Load(); got != 1 {
		t.Errorf("probes invoked = %d, want 1", got)
	}
	for i, r := range results {
		if r.Success {
			t.Errorf("results[%d] Success = true, want false", i)
		}
	}
}
