// Package probe implements the host discovery techniques: ICMP echo sweeps
// and TCP connect sweeps over a subnet.
package probe

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/subnetsweep/internal/sweep"
	"github.com/HerbHall/subnetsweep/pkg/models"
)

// ICMPRate is the issue rate of echo requests, in probes per second.
const ICMPRate = 4096

// Echoer sends one echo request and reports whether the matching reply
// arrived before ctx is done.
type Echoer interface {
	Echo(ctx context.Context, target netip.Addr) bool
	Close() error
}

// EchoerFactory opens an Echoer for one sweep.
type EchoerFactory func(ctx context.Context) (Echoer, error)

// Engine names an Echoer implementation.
type Engine string

const (
	// EngineSession shares one ICMP socket across the whole sweep.
	EngineSession Engine = "session"

	// EnginePinger runs a pro-bing pinger per target.
	EnginePinger Engine = "pinger"
)

// ParseEngine validates a configured engine name. Empty selects
// EngineSession.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(s); e {
	case EngineSession, EnginePinger:
		return e, nil
	case "":
		return EngineSession, nil
	default:
		return "", fmt.Errorf("unknown icmp engine %q", s)
	}
}

// NewEchoerFactory returns the factory for engine.
func NewEchoerFactory(engine Engine, logger *zap.Logger) EchoerFactory {
	if engine == EnginePinger {
		return func(context.Context) (Echoer, error) {
			return NewPingerEchoer(logger), nil
		}
	}
	return func(ctx context.Context) (Echoer, error) {
		return OpenEchoSession(ctx, logger)
	}
}

// ICMPStrategy sweeps a subnet with one echo request per usable host.
type ICMPStrategy struct {
	open      EchoerFactory
	scheduler *sweep.Scheduler
	logger    *zap.Logger
	rate      float64

	warnOnce sync.Once
}

// NewICMPStrategy creates an ICMP sweep strategy.
func NewICMPStrategy(open EchoerFactory, scheduler *sweep.Scheduler, logger *zap.Logger) *ICMPStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ICMPStrategy{
		open:      open,
		scheduler: scheduler,
		logger:    logger,
		rate:      ICMPRate,
	}
}

// Technique reports icmp_ping.
func (s *ICMPStrategy) Technique() models.DiscoveryTechnique {
	return models.TechniqueICMP
}

// Jobs builds the echo batch for sub.
func (s *ICMPStrategy) Jobs(sub models.Subnet) ([]models.ProbeJob, error) {
	return sweep.Jobs(sub, nil, s.rate)
}

// Sweep pings every usable host of sub. An oversized subnet returns
// sweep.ErrBatchTooLarge and probes nothing. When no ICMP socket can be
// opened every job fails.
func (s *ICMPStrategy) Sweep(ctx context.Context, sub models.Subnet) ([]models.ProbeResult, error) {
	jobs, err := s.Jobs(sub)
	if err != nil {
		return nil, err
	}

	echoer, err := s.open(ctx)
	if err != nil {
		s.warnOnce.Do(func() {
			s.logger.Warn("icmp unavailable, hosts will be reported offline", zap.Error(err))
		})
		return failAll(jobs), nil
	}
	defer echoer.Close()

	return s.scheduler.Run(ctx, jobs, func(ctx context.Context, job models.ProbeJob) bool {
		return echoer.Echo(ctx, job.Target)
	}), nil
}

func failAll(jobs []models.ProbeJob) []models.ProbeResult {
	results := make([]models.ProbeResult, len(jobs))
	for i := range jobs {
		results[i] = models.ProbeResult{Target: jobs[i].Target, Port: jobs[i].Port}
	}
	return results
}
