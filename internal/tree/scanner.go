package tree

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/subnetsweep/internal/aggregate"
	"github.com/HerbHall/subnetsweep/internal/logging"
	"github.com/HerbHall/subnetsweep/internal/subnet"
	"github.com/HerbHall/subnetsweep/internal/sweep"
	"github.com/HerbHall/subnetsweep/pkg/models"
)

// Strategy sweeps one subnet with a single discovery technique.
type Strategy interface {
	Technique() models.DiscoveryTechnique
	Sweep(ctx context.Context, sub models.Subnet) ([]models.ProbeResult, error)
}

// InterfaceSource lists the local network interfaces.
type InterfaceSource func() ([]models.NetworkInterface, error)

// Recorder persists sweep outcomes.
type Recorder interface {
	RecordSweep(ctx context.Context, sum models.SweepSummary) error
}

// Observer receives sweep statistics.
type Observer interface {
	ObserveProbes(technique models.DiscoveryTechnique, results []models.ProbeResult)
	ObserveSweep(technique models.DiscoveryTechnique, d time.Duration)
	ObserveSkipped(technique models.DiscoveryTechnique)
}

// NeighborFinder discovers devices announcing themselves on the local link.
type NeighborFinder interface {
	Find(ctx context.Context) ([]models.Neighbor, error)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRecorder persists every sweep summary through r.
func WithRecorder(r Recorder) Option {
	return func(s *Scanner) { s.recorder = r }
}

// WithObserver reports sweep statistics to o.
func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.observer = o }
}

// WithNeighbors adds the devices found by f as children of the root.
func WithNeighbors(f NeighborFinder) Option {
	return func(s *Scanner) { s.neighbors = f }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Scanner) { s.runID = id }
}

// Scanner drives one discovery run over every local interface and records
// the results in a Tree.
type Scanner struct {
	tree       *Tree
	resolver   *subnet.Resolver
	interfaces InterfaceSource
	strategies []Strategy
	logger     *zap.Logger

	recorder  Recorder
	observer  Observer
	neighbors NeighborFinder
	runID     string
}

// NewScanner creates a Scanner that appends its report lines to the root
// of t.
func NewScanner(t *Tree, resolver *subnet.Resolver, interfaces InterfaceSource, strategies []Strategy, logger *zap.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scanner{
		tree:       t,
		resolver:   resolver,
		interfaces: interfaces,
		strategies: strategies,
		logger:     logger,
		runID:      uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunID identifies this run in persisted sweep history.
func (s *Scanner) RunID() string { return s.runID }

// Scan sweeps every subnet of every interface, in interface order, and
// appends one report line per subnet to the root. Probe failures never
// abort the scan. It returns the summary of each swept subnet.
func (s *Scanner) Scan(ctx context.Context) []models.SweepSummary {
	ifaces, err := s.interfaces()
	if err != nil {
		s.logger.Warn("failed to list network interfaces", zap.Error(err))
		ifaces = nil
	}

	var summaries []models.SweepSummary
	for _, iface := range ifaces {
		for _, sub := range s.resolver.Interface(iface) {
			if ctx.Err() != nil {
				return summaries
			}
			sum := s.sweepSubnet(ctx, iface.Name, sub)
			summaries = append(summaries, sum)
			s.record(ctx, sum)
		}
	}

	if s.neighbors != nil && ctx.Err() == nil {
		s.addNeighbors(ctx)
	}
	return summaries
}

// sweepSubnet runs every strategy over sub concurrently, then merges their
// results into the report line.
func (s *Scanner) sweepSubnet(ctx context.Context, ifaceName string, sub models.Subnet) models.SweepSummary {
	started := time.Now()
	s.logger.Info("sweeping subnet",
		zap.String("interface", ifaceName),
		zap.Stringer("subnet", sub),
		zap.Uint64("usable_hosts", sub.Usable),
	)

	results := make([][]models.ProbeResult, len(s.strategies))
	skipped := make([]bool, len(s.strategies))

	var g errgroup.Group
	for i, st := range s.strategies {
		g.Go(func() error {
			t0 := time.Now()
			res, err := st.Sweep(ctx, sub)
			switch {
			case errors.Is(err, sweep.ErrBatchTooLarge):
				skipped[i] = true
				logging.Maybe(s.logger, zapcore.DebugLevel, func() string {
					return fmt.Sprintf("skipping %s sweep of %s: %d hosts exceeds the batch limit",
						st.Technique().Label(), sub, sub.Usable)
				})
				if s.observer != nil {
					s.observer.ObserveSkipped(st.Technique())
				}
				return nil
			case err != nil:
				s.logger.Warn("sweep failed",
					zap.String("technique", string(st.Technique())),
					zap.Stringer("subnet", sub),
					zap.Error(err),
				)
				return nil
			}
			results[i] = res
			if s.observer != nil {
				s.observer.ObserveProbes(st.Technique(), res)
				s.observer.ObserveSweep(st.Technique(), time.Since(t0))
			}
			return nil
		})
	}
	_ = g.Wait()

	var online aggregate.HostSet
	for _, res := range results {
		online.Merge(res...)
	}
	line := aggregate.ReportLine(sub, &online)
	if err := s.tree.AppendLine(s.tree.Root(), line); err != nil {
		s.logger.Error("append report line", zap.Error(err))
	}

	allSkipped := len(s.strategies) > 0
	for _, sk := range skipped {
		allSkipped = allSkipped && sk
	}

	return models.SweepSummary{
		RunID:     s.runID,
		Interface: ifaceName,
		Subnet:    sub,
		Online:    online.Sorted(),
		Skipped:   allSkipped,
		StartedAt: started,
		Duration:  time.Since(started),
	}
}

func (s *Scanner) record(ctx context.Context, sum models.SweepSummary) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSweep(ctx, sum); err != nil {
		s.logger.Warn("failed to record sweep",
			zap.Stringer("subnet", sum.Subnet),
			zap.Error(err),
		)
	}
}

func (s *Scanner) addNeighbors(ctx context.Context) {
	found, err := s.neighbors.Find(ctx)
	if err != nil {
		s.logger.Warn("neighbor discovery failed", zap.Error(err))
	}
	for _, n := range found {
		if _, err := s.tree.AddChild(s.tree.Root(), models.TechniqueMDNS, n.Description()); err != nil {
			s.logger.Error("add neighbor", zap.Error(err))
		}
	}
	s.logger.Info("neighbor discovery complete", zap.Int("neighbors", len(found)))
}
