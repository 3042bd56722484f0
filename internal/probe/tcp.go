package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/subnetsweep/internal/logging"
	"github.com/HerbHall/subnetsweep/internal/sweep"
	"github.com/HerbHall/subnetsweep/pkg/models"
)

// TCPRate is the issue rate of connect attempts, in probes per second.
const TCPRate = 8096

// DefaultPorts are the ports every usable host is probed on.
var DefaultPorts = []uint16{22, 80, 443}

// Dialer opens outbound connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPStrategy sweeps a subnet with connect attempts on a fixed port set.
type TCPStrategy struct {
	dialer    Dialer
	scheduler *sweep.Scheduler
	logger    *zap.Logger
	ports     []uint16
	rate      float64
}

// NewTCPStrategy creates a TCP connect strategy over DefaultPorts. A nil
// dialer selects a zero net.Dialer.
func NewTCPStrategy(dialer Dialer, scheduler *sweep.Scheduler, logger *zap.Logger) *TCPStrategy {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPStrategy{
		dialer:    dialer,
		scheduler: scheduler,
		logger:    logger,
		ports:     DefaultPorts,
		rate:      TCPRate,
	}
}

// Technique reports tcp_port_scan.
func (s *TCPStrategy) Technique() models.DiscoveryTechnique {
	return models.TechniqueTCP
}

// Ports returns the probed port set.
func (s *TCPStrategy) Ports() []uint16 { return s.ports }

// Jobs builds one job per (host, port) of sub.
func (s *TCPStrategy) Jobs(sub models.Subnet) ([]models.ProbeJob, error) {
	return sweep.Jobs(sub, s.ports, s.rate)
}

// Sweep attempts a connection to every (host, port) pair of sub. An
// oversized subnet returns sweep.ErrBatchTooLarge and probes nothing.
func (s *TCPStrategy) Sweep(ctx context.Context, sub models.Subnet) ([]models.ProbeResult, error) {
	jobs, err := s.Jobs(sub)
	if err != nil {
		return nil, err
	}
	return s.scheduler.Run(ctx, jobs, s.connect), nil
}

func (s *TCPStrategy) connect(ctx context.Context, job models.ProbeJob) bool {
	addr := netip.AddrPortFrom(job.Target, job.Port).String()
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()

	logging.Maybe(s.logger, zapcore.DebugLevel, func() string {
		return fmt.Sprintf("%s is listening on %d", job.Target, job.Port)
	})
	return true
}
