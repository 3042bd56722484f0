package probe

import (
	"context"
	"net/netip"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// PingerEchoer pings each target with its own pro-bing pinger. It needs no
// shared state, at the cost of one socket per in-flight probe.
type PingerEchoer struct {
	privileged bool
	ttl        int
	logger     *zap.Logger
}

// NewPingerEchoer creates a pro-bing backed Echoer.
func NewPingerEchoer(logger *zap.Logger) *PingerEchoer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PingerEchoer{
		privileged: runtime.GOOS == "windows",
		ttl:        echoTTL,
		logger:     logger,
	}
}

// Echo sends a single echo request and waits for the reply until ctx is
// done.
func (p *PingerEchoer) Echo(ctx context.Context, target netip.Addr) bool {
	pinger, err := probing.NewPinger(target.String())
	if err != nil {
		p.logger.Debug("create pinger", zap.Stringer("target", target), zap.Error(err))
		return false
	}

	pinger.Count = 1
	pinger.TTL = p.ttl
	pinger.SetPrivileged(p.privileged)
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		pinger.Timeout = remaining
	}

	// Run pinger in a goroutine for context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			return false
		}
		return pinger.Statistics().PacketsRecv > 0
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return false
	}
}

// Close is a no-op; each pinger releases its socket when Run returns.
func (p *PingerEchoer) Close() error { return nil }
