package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"time"

	mapsutil "github.com/projectdiscovery/utils/maps"
	"go.uber.org/zap"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/time/rate"
)

const (
	// echoTTL is the time-to-live of every echo request.
	echoTTL = 128

	protocolICMP = 1
)

// echoPayload is the fixed 8-byte body of every echo request.
var echoPayload = []byte("SNTSWEEP")

// pendingEcho is a request waiting for its reply.
type pendingEcho struct {
	target netip.Addr
	reply  chan struct{}
	once   sync.Once
}

func (p *pendingEcho) answer() {
	p.once.Do(func() { close(p.reply) })
}

// EchoSession multiplexes echo requests over a single ICMP socket. One
// reader goroutine matches replies to waiting requests by sequence number,
// identifier and peer address.
type EchoSession struct {
	conn   net.PacketConn
	raw    bool
	id     int
	seq    atomic.Uint32
	logger *zap.Logger

	pending *mapsutil.SyncLockMap[int, *pendingEcho]

	writeErrs rate.Sometimes
	closed    chan struct{}
	closeOnce sync.Once
	readDone  chan struct{}
}

// OpenEchoSession opens a privileged raw ICMP socket with don't-fragment
// set, falling back to the unprivileged datagram ICMP socket (no DF) when
// raw sockets are not permitted.
func OpenEchoSession(ctx context.Context, logger *zap.Logger) (*EchoSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, rawErr := listenRaw(ctx)
	if rawErr == nil {
		return newEchoSession(conn, true, logger), nil
	}
	logger.Debug("raw icmp socket unavailable, trying datagram socket", zap.Error(rawErr))

	dgram, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("open icmp socket: %w", errors.Join(rawErr, err))
	}
	if err := dgram.IPv4PacketConn().SetTTL(echoTTL); err != nil {
		logger.Debug("failed to set TTL", zap.Int("ttl", echoTTL), zap.Error(err))
	}
	return newEchoSession(dgram, false, logger), nil
}

func listenRaw(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: setDontFragment}
	conn, err := lc.ListenPacket(ctx, "ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, err
	}
	if err := ipv4.NewPacketConn(conn).SetTTL(echoTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set ttl: %w", err)
	}
	return conn, nil
}

// newEchoSession starts the reader on conn. raw selects raw-socket
// semantics: the kernel keeps our identifier and peers are *net.IPAddr.
// On datagram sockets the kernel rewrites the identifier, so only sequence
// and peer are matched.
func newEchoSession(conn net.PacketConn, raw bool, logger *zap.Logger) *EchoSession {
	s := &EchoSession{
		conn:      conn,
		raw:       raw,
		id:        os.Getpid() & 0xffff,
		logger:    logger,
		pending:   mapsutil.NewSyncLockMap[int, *pendingEcho](),
		writeErrs: rate.Sometimes{First: 3, Interval: 10 * time.Second},
		closed:    make(chan struct{}),
		readDone:  make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Echo sends one echo request to target and waits for its reply until ctx
// is done or the session closes.
func (s *EchoSession) Echo(ctx context.Context, target netip.Addr) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	seq := int(s.seq.Add(1) & 0xffff)
	p := &pendingEcho{target: target, reply: make(chan struct{})}
	_ = s.pending.Set(seq, p)
	defer s.pending.Delete(seq)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   s.id,
			Seq:  seq,
			Data: echoPayload,
		},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return false
	}

	if _, err := s.conn.WriteTo(b, s.destination(target)); err != nil {
		s.writeErrs.Do(func() {
			s.logger.Debug("failed to send echo request",
				zap.Stringer("target", target),
				zap.Error(err),
			)
		})
		return false
	}

	select {
	case <-p.reply:
		return true
	case <-ctx.Done():
		return false
	case <-s.closed:
		return false
	}
}

// Close closes the socket and waits for the reader to exit.
func (s *EchoSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
		<-s.readDone
	})
	return err
}

func (s *EchoSession) destination(target netip.Addr) net.Addr {
	ip := net.IP(target.AsSlice())
	if s.raw {
		return &net.IPAddr{IP: ip}
	}
	return &net.UDPAddr{IP: ip}
}

func (s *EchoSession) readLoop() {
	defer close(s.readDone)

	buf := make([]byte, 1500)
	for {
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.dispatch(buf[:n], peer)
	}
}

// dispatch wakes the request answered by the packet in b, if any.
func (s *EchoSession) dispatch(b []byte, peer net.Addr) {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
		return
	}
	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return
	}
	if s.raw && echo.ID != s.id {
		return
	}

	p, ok := s.pending.Get(echo.Seq)
	if !ok {
		return
	}
	from, ok := peerAddr(peer)
	if !ok || from != p.target {
		return
	}
	p.answer()
}

// peerAddr extracts the IPv4 source of a received packet.
func peerAddr(peer net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch a := peer.(type) {
	case *net.IPAddr:
		ip = a.IP
	case *net.UDPAddr:
		ip = a.IP
	default:
		return netip.Addr{}, false
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
