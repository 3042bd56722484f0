package testutil

import (
	"net"
	"net/netip"
	"time"

	"github.com/HerbHall/subnetsweep/internal/subnet"
	"github.com/HerbHall/subnetsweep/pkg/models"
)

// NewInterface returns an up interface carrying the given CIDR addresses
// in order. It panics on a malformed CIDR.
func NewInterface(name string, cidrs ...string) models.NetworkInterface {
	iface := models.NetworkInterface{Name: name, IsUp: true}
	for _, c := range cidrs {
		ip, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			panic("testutil.NewInterface: " + err.Error())
		}
		iface.Addrs = append(iface.Addrs, models.InterfaceAddr{IP: ip, Mask: ipnet.Mask})
		if ip.IsLoopback() {
			iface.IsLoopback = true
		}
	}
	return iface
}

// NewSweepSummary returns a SweepSummary with sensible defaults, suitable
// for test fixtures. Override individual fields with options.
func NewSweepSummary(opts ...func(*models.SweepSummary)) models.SweepSummary {
	s := models.SweepSummary{
		RunID:     "test-run",
		Interface: "eth0",
		Subnet:    mustSubnet("192.168.1.0/24"),
		StartedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithRun sets the run ID.
func WithRun(id string) func(*models.SweepSummary) {
	return func(s *models.SweepSummary) { s.RunID = id }
}

// WithSubnet sets the swept subnet from a CIDR.
func WithSubnet(cidr string) func(*models.SweepSummary) {
	return func(s *models.SweepSummary) { s.Subnet = mustSubnet(cidr) }
}

// WithOnline sets the online hosts.
func WithOnline(addrs ...string) func(*models.SweepSummary) {
	return func(s *models.SweepSummary) {
		s.Online = s.Online[:0]
		for _, a := range addrs {
			s.Online = append(s.Online, netip.MustParseAddr(a))
		}
	}
}

// WithStartedAt sets the sweep start time.
func WithStartedAt(t time.Time) func(*models.SweepSummary) {
	return func(s *models.SweepSummary) { s.StartedAt = t }
}

func mustSubnet(cidr string) models.Subnet {
	p := netip.MustParsePrefix(cidr)
	return models.Subnet{Prefix: p.Masked(), Usable: subnet.UsableHosts(p.Bits())}
}
