//go:build !windows

// Package neighbor finds devices that announce services on the local link
// over multicast DNS.
package neighbor

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// DefaultServices lists well-known mDNS service types to query.
var DefaultServices = []string{
	"_http._tcp",
	"_https._tcp",
	"_ssh._tcp",
	"_smb._tcp",
	"_nfs._tcp",
	"_ipp._tcp",
	"_printer._tcp",
	"_airplay._tcp",
	"_googlecast._tcp",
	"_workstation._tcp",
}

// queryFunc runs one mDNS query, writing answers to params.Entries.
type queryFunc func(params *mdns.QueryParam) error

// Finder queries a fixed list of mDNS service types and reports each
// answering address once.
type Finder struct {
	services []string
	timeout  time.Duration
	query    queryFunc
	logger   *zap.Logger
}

// NewFinder creates a Finder. An empty services list selects
// DefaultServices; a non-positive timeout selects three seconds per service.
func NewFinder(services []string, timeout time.Duration, logger *zap.Logger) *Finder {
	if len(services) == 0 {
		services = DefaultServices
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{
		services: services,
		timeout:  timeout,
		query:    mdns.Query,
		logger:   logger,
	}
}

// Find queries every service in turn and returns the neighbors found,
// ordered by first answer. It stops early when ctx is done.
func (f *Finder) Find(ctx context.Context) ([]models.Neighbor, error) {
	f.logger.Debug("mDNS discovery starting", zap.Int("service_count", len(f.services)))

	seen := make(map[netip.Addr]struct{})
	var found []models.Neighbor
	for _, svc := range f.services {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		for _, n := range f.queryService(svc) {
			if _, dup := seen[n.Addr]; dup {
				continue
			}
			seen[n.Addr] = struct{}{}
			found = append(found, n)
		}
	}

	f.logger.Debug("mDNS discovery complete", zap.Int("neighbors", len(found)))
	return found, nil
}

// queryService runs a single mDNS query and converts its answers.
func (f *Finder) queryService(service string) []models.Neighbor {
	entries := make(chan *mdns.ServiceEntry, 16)

	var out []models.Neighbor
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			if n, ok := toNeighbor(entry, service); ok {
				out = append(out, n)
			}
		}
	}()

	params := mdns.DefaultParams(service)
	params.Timeout = f.timeout
	params.Entries = entries
	params.DisableIPv6 = true

	if err := f.query(params); err != nil {
		f.logger.Debug("mDNS query failed",
			zap.String("service", service),
			zap.Error(err),
		)
	}
	close(entries)
	wg.Wait()

	return out
}

// toNeighbor converts an mDNS service entry. ok is false for entries
// without a usable IPv4 address.
func toNeighbor(entry *mdns.ServiceEntry, service string) (models.Neighbor, bool) {
	if entry == nil {
		return models.Neighbor{}, false
	}
	addr, ok := entryAddr(entry)
	if !ok {
		return models.Neighbor{}, false
	}
	return models.Neighbor{
		Name:    entry.Name,
		Host:    strings.TrimSuffix(entry.Host, "."),
		Addr:    addr,
		Service: service,
	}, true
}

// entryAddr returns the best IPv4 address of an entry.
func entryAddr(entry *mdns.ServiceEntry) (netip.Addr, bool) {
	for _, ip := range []net.IP{entry.AddrV4, entry.Addr} {
		if ip == nil || ip.IsUnspecified() {
			continue
		}
		if a, ok := netip.AddrFromSlice(ip); ok && a.Unmap().Is4() {
			return a.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
