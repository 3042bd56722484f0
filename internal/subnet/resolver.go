// Package subnet turns local interface addresses into scannable IPv4 ranges.
package subnet

import (
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/zap"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// LoopbackPolicy selects how far a loopback address excludes scanning.
type LoopbackPolicy string

const (
	// ExcludeInterface stops processing the interface at its first loopback
	// address. Addresses listed before it are still resolved.
	ExcludeInterface LoopbackPolicy = "interface"

	// ExcludeAddress skips only the loopback address itself.
	ExcludeAddress LoopbackPolicy = "address"
)

// ParseLoopbackPolicy validates a configured policy name.
func ParseLoopbackPolicy(s string) (LoopbackPolicy, error) {
	switch p := LoopbackPolicy(s); p {
	case ExcludeInterface, ExcludeAddress:
		return p, nil
	case "":
		return ExcludeInterface, nil
	default:
		return "", fmt.Errorf("unknown loopback policy %q", s)
	}
}

// UsableHosts returns the number of usable host addresses in an IPv4 prefix
// of the given length. /32 has one, /31 has two (point-to-point), anything
// shorter excludes the network and broadcast addresses.
//
// It panics if prefixLen is outside [0, 32].
func UsableHosts(prefixLen int) uint64 {
	if prefixLen < 0 || prefixLen > 32 {
		panic(fmt.Sprintf("subnet: prefix length %d out of range [0, 32]", prefixLen))
	}
	switch prefixLen {
	case 32:
		return 1
	case 31:
		return 2
	}
	return (uint64(1) << (32 - prefixLen)) - 2
}

// Resolver derives subnets from interface addresses.
type Resolver struct {
	policy LoopbackPolicy
	logger *zap.Logger
}

// NewResolver creates a Resolver with the given loopback policy.
func NewResolver(policy LoopbackPolicy, logger *zap.Logger) *Resolver {
	if policy == "" {
		policy = ExcludeInterface
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{policy: policy, logger: logger}
}

// Interface resolves every address of iface in order, applying the loopback
// policy. It returns zero or one subnet per address.
func (r *Resolver) Interface(iface models.NetworkInterface) []models.Subnet {
	var subnets []models.Subnet
	for _, addr := range iface.Addrs {
		if addr.IP.IsLoopback() {
			if r.policy == ExcludeAddress {
				r.logger.Debug("skipping loopback address",
					zap.String("interface", iface.Name),
					zap.Stringer("ip", addr.IP),
				)
				continue
			}
			r.logger.Debug("excluding interface with loopback address",
				zap.String("interface", iface.Name),
				zap.Stringer("ip", addr.IP),
			)
			return subnets
		}

		s, ok := r.Resolve(addr)
		if !ok {
			continue
		}
		subnets = append(subnets, s)
	}
	return subnets
}

// Resolve derives the subnet containing addr. ok is false for loopback and
// IPv6 addresses and for address/mask combinations that do not describe an
// IPv4 prefix.
func (r *Resolver) Resolve(addr models.InterfaceAddr) (s models.Subnet, ok bool) {
	if addr.IP.IsLoopback() {
		return models.Subnet{}, false
	}

	ip4 := addr.IP.To4()
	if ip4 == nil {
		if addr.IP != nil {
			r.logger.Debug("skipping IPv6 address", zap.Stringer("ip", addr.IP))
		}
		return models.Subnet{}, false
	}

	ones, ok := prefixLen(addr.Mask)
	if !ok {
		return models.Subnet{}, false
	}

	prefix := netip.PrefixFrom(netip.AddrFrom4([4]byte(ip4)), ones).Masked()
	return models.Subnet{Prefix: prefix, Usable: UsableHosts(ones)}, true
}

// prefixLen returns the IPv4 prefix length of mask. A nil or all-zero mask
// is host-only. IPv4-in-IPv6 masks (16 bytes, top 96 bits set) are accepted.
func prefixLen(mask net.IPMask) (int, bool) {
	if len(mask) == 0 || isZero(mask) {
		return 32, true
	}
	ones, bits := mask.Size()
	switch {
	case bits == 32:
		return ones, true
	case bits == 128 && ones >= 96:
		return ones - 96, true
	default:
		// Non-canonical mask or an IPv6 mask on an IPv4 address.
		return 0, false
	}
}

func isZero(mask net.IPMask) bool {
	for _, b := range mask {
		if b != 0 {
			return false
		}
	}
	return true
}
