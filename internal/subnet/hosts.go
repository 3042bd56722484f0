package subnet

import (
	"encoding/binary"
	"net/netip"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// Hosts lists the usable addresses of s in ascending order. Callers must
// bound s.Usable before calling; a /8 yields sixteen million addresses.
func Hosts(s models.Subnet) []netip.Addr {
	p := s.Prefix.Masked()
	if !p.Addr().Is4() {
		return nil
	}

	bits := p.Bits()
	base := p.Addr().As4()
	network := binary.BigEndian.Uint32(base[:])

	var first, last uint32
	switch bits {
	case 32:
		first, last = network, network
	case 31:
		first, last = network, network+1
	default:
		size := uint32(1) << (32 - bits)
		first, last = network+1, network+size-2
	}

	hosts := make([]netip.Addr, 0, int(last-first)+1)
	for v := first; ; v++ {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		hosts = append(hosts, netip.AddrFrom4(b))
		if v == last {
			break
		}
	}
	return hosts
}
