// Package aggregate merges probe outcomes into the set of online hosts of a
// subnet and formats its report line.
package aggregate

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// HostSet is a set of online addresses. The zero value is empty and ready
// to use. It is not safe for concurrent use.
type HostSet struct {
	hosts map[netip.Addr]struct{}
}

// Merge adds the targets of every successful result. Merging is idempotent
// and order does not matter.
func (s *HostSet) Merge(results ...models.ProbeResult) {
	for _, r := range results {
		if !r.Success {
			continue
		}
		if s.hosts == nil {
			s.hosts = make(map[netip.Addr]struct{})
		}
		s.hosts[r.Target] = struct{}{}
	}
}

// Union adds every host of other.
func (s *HostSet) Union(other *HostSet) {
	if other == nil {
		return
	}
	for a := range other.hosts {
		if s.hosts == nil {
			s.hosts = make(map[netip.Addr]struct{}, len(other.hosts))
		}
		s.hosts[a] = struct{}{}
	}
}

// Contains reports whether addr is online. A nil set is empty.
func (s *HostSet) Contains(addr netip.Addr) bool {
	if s == nil {
		return false
	}
	_, ok := s.hosts[addr]
	return ok
}

// Len returns the number of online hosts. A nil set is empty.
func (s *HostSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.hosts)
}

// Sorted returns the hosts in ascending address order.
func (s *HostSet) Sorted() []netip.Addr {
	out := make([]netip.Addr, 0, s.Len())
	if s == nil {
		return out
	}
	for a := range s.hosts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b netip.Addr) int { return a.Compare(b) })
	return out
}

// Equal reports whether both sets hold the same hosts. A nil set equals
// an empty one.
func (s *HostSet) Equal(other *HostSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s == nil {
		return true
	}
	for a := range s.hosts {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// ReportLine formats the summary of one swept subnet, for example
// "192.168.1.8/30 with 2 hosts, 1 are online: [192.168.1.9]".
func ReportLine(sub models.Subnet, online *HostSet) string {
	hosts := online.Sorted()
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.String()
	}
	return fmt.Sprintf("%s with %d hosts, %d are online: [%s]",
		sub, sub.Usable, len(hosts), strings.Join(names, ", "))
}
