package models

import (
	"net/netip"
	"time"
)

// SweepSummary is the outcome of sweeping one subnet during a run.
type SweepSummary struct {
	RunID     string        `json:"run_id"`
	Interface string        `json:"interface"`
	Subnet    Subnet        `json:"subnet"`
	Online    []netip.Addr  `json:"online"`
	Skipped   bool          `json:"skipped"` // batch too large, nothing probed
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Neighbor is a device that announced itself on the local link.
type Neighbor struct {
	Name    string     `json:"name"`
	Host    string     `json:"host"`
	Addr    netip.Addr `json:"addr"`
	Service string     `json:"service"`
}

// Description is the hardware description shown for the neighbor's node.
func (n Neighbor) Description() string {
	host := n.Host
	if host == "" {
		host = n.Name
	}
	if !n.Addr.IsValid() {
		return host + " (" + n.Service + ")"
	}
	return host + " " + n.Addr.String() + " (" + n.Service + ")"
}
