package models

import (
	"net"
	"net/netip"
	"time"
)

// NetworkInterface represents a network interface on the scanning host.
type NetworkInterface struct {
	Name       string          `json:"name"`
	Index      int             `json:"index"`
	Addrs      []InterfaceAddr `json:"addresses"`
	IsUp       bool            `json:"is_up"`
	IsLoopback bool            `json:"is_loopback"`
}

// InterfaceAddr is one address assigned to an interface. A nil or all-zero
// Mask means host-only.
type InterfaceAddr struct {
	IP   net.IP     `json:"ip"`
	Mask net.IPMask `json:"mask"`
}

// Subnet represents a scannable IPv4 range.
type Subnet struct {
	Prefix netip.Prefix `json:"prefix"`
	Usable uint64       `json:"usable"`
}

func (s Subnet) String() string {
	return s.Prefix.String()
}

// ProbeJob is one scheduled probe. Delay and Timeout are derived once per
// batch and shared by every job in it.
type ProbeJob struct {
	Target  netip.Addr
	Port    uint16 // 0 when the technique has no port
	Delay   time.Duration
	Timeout time.Duration
}

// ProbeResult is the outcome of one ProbeJob. Success false means offline
// for this technique, nothing more.
type ProbeResult struct {
	Target  netip.Addr `json:"target"`
	Port    uint16     `json:"port,omitempty"`
	Success bool       `json:"success"`
}
