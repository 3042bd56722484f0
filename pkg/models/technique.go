package models

// DiscoveryTechnique indicates how a scan entity was discovered.
type DiscoveryTechnique string

const (
	TechniqueNone        DiscoveryTechnique = "none"
	TechniqueThisMachine DiscoveryTechnique = "this_machine"
	TechniqueICMP        DiscoveryTechnique = "icmp_ping"
	TechniqueTCP         DiscoveryTechnique = "tcp_port_scan"
	TechniqueUDP         DiscoveryTechnique = "udp_port_scan"
	TechniqueMDNS        DiscoveryTechnique = "mdns"
)

// ScanEntity is one node of the discovery tree.
//
// Children are owned by the node and referenced by arena index. Parent is a
// non-owning back-reference (NoParent for the root).
type ScanEntity struct {
	Technique   DiscoveryTechnique `json:"technique"`
	Hardware    string             `json:"hardware"`
	ReportLines []string           `json:"report_lines,omitempty"`
	Children    []NodeID           `json:"children,omitempty"`
	Parent      NodeID             `json:"parent"`
}

// NodeID indexes a ScanEntity inside its tree.
type NodeID int

// NoParent marks the root node.
const NoParent NodeID = -1
