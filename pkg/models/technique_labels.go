package models

// TechniqueLabel maps a DiscoveryTechnique to the label printed in reports.
var TechniqueLabel = map[DiscoveryTechnique]string{
	TechniqueNone:        "None",
	TechniqueThisMachine: "ThisMachine",
	TechniqueICMP:        "ICMP_Ping",
	TechniqueTCP:         "TCPPortScan",
	TechniqueUDP:         "UDPPortScan",
	TechniqueMDNS:        "mDNS",
}

// Label returns the report label for a DiscoveryTechnique.
// Returns "None" for unrecognised techniques.
func (t DiscoveryTechnique) Label() string {
	if label, ok := TechniqueLabel[t]; ok {
		return label
	}
	return TechniqueLabel[TechniqueNone]
}
