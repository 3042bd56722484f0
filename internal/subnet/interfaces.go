package subnet

import (
	"fmt"
	"net"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// SystemInterfaces lists the host's network interfaces with their addresses
// in the order the OS reports them. Interfaces whose addresses cannot be
// read are returned without addresses.
func SystemInterfaces() ([]models.NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	result := make([]models.NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := models.NetworkInterface{
			Name:       iface.Name,
			Index:      iface.Index,
			IsUp:       iface.Flags&net.FlagUp != 0,
			IsLoopback: iface.Flags&net.FlagLoopback != 0,
		}

		addrs, err := iface.Addrs()
		if err == nil {
			ni.Addrs = convertAddrs(addrs)
		}
		result = append(result, ni)
	}
	return result, nil
}

func convertAddrs(addrs []net.Addr) []models.InterfaceAddr {
	out := make([]models.InterfaceAddr, 0, len(addrs))
	for _, a := range addrs {
		switch v := a.(type) {
		case *net.IPNet:
			out = append(out, models.InterfaceAddr{IP: v.IP, Mask: v.Mask})
		case *net.IPAddr:
			// No mask reported: host-only.
			out = append(out, models.InterfaceAddr{IP: v.IP})
		}
	}
	return out
}
