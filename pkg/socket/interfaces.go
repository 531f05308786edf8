package socket

import (
	"fmt"
	"net"
	"net/netip"
)

// ListMulticastInterfaces returns the interfaces that are up and support
// multicast
func ListMulticastInterfaces() ([]net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var result []net.Interface
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		result = append(result, ifi)
	}
	return result, nil
}

// HasFamily reports whether ifi carries at least one address of family
func HasFamily(ifi net.Interface, family AddressFamily) bool {
	addrs, err := ifi.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		if FamilyOf(addr) == family {
			return true
		}
	}
	return false
}
