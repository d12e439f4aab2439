// Package network inspects and applies device network settings.
package network

import (
	"fmt"
	"net"
	"strings"
)

// Interface is a snapshot of one up, non-loopback interface with an IPv4
// address.
type Interface struct {
	Name      string `json:"name"`
	IPAddress string `json:"ipAddress"`
	Netmask   string `json:"netmask"`
	Broadcast string `json:"broadcast"`
}

// ActiveInterfaces lists every up, non-loopback interface carrying an
// IPv4 address.
func ActiveInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			out = append(out, Interface{
				Name:      iface.Name,
				IPAddress: ip4.String(),
				Netmask:   FormatNetmask(ipnet.Mask),
				Broadcast: BroadcastOf(ip4.String()),
			})
		}
	}
	return out, nil
}

// FormatNetmask renders an IPv4 mask in dotted-quad form.
func FormatNetmask(mask net.IPMask) string {
	if len(mask) != 4 {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d", mask[0], mask[1], mask[2], mask[3])
}

// BroadcastOf returns the dotted-quad address with the last octet set to
// 255. Returns "" when addr is not a dotted-quad IPv4 address.
func BroadcastOf(addr string) string {
	octets := strings.Split(addr, ".")
	if len(octets) != 4 {
		return ""
	}
	octets[3] = "255"
	return strings.Join(octets, ".")
}
