package discovery

import (
	"net"

	"github.com/google/uuid"
)

const fallbackAddress = "127.0.0.1"

// DetectLocalAddress returns the first IPv4 address of an up, non-loopback
// interface, or 127.0.0.1 when there is none.
func DetectLocalAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fallbackAddress
	}

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
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}
	return fallbackAddress
}

// DefaultNickName returns "peer-" followed by eight random hex characters.
func DefaultNickName() string {
	return "peer-" + uuid.NewString()[:8]
}
