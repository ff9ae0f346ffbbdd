package vpnkeep

import (
	"log/slog"
	"net"
)

// Detector reports the currently connected VPN tunnel interface, if any.
type Detector interface {
	Detect() (name string, ok bool)
}

// InterfaceDetector finds the first active point-to-point interface. Most
// VPN tunnels (WireGuard, OpenVPN tun) present as point-to-point links, so
// their presence is the "VPN connected" signal.
type InterfaceDetector struct {
	interfaces func() ([]net.Interface, error)
}

// NewInterfaceDetector creates a detector backed by the host's interface
// table.
func NewInterfaceDetector() *InterfaceDetector {
	return &InterfaceDetector{interfaces: net.Interfaces}
}

// Detect returns the first point-to-point interface that is up, in
// enumeration order. It returns ok=false when no tunnel is present; an
// enumeration failure is treated the same way rather than surfaced as an
// error, since the loop polls again shortly.
func (d *InterfaceDetector) Detect() (string, bool) {
	ifaces, err := d.interfaces()
	if err != nil {
		slog.Debug("interface enumeration failed", "error", err)
		return "", false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagPointToPoint == 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		return iface.Name, true
	}

	return "", false
}
