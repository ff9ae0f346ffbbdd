package vpnkeep

import (
	"context"
	"time"
)

// PortMapper is the narrow contract to an external port mapping client.
// Implementations talk NAT-PMP or UPnP IGD; the core never touches the wire
// protocol itself.
type PortMapper interface {
	// MapPort requests a public-port mapping for the given protocol ("tcp"
	// or "udp") and lease duration, returning the externally assigned port.
	MapPort(ctx context.Context, protocol string, internalPort int, lease time.Duration) (externalPort int, err error)

	// UnmapPort revokes a mapping previously created for the protocol and
	// external port.
	UnmapPort(ctx context.Context, protocol string, externalPort int) error

	// GetExternalIP returns the gateway's external address.
	GetExternalIP(ctx context.Context) (string, error)
}

func validProtocol(protocol string) bool {
	return protocol == "tcp" || protocol == "udp"
}
