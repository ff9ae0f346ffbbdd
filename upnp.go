package vpnkeep

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway2"
)

// upnpClient is the subset of IGD operations the mapper needs. It is
// satisfied by WANIPConnection1, WANIPConnection2 and WANPPPConnection1
// service clients.
type upnpClient interface {
	AddPortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
		NewInternalPort uint16,
		NewInternalClient string,
		NewEnabled bool,
		NewPortMappingDescription string,
		NewLeaseDuration uint32,
	) error
	DeletePortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
	) error
	GetExternalIPAddress() (string, error)
}

// UPnPMapper implements PortMapper using the UPnP IGD protocol, for gateways
// that do not speak NAT-PMP. Unlike NAT-PMP it cannot let the gateway choose
// the port, so an explicit internal port is required.
type UPnPMapper struct {
	client  upnpClient
	localIP func() (string, error)
}

// NewUPnPMapper discovers an IGD device on the local network, preferring the
// newest service variant: WANIPConnection2, then WANIPConnection1 (cable and
// fiber routers), then WANPPPConnection1 (PPPoE/DSL).
func NewUPnPMapper() (*UPnPMapper, error) {
	return NewUPnPMapperContext(context.Background())
}

// NewUPnPMapperContext is NewUPnPMapper with cancellation support for the
// discovery process, which can take several seconds.
func NewUPnPMapperContext(ctx context.Context) (*UPnPMapper, error) {
	discoverers := []func(context.Context) (upnpClient, error){
		discoverWANIPConnection2,
		discoverWANIPConnection1,
		discoverWANPPPConnection1,
	}
	for _, discover := range discoverers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during UPnP discovery: %w", err)
		}
		if client, err := discover(ctx); err == nil {
			return &UPnPMapper{client: client}, nil
		}
	}
	return nil, fmt.Errorf("no UPnP IGD devices found (tried WANIPConnection2, WANIPConnection1, WANPPPConnection1)")
}

func discoverWANIPConnection2(ctx context.Context) (upnpClient, error) {
	clients, _, err := internetgateway2.NewWANIPConnection2ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no WANIPConnection2 devices found")
	}
	return clients[0], nil
}

func discoverWANIPConnection1(ctx context.Context) (upnpClient, error) {
	clients, _, err := internetgateway2.NewWANIPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no WANIPConnection1 devices found")
	}
	return clients[0], nil
}

func discoverWANPPPConnection1(ctx context.Context) (upnpClient, error) {
	clients, _, err := internetgateway2.NewWANPPPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no WANPPPConnection1 devices found")
	}
	return clients[0], nil
}

// MapPort creates a mapping for internalPort on both sides of the gateway.
func (u *UPnPMapper) MapPort(ctx context.Context, protocol string, internalPort int, lease time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !validProtocol(protocol) {
		return 0, fmt.Errorf("unsupported protocol: %s", protocol)
	}
	if internalPort < 1 || internalPort > 65535 {
		return 0, fmt.Errorf("%w: UPnP requires an explicit internal port, got %d", ErrMappingRejected, internalPort)
	}

	lookup := u.localIP
	if lookup == nil {
		lookup = routeLocalIP
	}
	localIP, err := lookup()
	if err != nil {
		return 0, fmt.Errorf("%w: local IP lookup failed: %v", ErrGatewayUnreachable, err)
	}

	err = u.client.AddPortMapping(
		"",                   // remote host (any)
		uint16(internalPort), // external port
		upperProtocol(protocol),
		uint16(internalPort), // internal port
		localIP,
		true, // enabled
		"vpnkeep",
		uint32(lease.Seconds()),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMappingRejected, err)
	}

	return internalPort, nil
}

// UnmapPort removes a mapping previously created by MapPort.
func (u *UPnPMapper) UnmapPort(ctx context.Context, protocol string, externalPort int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if externalPort < 1 || externalPort > 65535 {
		return fmt.Errorf("invalid external port: %d", externalPort)
	}
	if err := u.client.DeletePortMapping("", uint16(externalPort), upperProtocol(protocol)); err != nil {
		return fmt.Errorf("%w: %v", ErrMappingRejected, err)
	}
	return nil
}

// GetExternalIP returns the gateway's external address.
func (u *UPnPMapper) GetExternalIP(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ip, err := u.client.GetExternalIPAddress()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	return ip, nil
}

// routeLocalIP determines which local address would route toward the
// internet, without sending any packets.
func routeLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type: %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// upperProtocol converts "tcp"/"udp" to the uppercase form IGD expects.
func upperProtocol(protocol string) string {
	if protocol == "tcp" {
		return "TCP"
	}
	return "UDP"
}
