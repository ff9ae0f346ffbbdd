package vpnkeep

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
)

// NATPMPMapper implements PortMapper using the NAT-PMP protocol against a
// fixed gateway, typically the VPN server's internal address.
type NATPMPMapper struct {
	client  *natpmp.Client
	gateway net.IP
}

// NewNATPMPMapper creates a NAT-PMP mapper for the given gateway address.
// An empty address autodiscovers the default gateway from the routing table.
func NewNATPMPMapper(gatewayAddr string, timeout time.Duration) (*NATPMPMapper, error) {
	var (
		ip  net.IP
		err error
	)
	if gatewayAddr == "" {
		ip, err = gateway.DiscoverGateway()
		if err != nil {
			return nil, fmt.Errorf("gateway discovery failed: %w", err)
		}
	} else {
		ip = net.ParseIP(gatewayAddr)
		if ip == nil {
			return nil, fmt.Errorf("invalid gateway address: %q", gatewayAddr)
		}
	}

	return &NATPMPMapper{
		client:  natpmp.NewClientWithTimeout(ip, timeout),
		gateway: ip,
	}, nil
}

// Gateway returns the gateway address this mapper talks to.
func (m *NATPMPMapper) Gateway() string {
	return m.gateway.String()
}

// MapPort requests a mapping for the protocol and lease. An internal port of
// 0 lets the gateway pick both sides, which is what VPN providers that
// assign forwarded ports expect.
func (m *NATPMPMapper) MapPort(ctx context.Context, protocol string, internalPort int, lease time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !validProtocol(protocol) {
		return 0, fmt.Errorf("unsupported protocol: %s", protocol)
	}
	if internalPort < 0 || internalPort > 65535 {
		return 0, fmt.Errorf("invalid internal port: %d", internalPort)
	}

	result, err := m.client.AddPortMapping(protocol, internalPort, 0, int(lease.Seconds()))
	if err != nil {
		return 0, classifyGatewayError(err)
	}

	port := int(result.MappedExternalPort)
	if port == 0 {
		return 0, fmt.Errorf("%w: gateway assigned no external port", ErrMappingRejected)
	}
	return port, nil
}

// UnmapPort revokes a mapping by re-requesting it with a zero lease.
func (m *NATPMPMapper) UnmapPort(ctx context.Context, protocol string, externalPort int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validProtocol(protocol) {
		return fmt.Errorf("unsupported protocol: %s", protocol)
	}

	if _, err := m.client.AddPortMapping(protocol, externalPort, 0, 0); err != nil {
		return classifyGatewayError(err)
	}
	return nil
}

// GetExternalIP returns the gateway's external address.
func (m *NATPMPMapper) GetExternalIP(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := m.client.GetExternalAddress()
	if err != nil {
		return "", classifyGatewayError(err)
	}
	ip := net.IPv4(result.ExternalIPAddress[0], result.ExternalIPAddress[1],
		result.ExternalIPAddress[2], result.ExternalIPAddress[3])
	return ip.String(), nil
}

// classifyGatewayError separates transport failures from protocol-level
// rejections. The go-nat-pmp client reports timeouts as plain errors with a
// "Timed out" message, so that string is checked in addition to net.Error.
func classifyGatewayError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) || strings.Contains(err.Error(), "Timed out") {
		return fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	return fmt.Errorf("%w: %v", ErrMappingRejected, err)
}
