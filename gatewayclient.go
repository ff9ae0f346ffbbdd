package vpnkeep

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PortAssignment is the outcome of one full mapping cycle: one UDP and one
// TCP request against the gateway.
type PortAssignment struct {
	TCP int
	UDP int
}

// Port returns the authoritative port of the assignment. When the two
// protocols disagree the TCP port wins; callers should check Mismatched to
// surface a warning when that happens.
func (a PortAssignment) Port() int {
	return a.TCP
}

// Mismatched reports whether the gateway assigned different ports to the two
// protocols. UDP traffic then arrives on an unmanaged port; this is treated
// as a warning rather than a failure.
func (a PortAssignment) Mismatched() bool {
	return a.TCP != a.UDP
}

// Mapping is the gateway-facing contract the session controller drives.
type Mapping interface {
	RequestMapping(ctx context.Context) (PortAssignment, error)
	Release(ctx context.Context)
}

// GatewayClient runs mapping cycles against a single gateway through a
// PortMapper backend. It remembers the last assignment only so Release can
// address the right ports.
type GatewayClient struct {
	mapper       PortMapper
	internalPort int
	lease        time.Duration
	log          *slog.Logger

	last PortAssignment
}

// NewGatewayClient wraps a PortMapper with the lease policy of this session.
func NewGatewayClient(mapper PortMapper, internalPort int, lease time.Duration, log *slog.Logger) *GatewayClient {
	if log == nil {
		log = slog.Default()
	}
	return &GatewayClient{
		mapper:       mapper,
		internalPort: internalPort,
		lease:        lease,
		log:          log,
	}
}

// RequestMapping issues one UDP and one TCP mapping request. Both must
// succeed; a failure of either fails the whole cycle and no partial mapping
// state is retained.
func (g *GatewayClient) RequestMapping(ctx context.Context) (PortAssignment, error) {
	udp, err := g.mapper.MapPort(ctx, "udp", g.internalPort, g.lease)
	if err != nil {
		return PortAssignment{}, fmt.Errorf("udp mapping: %w", err)
	}

	tcp, err := g.mapper.MapPort(ctx, "tcp", g.internalPort, g.lease)
	if err != nil {
		return PortAssignment{}, fmt.Errorf("tcp mapping: %w", err)
	}

	assignment := PortAssignment{TCP: tcp, UDP: udp}
	if assignment.Mismatched() {
		g.log.Warn("tcp and udp mappings disagree, using the tcp port",
			"tcpPort", tcp,
			"udpPort", udp)
	}

	g.last = assignment
	return assignment, nil
}

// Release revokes the last assignment for both protocols by re-requesting
// with a zero lease. It is best-effort: leases expire on their own, so
// failures are logged and otherwise ignored.
func (g *GatewayClient) Release(ctx context.Context) {
	if g.last == (PortAssignment{}) {
		return
	}

	for protocol, port := range map[string]int{"udp": g.last.UDP, "tcp": g.last.TCP} {
		if err := g.mapper.UnmapPort(ctx, protocol, port); err != nil {
			g.log.Warn("failed to release port mapping",
				"protocol", protocol,
				"port", port,
				"error", err)
		}
	}
	g.last = PortAssignment{}
}
