package vpnkeep

import "errors"

// Error kinds the polling loop distinguishes. Everything else is wrapped
// detail around one of these.
var (
	// ErrGatewayUnreachable indicates the mapping request never got a usable
	// answer from the gateway (transport failure or timeout).
	ErrGatewayUnreachable = errors.New("gateway unreachable")

	// ErrMappingRejected indicates the gateway answered but refused the
	// mapping or returned an unusable result.
	ErrMappingRejected = errors.New("mapping rejected")

	// ErrFirewallInactive indicates the firewall service is not running.
	// Firewall operations degrade to no-ops; this is never fatal.
	ErrFirewallInactive = errors.New("firewall service not running")
)
