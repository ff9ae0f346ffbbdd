package vpnkeep

import "time"

// Status is the externally visible state of the session. It is derived from
// the session fields, never stored on its own.
type Status int

const (
	// StatusWaiting means no VPN tunnel is currently detected.
	StatusWaiting Status = iota
	// StatusGatewayError means a tunnel is up but the last mapping request
	// failed.
	StatusGatewayError
	// StatusActive means a mapping is present and valid.
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusGatewayError:
		return "gateway error"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session is the mutable state of the polling loop. It is owned exclusively
// by the SessionController and mutated only from the loop body.
type Session struct {
	// CurrentPort is the actively mapped port, or 0 when no mapping is
	// active. It is set if and only if the last gateway request succeeded.
	CurrentPort int
	// PreviousPort is the last port firewall rules were opened for, used to
	// fall back on when the firewall listing is unavailable.
	PreviousPort int
	// Interface is the detected tunnel interface, or "" when disconnected.
	Interface string
	// FailureCount counts consecutive gateway failures since the last
	// success.
	FailureCount int
	// FirewallOK is false while firewall management is degraded (service
	// down or a rule call failed); the mapping itself stays active.
	FirewallOK bool
}

// Status derives the session state: no interface means waiting, a mapped
// port means active, anything else is a gateway error.
func (s *Session) Status() Status {
	switch {
	case s.Interface == "":
		return StatusWaiting
	case s.CurrentPort != 0:
		return StatusActive
	default:
		return StatusGatewayError
	}
}

// Snapshot is the read-only view handed to status reporters.
type Snapshot struct {
	Status     Status
	Port       int
	Interface  string
	FirewallOK bool
	Failures   int
	When       time.Time
	LastEvent  string
}

// Snapshot captures the current session state for reporting.
func (s *Session) Snapshot(now time.Time, event string) Snapshot {
	return Snapshot{
		Status:     s.Status(),
		Port:       s.CurrentPort,
		Interface:  s.Interface,
		FirewallOK: s.FirewallOK,
		Failures:   s.FailureCount,
		When:       now,
		LastEvent:  event,
	}
}
