package vpnkeep

import (
	"fmt"
	"net"
	"time"
)

// Config holds everything the daemon reads from flags or environment.
// Struct tags are consumed by kong in cmd/vpnkeep.
type Config struct {
	Gateway         string        `help:"NAT-PMP gateway address. Autodiscovered from the routing table when empty." default:"10.2.0.1" env:"VPNKEEP_GATEWAY"`
	Mapper          string        `help:"Port mapping backend." enum:"natpmp,upnp" default:"natpmp" env:"VPNKEEP_MAPPER"`
	InternalPort    int           `help:"Internal port to map. 0 lets the gateway choose (NAT-PMP only)." default:"0" env:"VPNKEEP_INTERNAL_PORT"`
	LeaseTime       time.Duration `help:"Requested mapping lease duration." default:"60s" env:"VPNKEEP_LEASE_TIME"`
	RenewalInterval time.Duration `help:"Interval between renewals while a mapping is active." default:"45s" env:"VPNKEEP_RENEWAL_INTERVAL"`
	GatewayTimeout  time.Duration `help:"Timeout for a single gateway request." default:"10s" env:"VPNKEEP_GATEWAY_TIMEOUT"`

	FirewallZone string `help:"firewalld zone to manage." default:"public" env:"VPNKEEP_FIREWALL_ZONE"`
	SafePortMin  int    `help:"Lower bound of the port range eligible for automatic rule removal." default:"40000" env:"VPNKEEP_SAFE_PORT_MIN"`
	SafePortMax  int    `help:"Upper bound of the port range eligible for automatic rule removal." default:"65535" env:"VPNKEEP_SAFE_PORT_MAX"`

	PollInterval           time.Duration `help:"Interval between interface probes while no VPN is detected." default:"5s" env:"VPNKEEP_POLL_INTERVAL"`
	RetryInterval          time.Duration `help:"Interval before retrying a failed mapping request." default:"5s" env:"VPNKEEP_RETRY_INTERVAL"`
	MaxConsecutiveFailures int           `help:"Consecutive mapping failures before backing off." default:"3" env:"VPNKEEP_MAX_FAILURES"`
	FailureCooldown        time.Duration `help:"Extended sleep after the failure threshold is reached." default:"30s" env:"VPNKEEP_FAILURE_COOLDOWN"`

	ActivityLog string `help:"Append-only activity log file. Disabled when empty." default:"" env:"VPNKEEP_ACTIVITY_LOG"`
	TUI         bool   `help:"Render status in a terminal UI instead of plain logs." default:"false"`
	Verbose     bool   `help:"Enable debug logging." short:"v" default:"false"`
}

// SafeRange returns the configured automatic-removal port range.
func (c *Config) SafeRange() PortRange {
	return PortRange{Min: c.SafePortMin, Max: c.SafePortMax}
}

// Validate rejects configurations the loop cannot run safely with. In
// particular the renewal interval must leave room for at least one retry
// cycle before the lease expires.
func (c *Config) Validate() error {
	if c.Gateway != "" && net.ParseIP(c.Gateway) == nil {
		return fmt.Errorf("gateway %q is not an IP address", c.Gateway)
	}
	if c.LeaseTime <= 0 {
		return fmt.Errorf("lease time must be positive, got %v", c.LeaseTime)
	}
	if c.RenewalInterval <= 0 {
		return fmt.Errorf("renewal interval must be positive, got %v", c.RenewalInterval)
	}
	if c.RenewalInterval >= c.LeaseTime {
		return fmt.Errorf("renewal interval (%v) must be shorter than the lease time (%v)", c.RenewalInterval, c.LeaseTime)
	}
	if c.RenewalInterval+c.RetryInterval > c.LeaseTime {
		return fmt.Errorf("renewal interval (%v) plus retry interval (%v) leaves no margin within the lease time (%v)", c.RenewalInterval, c.RetryInterval, c.LeaseTime)
	}
	if c.InternalPort < 0 || c.InternalPort > 65535 {
		return fmt.Errorf("internal port %d out of range", c.InternalPort)
	}
	if c.Mapper == "upnp" && c.InternalPort == 0 {
		return fmt.Errorf("the upnp mapper requires an explicit internal port")
	}
	if c.SafePortMin < 1 || c.SafePortMax > 65535 || c.SafePortMin > c.SafePortMax {
		return fmt.Errorf("invalid safe port range [%d, %d]", c.SafePortMin, c.SafePortMax)
	}
	if c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("max consecutive failures must be at least 1, got %d", c.MaxConsecutiveFailures)
	}
	if c.PollInterval <= 0 || c.RetryInterval <= 0 || c.FailureCooldown <= 0 {
		return fmt.Errorf("poll, retry and cooldown intervals must be positive")
	}
	return nil
}
