package vpnkeep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// shutdownTimeout bounds the release/close sequence on the way out. The
// parent context is already cancelled by then, so cleanup runs on its own
// deadline.
const shutdownTimeout = 10 * time.Second

// SessionController owns the session state and drives the polling loop:
// detect the tunnel, renew the mapping, reconcile the firewall, sleep,
// repeat. It implements suture.Service.
type SessionController struct {
	detector Detector
	gateway  Mapping
	firewall Firewall
	reporter StatusReporter
	activity *ActivityLog
	log      *slog.Logger

	pollInterval    time.Duration
	retryInterval   time.Duration
	renewalInterval time.Duration
	failureCooldown time.Duration
	maxFailures     int
	safeRange       PortRange

	sess     Session
	cleanup  sync.Once
	lastNote string
}

// NewSessionController wires the loop's collaborators together. reporter and
// activity may be nil.
func NewSessionController(cfg Config, detector Detector, gateway Mapping, firewall Firewall, reporter StatusReporter, activity *ActivityLog, log *slog.Logger) *SessionController {
	if log == nil {
		log = slog.Default()
	}
	if reporter == nil {
		reporter = NewLogReporter(log)
	}
	return &SessionController{
		detector:        detector,
		gateway:         gateway,
		firewall:        firewall,
		reporter:        reporter,
		activity:        activity,
		log:             log,
		pollInterval:    cfg.PollInterval,
		retryInterval:   cfg.RetryInterval,
		renewalInterval: cfg.RenewalInterval,
		failureCooldown: cfg.FailureCooldown,
		maxFailures:     cfg.MaxConsecutiveFailures,
		safeRange:       cfg.SafeRange(),
	}
}

// Serve runs the polling loop until the context is cancelled, then performs
// the shutdown sequence exactly once and returns the context's error.
func (c *SessionController) Serve(ctx context.Context) error {
	c.log.Info("session controller started",
		"renewalInterval", c.renewalInterval,
		"safePortMin", c.safeRange.Min,
		"safePortMax", c.safeRange.Max)

	for ctx.Err() == nil {
		delay := c.runCycle(ctx)
		if !sleepInterruptible(ctx, delay) {
			break
		}
	}

	c.shutdown()
	return ctx.Err()
}

// runCycle executes one pass of the state machine and returns how long to
// sleep before the next one.
func (c *SessionController) runCycle(ctx context.Context) time.Duration {
	iface, ok := c.detector.Detect()
	if !ok {
		return c.handleDisconnected(ctx)
	}
	c.sess.Interface = iface

	assignment, err := c.gateway.RequestMapping(ctx)
	if err != nil {
		return c.handleMappingFailure(err)
	}
	return c.handleMappingSuccess(ctx, assignment)
}

// handleDisconnected is the "no interface" transition: close any rules we
// opened, clear the session, wait for the tunnel to come back.
func (c *SessionController) handleDisconnected(ctx context.Context) time.Duration {
	// PreviousPort is the port with rules open; it can outlive CurrentPort
	// across a mapping failure and must be cleaned up here regardless.
	if port := c.sess.PreviousPort; port != 0 {
		if err := c.firewall.ClosePort(ctx, port); err != nil && !errors.Is(err, ErrFirewallInactive) {
			c.log.Warn("failed to close firewall port after disconnect",
				"port", port,
				"error", err)
		}
		c.activity.Eventf("vpn disconnected, closed port %d", port)
		c.log.Info("vpn disconnected", "port", port)
		c.note("vpn disconnected")
	} else if c.sess.CurrentPort != 0 || c.sess.Interface != "" {
		c.activity.Eventf("vpn disconnected")
		c.log.Info("vpn disconnected")
		c.note("vpn disconnected")
	}

	c.sess = Session{}
	c.report()
	return c.pollInterval
}

// handleMappingFailure is the gateway-error transition: count the failure
// and either retry shortly or back off once the threshold is hit.
func (c *SessionController) handleMappingFailure(err error) time.Duration {
	c.sess.CurrentPort = 0
	c.sess.FailureCount++

	c.log.Warn("mapping request failed",
		"interface", c.sess.Interface,
		"failures", c.sess.FailureCount,
		"error", err)
	c.activity.Eventf("gateway error (%d consecutive): %v", c.sess.FailureCount, err)
	c.note("gateway error")
	c.report()

	if c.sess.FailureCount >= c.maxFailures {
		c.log.Warn("failure threshold reached, backing off",
			"threshold", c.maxFailures,
			"cooldown", c.failureCooldown)
		c.sess.FailureCount = 0
		return c.failureCooldown
	}
	return c.retryInterval
}

// handleMappingSuccess is the active transition: adopt the assigned port,
// reconcile the firewall when it changed, and schedule the next renewal.
func (c *SessionController) handleMappingSuccess(ctx context.Context, assignment PortAssignment) time.Duration {
	port := assignment.Port()
	lastPort := c.sess.CurrentPort

	c.sess.FailureCount = 0
	c.sess.CurrentPort = port

	if port == c.sess.PreviousPort {
		// Rules for this port are in place: just make sure the firewall is
		// still there to enforce them.
		active := c.firewall.IsActive(ctx)
		if !active && c.sess.FirewallOK {
			c.log.Warn("firewall no longer active, mapping continues unmanaged")
			c.note("firewall inactive")
		}
		c.sess.FirewallOK = active
	} else if c.reconcile(ctx, port) {
		// PreviousPort tracks the port that actually has rules open. When
		// reconciliation was skipped (firewall down) it stays put, so the
		// next successful cycle reconciles again once the firewall is back.
		c.sess.PreviousPort = port
	}

	switch {
	case port == lastPort:
		// Plain renewal, nothing to announce.
	case lastPort != 0:
		c.activity.Eventf("port rotated %d -> %d", lastPort, port)
		c.log.Info("assigned port changed", "oldPort", lastPort, "newPort", port)
		c.note("port rotated")
	default:
		c.activity.Eventf("port %d active on %s", port, c.sess.Interface)
		c.log.Info("port mapping active", "port", port, "interface", c.sess.Interface)
		c.note("mapping active")
	}

	c.report()
	return c.renewalInterval
}

// reconcile brings the firewall's open-port set in line with the assigned
// port: stale safe-range rules are closed first, then the new port opened.
// It reports whether a plan was applied; an inactive firewall applies
// nothing and the caller must not consider the port's rules open.
func (c *SessionController) reconcile(ctx context.Context, port int) bool {
	openPorts, err := c.firewall.ListManagedPorts(ctx)
	switch {
	case errors.Is(err, ErrFirewallInactive):
		c.log.Warn("firewall not active, skipping rule reconciliation", "port", port)
		c.sess.FirewallOK = false
		c.note("firewall inactive")
		return false
	case err != nil:
		// Listing failed but the service is up. Reconcile against the last
		// port we know we opened so rotation still closes it.
		c.log.Warn("failed to list firewall ports, falling back to previous port", "error", err)
		openPorts = make(map[int]struct{})
		if c.sess.PreviousPort != 0 {
			openPorts[c.sess.PreviousPort] = struct{}{}
		}
	}

	plan := PlanTransition(port, openPorts, c.safeRange)
	ok := true

	for _, p := range plan.ToClose {
		if err := c.firewall.ClosePort(ctx, p); err != nil {
			c.log.Warn("failed to remove firewall rule", "port", p, "error", err)
			ok = false
		}
	}
	for _, p := range plan.ToOpen {
		status, err := c.firewall.OpenPort(ctx, p)
		if err != nil {
			c.log.Warn("failed to add firewall rule",
				"port", p,
				"tcp", status.TCP,
				"udp", status.UDP,
				"error", err)
		}
		if !status.Full() {
			ok = false
		}
	}

	c.sess.FirewallOK = ok
	return true
}

// shutdown releases the mapping and closes the firewall port. It runs at
// most once, on its own deadline, and keeps going past individual failures
// so partial cleanup is logged rather than silently dropped. The firewall
// close targets PreviousPort: after a mapping failure the mapping is gone
// but that port's rules are still open and must not outlive the session.
func (c *SessionController) shutdown() {
	c.cleanup.Do(func() {
		mapped := c.sess.CurrentPort
		rulePort := c.sess.PreviousPort
		if mapped == 0 && rulePort == 0 {
			c.log.Info("session controller stopped")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if mapped != 0 {
			c.gateway.Release(ctx)
		}
		if rulePort != 0 {
			if err := c.firewall.ClosePort(ctx, rulePort); err != nil && !errors.Is(err, ErrFirewallInactive) {
				c.log.Warn("failed to close firewall port during shutdown",
					"port", rulePort,
					"error", err)
			}
		}

		if mapped != 0 {
			c.activity.Eventf("shutdown, released port %d", mapped)
		} else {
			c.activity.Eventf("shutdown, closed port %d", rulePort)
		}
		c.log.Info("session controller stopped", "releasedPort", mapped, "closedPort", rulePort)
		c.sess = Session{}
	})
}

func (c *SessionController) note(event string) {
	c.lastNote = event
}

func (c *SessionController) report() {
	c.reporter.Report(c.sess.Snapshot(time.Now(), c.lastNote))
}

// sleepInterruptible waits for the duration or until the context is
// cancelled, whichever comes first. It reports false on cancellation.
func sleepInterruptible(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
