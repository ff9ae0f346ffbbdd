package vpnkeep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// OpenStatus records which protocol legs of an open-port operation took.
type OpenStatus struct {
	TCP bool
	UDP bool
}

// Full reports whether both protocol rules were added.
func (s OpenStatus) Full() bool {
	return s.TCP && s.UDP
}

// Firewall manages the open-port set of a single zone. Implementations must
// degrade gracefully when the firewall service is down: operations return
// ErrFirewallInactive and do nothing, and the caller carries on unmanaged.
type Firewall interface {
	IsActive(ctx context.Context) bool
	OpenPort(ctx context.Context, port int) (OpenStatus, error)
	ClosePort(ctx context.Context, port int) error
	ListManagedPorts(ctx context.Context) (map[int]struct{}, error)
}

// runCommand executes an external command and returns its combined output.
// It is a field rather than a direct exec call so the output parsing can be
// tested without a firewalld installation.
type runCommand func(ctx context.Context, name string, args ...string) (string, error)

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Firewalld drives firewall-cmd for a configured zone.
type Firewalld struct {
	zone string
	run  runCommand
	log  *slog.Logger
}

// NewFirewalld creates an adapter for the given zone.
func NewFirewalld(zone string, log *slog.Logger) *Firewalld {
	if log == nil {
		log = slog.Default()
	}
	return &Firewalld{
		zone: zone,
		run:  execCommand,
		log:  log,
	}
}

// IsActive reports whether the firewalld service is running.
func (f *Firewalld) IsActive(ctx context.Context) bool {
	out, err := f.run(ctx, "firewall-cmd", "--state")
	return err == nil && strings.TrimSpace(out) == "running"
}

// OpenPort adds TCP and UDP rules for the port. Partial success is reported
// through the returned status alongside the error; the caller decides
// whether a single missing leg matters.
func (f *Firewalld) OpenPort(ctx context.Context, port int) (OpenStatus, error) {
	if !f.IsActive(ctx) {
		return OpenStatus{}, ErrFirewallInactive
	}

	var status OpenStatus
	var errs []error
	for _, protocol := range []string{"tcp", "udp"} {
		arg := fmt.Sprintf("--add-port=%d/%s", port, protocol)
		if _, err := f.run(ctx, "firewall-cmd", "--zone="+f.zone, arg); err != nil {
			errs = append(errs, err)
			continue
		}
		switch protocol {
		case "tcp":
			status.TCP = true
		case "udp":
			status.UDP = true
		}
	}
	return status, errors.Join(errs...)
}

// ClosePort removes the TCP and UDP rules for the port. Both removals are
// attempted even if the first fails.
func (f *Firewalld) ClosePort(ctx context.Context, port int) error {
	if !f.IsActive(ctx) {
		return ErrFirewallInactive
	}

	var errs []error
	for _, protocol := range []string{"tcp", "udp"} {
		arg := fmt.Sprintf("--remove-port=%d/%s", port, protocol)
		if _, err := f.run(ctx, "firewall-cmd", "--zone="+f.zone, arg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListManagedPorts returns the ports currently open in the zone. A port
// counts as managed if it is open for at least one protocol.
func (f *Firewalld) ListManagedPorts(ctx context.Context) (map[int]struct{}, error) {
	if !f.IsActive(ctx) {
		return nil, ErrFirewallInactive
	}

	out, err := f.run(ctx, "firewall-cmd", "--zone="+f.zone, "--list-ports")
	if err != nil {
		return nil, err
	}
	return parseZonePorts(out), nil
}

// parseZonePorts extracts port numbers from firewall-cmd --list-ports
// output, e.g. "51234/tcp 51234/udp 8080/tcp". Entries that do not parse are
// skipped.
func parseZonePorts(out string) map[int]struct{} {
	ports := make(map[int]struct{})
	for _, field := range strings.Fields(out) {
		spec, _, found := strings.Cut(field, "/")
		if !found {
			continue
		}
		port, err := strconv.Atoi(spec)
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		ports[port] = struct{}{}
	}
	return ports
}
