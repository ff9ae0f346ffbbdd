package vpnkeep

import (
	"fmt"
	"os/exec"
)

// Preflight verifies startup preconditions before the loop runs: a sane
// configuration and the external tools the firewall adapter shells out to.
// Failures here are the only ones that terminate the process.
func Preflight(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := exec.LookPath("firewall-cmd"); err != nil {
		return fmt.Errorf("firewall-cmd not found in PATH: %w", err)
	}
	return nil
}
