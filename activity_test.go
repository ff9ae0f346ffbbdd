package vpnkeep

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestActivityLog(t *testing.T) {
	t.Run("appends timestamped lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "activity.log")

		log, err := OpenActivityLog(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		log.Eventf("port %d active on %s", 51234, "tun0")
		log.Eventf("vpn disconnected, closed port %d", 51234)
		if err := log.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
		}
		if !strings.HasSuffix(lines[0], "port 51234 active on tun0") {
			t.Errorf("unexpected first line %q", lines[0])
		}
		// Every line starts with an RFC3339 timestamp.
		for _, line := range lines {
			if len(strings.Fields(line)) < 2 {
				t.Errorf("line %q missing timestamp prefix", line)
			}
		}
	})

	t.Run("reopening appends rather than truncates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "activity.log")

		first, err := OpenActivityLog(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first.Eventf("one")
		first.Close()

		second, err := OpenActivityLog(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second.Eventf("two")
		second.Close()

		data, _ := os.ReadFile(path)
		if got := strings.Count(string(data), "\n"); got != 2 {
			t.Errorf("expected 2 lines after reopen, got %d", got)
		}
	})

	t.Run("nil log discards events", func(t *testing.T) {
		var log *ActivityLog
		log.Eventf("dropped") // must not panic
		if err := log.Close(); err != nil {
			t.Errorf("nil close returned %v", err)
		}
	})
}
