package vpnkeep

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ActivityLog is an append-only sink for timestamped event lines: port
// activations, disconnects, gateway errors. It is write-only; nothing reads
// it back. A nil *ActivityLog is valid and discards events.
type ActivityLog struct {
	mu sync.Mutex
	f  *os.File
}

// OpenActivityLog opens (or creates) the log file for appending.
func OpenActivityLog(path string) (*ActivityLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	return &ActivityLog{f: f}, nil
}

// Eventf appends one timestamped line. Write errors are swallowed: the log
// is an observability aid, never a reason to disturb the loop.
func (l *ActivityLog) Eventf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.f, "%s %s\n", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

// Close closes the underlying file.
func (l *ActivityLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
