package vpnkeep

import "log/slog"

// StatusReporter consumes session snapshots for display. Implementations
// must not block the polling loop.
type StatusReporter interface {
	Report(Snapshot)
}

// LogReporter writes status changes to the structured log. Repeated
// identical states are logged at debug level to keep renewal cycles quiet.
type LogReporter struct {
	log  *slog.Logger
	last Snapshot
	seen bool
}

// NewLogReporter creates a reporter backed by the given logger.
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

// Report logs the snapshot.
func (r *LogReporter) Report(s Snapshot) {
	changed := !r.seen ||
		s.Status != r.last.Status ||
		s.Port != r.last.Port ||
		s.Interface != r.last.Interface ||
		s.FirewallOK != r.last.FirewallOK
	r.last = s
	r.seen = true

	logFn := r.log.Debug
	if changed {
		logFn = r.log.Info
	}
	logFn("session status",
		"status", s.Status.String(),
		"port", s.Port,
		"interface", s.Interface,
		"firewallOK", s.FirewallOK,
		"failures", s.Failures)
}

// MultiReporter fans a snapshot out to several reporters.
type MultiReporter []StatusReporter

// Report forwards the snapshot to every reporter in order.
func (m MultiReporter) Report(s Snapshot) {
	for _, r := range m {
		r.Report(s)
	}
}
