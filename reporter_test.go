package vpnkeep

import (
	"testing"
	"time"
)

func TestMultiReporterFansOut(t *testing.T) {
	first := &MockReporter{}
	second := &MockReporter{}
	multi := MultiReporter{first, second}

	snap := Snapshot{Status: StatusActive, Port: 51234, When: time.Now()}
	multi.Report(snap)

	for i, r := range []*MockReporter{first, second} {
		if len(r.Snapshots) != 1 || r.Snapshots[0].Port != 51234 {
			t.Errorf("reporter %d did not receive the snapshot: %+v", i, r.Snapshots)
		}
	}
}

func TestLogReporterTracksChanges(t *testing.T) {
	// The log reporter only distinguishes changed from repeated states
	// internally; this just pins down that repeated reports are accepted.
	r := NewLogReporter(nil)
	snap := Snapshot{Status: StatusActive, Port: 51234, Interface: "tun0", When: time.Now()}

	r.Report(snap)
	r.Report(snap)
	snap.Port = 51300
	r.Report(snap)

	if r.last.Port != 51300 {
		t.Errorf("expected last port 51300, got %d", r.last.Port)
	}
}
