package vpnkeep

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock implementations of the loop's collaborators, shared across tests.

// MockDetector returns a fixed detection result.
type MockDetector struct {
	Name      string
	Connected bool
}

func (d *MockDetector) Detect() (string, bool) {
	if !d.Connected {
		return "", false
	}
	return d.Name, true
}

// MockPortMapper implements PortMapper with scriptable results and a call
// log.
type MockPortMapper struct {
	mu         sync.Mutex
	Ports      map[string]int   // protocol -> assigned external port
	MapErr     map[string]error // protocol -> error to return from MapPort
	UnmapErr   error
	MapCalls   []string // "protocol:lease-seconds"
	UnmapCalls []string // "protocol:port"
	ExternalIP string
}

// NewMockPortMapper creates a mapper that assigns the same port to both
// protocols.
func NewMockPortMapper(port int) *MockPortMapper {
	return &MockPortMapper{
		Ports:      map[string]int{"tcp": port, "udp": port},
		MapErr:     make(map[string]error),
		ExternalIP: "203.0.113.100", // RFC5737 test address
	}
}

func (m *MockPortMapper) MapPort(_ context.Context, protocol string, _ int, lease time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MapCalls = append(m.MapCalls, fmt.Sprintf("%s:%d", protocol, int(lease.Seconds())))
	if err := m.MapErr[protocol]; err != nil {
		return 0, err
	}
	return m.Ports[protocol], nil
}

func (m *MockPortMapper) UnmapPort(_ context.Context, protocol string, externalPort int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnmapCalls = append(m.UnmapCalls, fmt.Sprintf("%s:%d", protocol, externalPort))
	return m.UnmapErr
}

func (m *MockPortMapper) GetExternalIP(context.Context) (string, error) {
	return m.ExternalIP, nil
}

// MockMapping implements Mapping for controller tests.
type MockMapping struct {
	Assignment   PortAssignment
	Err          error
	RequestCalls int
	ReleaseCalls int
}

func (m *MockMapping) RequestMapping(context.Context) (PortAssignment, error) {
	m.RequestCalls++
	if m.Err != nil {
		return PortAssignment{}, m.Err
	}
	return m.Assignment, nil
}

func (m *MockMapping) Release(context.Context) {
	m.ReleaseCalls++
}

// MockFirewall implements Firewall with an in-memory open-port set and an
// ordered call log for asserting close-before-open sequencing.
type MockFirewall struct {
	mu          sync.Mutex
	Active      bool
	Open        map[int]struct{}
	OpenErr     error
	CloseErr    error
	ListErr     error
	PartialOpen bool // only the tcp leg succeeds
	Calls       []string
}

// NewMockFirewall creates an active firewall with no open ports.
func NewMockFirewall() *MockFirewall {
	return &MockFirewall{
		Active: true,
		Open:   make(map[int]struct{}),
	}
}

func (f *MockFirewall) IsActive(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "state")
	return f.Active
}

func (f *MockFirewall) OpenPort(_ context.Context, port int) (OpenStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("open %d", port))
	if !f.Active {
		return OpenStatus{}, ErrFirewallInactive
	}
	if f.OpenErr != nil {
		return OpenStatus{}, f.OpenErr
	}
	f.Open[port] = struct{}{}
	if f.PartialOpen {
		return OpenStatus{TCP: true}, nil
	}
	return OpenStatus{TCP: true, UDP: true}, nil
}

func (f *MockFirewall) ClosePort(_ context.Context, port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("close %d", port))
	if !f.Active {
		return ErrFirewallInactive
	}
	if f.CloseErr != nil {
		return f.CloseErr
	}
	delete(f.Open, port)
	return nil
}

func (f *MockFirewall) ListManagedPorts(context.Context) (map[int]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "list")
	if !f.Active {
		return nil, ErrFirewallInactive
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	open := make(map[int]struct{}, len(f.Open))
	for p := range f.Open {
		open[p] = struct{}{}
	}
	return open, nil
}

// RuleCalls returns only the open/close entries of the call log, in order.
func (f *MockFirewall) RuleCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rules []string
	for _, c := range f.Calls {
		if c != "state" && c != "list" {
			rules = append(rules, c)
		}
	}
	return rules
}

// MockReporter records every snapshot it receives.
type MockReporter struct {
	mu        sync.Mutex
	Snapshots []Snapshot
}

func (r *MockReporter) Report(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Snapshots = append(r.Snapshots, s)
}

// Last returns the most recent snapshot, or a zero value if none.
func (r *MockReporter) Last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Snapshots) == 0 {
		return Snapshot{}
	}
	return r.Snapshots[len(r.Snapshots)-1]
}
