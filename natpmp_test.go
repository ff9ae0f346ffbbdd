package vpnkeep

import (
	"context"
	"errors"
	"testing"
	"time"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNewNATPMPMapper(t *testing.T) {
	t.Run("fixed gateway address", func(t *testing.T) {
		m, err := NewNATPMPMapper("10.2.0.1", time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Gateway() != "10.2.0.1" {
			t.Errorf("expected gateway 10.2.0.1, got %s", m.Gateway())
		}
	})

	t.Run("malformed gateway address", func(t *testing.T) {
		if _, err := NewNATPMPMapper("not-an-ip", time.Second); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestNATPMPMapperArgumentChecks(t *testing.T) {
	m, err := NewNATPMPMapper("10.2.0.1", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, err := m.MapPort(ctx, "icmp", 0, time.Minute); err == nil {
		t.Error("expected an error for an unsupported protocol")
	}
	if _, err := m.MapPort(ctx, "tcp", -1, time.Minute); err == nil {
		t.Error("expected an error for a negative internal port")
	}
	if err := m.UnmapPort(ctx, "icmp", 51234); err == nil {
		t.Error("expected an error for an unsupported protocol")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := m.MapPort(cancelled, "tcp", 0, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClassifyGatewayError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"net timeout", timeoutError{}, ErrGatewayUnreachable},
		{"go-nat-pmp timeout message", errors.New("Timed out trying to contact gateway"), ErrGatewayUnreachable},
		{"protocol refusal", errors.New("result code 2"), ErrMappingRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyGatewayError(tc.err); !errors.Is(got, tc.want) {
				t.Errorf("classifyGatewayError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
