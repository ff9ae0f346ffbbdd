package vpnkeep

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGatewayClientRequestMapping(t *testing.T) {
	t.Run("both protocols succeed with the same port", func(t *testing.T) {
		mapper := NewMockPortMapper(51234)
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		assignment, err := client.RequestMapping(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if assignment.Port() != 51234 {
			t.Errorf("expected port 51234, got %d", assignment.Port())
		}
		if assignment.Mismatched() {
			t.Error("matching ports reported as mismatched")
		}

		// One request per protocol, carrying the lease in seconds.
		want := []string{"udp:60", "tcp:60"}
		if len(mapper.MapCalls) != 2 || mapper.MapCalls[0] != want[0] || mapper.MapCalls[1] != want[1] {
			t.Errorf("expected calls %v, got %v", want, mapper.MapCalls)
		}
	})

	t.Run("udp failure fails the whole cycle", func(t *testing.T) {
		mapper := NewMockPortMapper(51234)
		mapper.MapErr["udp"] = ErrGatewayUnreachable
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		if _, err := client.RequestMapping(context.Background()); !errors.Is(err, ErrGatewayUnreachable) {
			t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
		}
		// No TCP request should have been issued after the UDP leg failed.
		if len(mapper.MapCalls) != 1 {
			t.Errorf("expected a single map call, got %v", mapper.MapCalls)
		}
	})

	t.Run("tcp failure fails the whole cycle", func(t *testing.T) {
		mapper := NewMockPortMapper(51234)
		mapper.MapErr["tcp"] = ErrMappingRejected
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		if _, err := client.RequestMapping(context.Background()); !errors.Is(err, ErrMappingRejected) {
			t.Fatalf("expected ErrMappingRejected, got %v", err)
		}
	})

	t.Run("mismatched ports prefer tcp", func(t *testing.T) {
		mapper := NewMockPortMapper(0)
		mapper.Ports["tcp"] = 51234
		mapper.Ports["udp"] = 51300
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		assignment, err := client.RequestMapping(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !assignment.Mismatched() {
			t.Error("expected mismatch to be reported")
		}
		if assignment.Port() != 51234 {
			t.Errorf("expected tcp port 51234 to win, got %d", assignment.Port())
		}
	})
}

func TestGatewayClientRelease(t *testing.T) {
	t.Run("releases both protocols with a zero lease", func(t *testing.T) {
		mapper := NewMockPortMapper(51234)
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		if _, err := client.RequestMapping(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		client.Release(context.Background())

		if len(mapper.UnmapCalls) != 2 {
			t.Fatalf("expected 2 unmap calls, got %v", mapper.UnmapCalls)
		}
		seen := map[string]bool{}
		for _, call := range mapper.UnmapCalls {
			seen[call] = true
		}
		if !seen["tcp:51234"] || !seen["udp:51234"] {
			t.Errorf("expected tcp and udp releases for 51234, got %v", mapper.UnmapCalls)
		}
	})

	t.Run("release without a mapping is a no-op", func(t *testing.T) {
		mapper := NewMockPortMapper(51234)
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		client.Release(context.Background())
		if len(mapper.UnmapCalls) != 0 {
			t.Errorf("expected no unmap calls, got %v", mapper.UnmapCalls)
		}
	})

	t.Run("release failures are swallowed", func(t *testing.T) {
		mapper := NewMockPortMapper(51234)
		mapper.UnmapErr = errors.New("gateway gone")
		client := NewGatewayClient(mapper, 0, 60*time.Second, nil)

		if _, err := client.RequestMapping(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		client.Release(context.Background()) // must not panic or propagate
	})
}
