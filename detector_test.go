package vpnkeep

import (
	"errors"
	"net"
	"testing"
)

func fakeInterfaces(ifaces []net.Interface, err error) func() ([]net.Interface, error) {
	return func() ([]net.Interface, error) { return ifaces, err }
}

func TestInterfaceDetector(t *testing.T) {
	t.Run("no interfaces at all", func(t *testing.T) {
		d := &InterfaceDetector{interfaces: fakeInterfaces(nil, nil)}
		if name, ok := d.Detect(); ok {
			t.Errorf("expected no detection, got %q", name)
		}
	})

	t.Run("enumeration failure is reported as not connected", func(t *testing.T) {
		d := &InterfaceDetector{interfaces: fakeInterfaces(nil, errors.New("boom"))}
		if _, ok := d.Detect(); ok {
			t.Error("expected no detection on enumeration failure")
		}
	})

	t.Run("skips non point-to-point and down interfaces", func(t *testing.T) {
		ifaces := []net.Interface{
			{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
			{Name: "eth0", Flags: net.FlagUp | net.FlagBroadcast},
			{Name: "tun0", Flags: net.FlagPointToPoint}, // down
			{Name: "wg0", Flags: net.FlagPointToPoint | net.FlagUp},
		}
		d := &InterfaceDetector{interfaces: fakeInterfaces(ifaces, nil)}

		name, ok := d.Detect()
		if !ok || name != "wg0" {
			t.Errorf("expected wg0, got %q (ok=%v)", name, ok)
		}
	})

	t.Run("first match in enumeration order wins", func(t *testing.T) {
		ifaces := []net.Interface{
			{Name: "tun0", Flags: net.FlagPointToPoint | net.FlagUp},
			{Name: "wg0", Flags: net.FlagPointToPoint | net.FlagUp},
		}
		d := &InterfaceDetector{interfaces: fakeInterfaces(ifaces, nil)}

		name, _ := d.Detect()
		if name != "tun0" {
			t.Errorf("expected tun0, got %q", name)
		}
	})
}
