// Command vpnkeep keeps a NAT-PMP port mapping alive against a VPN gateway
// and mirrors the assigned port into the host firewall.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/thejerf/suture/v4"

	"github.com/vpnkeep/vpnkeep"
	"github.com/vpnkeep/vpnkeep/ui"
)

func main() {
	var cfg vpnkeep.Config
	kong.Parse(&cfg,
		kong.Name("vpnkeep"),
		kong.Description("Keeps a NAT-PMP port mapping alive against a VPN gateway and synchronizes the host firewall with the assigned port."))

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logOut := os.Stderr
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))
	log := slog.Default()

	if err := vpnkeep.Preflight(cfg); err != nil {
		log.Error("preflight failed", "error", err)
		os.Exit(1)
	}

	mapper, err := buildMapper(cfg)
	if err != nil {
		log.Error("failed to create port mapper", "error", err)
		os.Exit(1)
	}

	var activity *vpnkeep.ActivityLog
	if cfg.ActivityLog != "" {
		activity, err = vpnkeep.OpenActivityLog(cfg.ActivityLog)
		if err != nil {
			log.Error("failed to open activity log", "error", err)
			os.Exit(1)
		}
		defer activity.Close()
	}

	logExternalIP(mapper, log)

	gateway := vpnkeep.NewGatewayClient(mapper, cfg.InternalPort, cfg.LeaseTime, log)
	firewall := vpnkeep.NewFirewalld(cfg.FirewallZone, log)
	detector := vpnkeep.NewInterfaceDetector()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reporter vpnkeep.StatusReporter = vpnkeep.NewLogReporter(log)
	var prog *tea.Program
	if cfg.TUI {
		prog = tea.NewProgram(ui.NewModel(), tea.WithAltScreen())
		reporter = vpnkeep.MultiReporter{reporter, ui.NewReporter(prog)}
	}

	controller := vpnkeep.NewSessionController(cfg, detector, gateway, firewall, reporter, activity, log)

	sup := suture.NewSimple("vpnkeep")
	sup.Add(controller)

	if prog == nil {
		err := sup.Serve(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("supervisor exited", "error", err)
			os.Exit(1)
		}
		return
	}

	// With the TUI enabled the supervisor runs in the background while the
	// program owns the terminal; quitting the UI stops the session.
	done := sup.ServeBackground(ctx)
	if _, err := prog.Run(); err != nil {
		log.Error("status display failed", "error", err)
	}
	stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("supervisor exited", "error", err)
		os.Exit(1)
	}
}

// buildMapper selects the port mapping backend.
func buildMapper(cfg vpnkeep.Config) (vpnkeep.PortMapper, error) {
	switch cfg.Mapper {
	case "upnp":
		return vpnkeep.NewUPnPMapper()
	default:
		return vpnkeep.NewNATPMPMapper(cfg.Gateway, cfg.GatewayTimeout)
	}
}

// logExternalIP reports the gateway's external address once at startup, for
// operator visibility only.
func logExternalIP(mapper vpnkeep.PortMapper, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ip, err := mapper.GetExternalIP(ctx)
	if err != nil {
		log.Debug("external IP lookup failed", "error", err)
		return
	}
	log.Info("gateway external address", "ip", ip)
}
