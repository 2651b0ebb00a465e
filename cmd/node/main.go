package main

import (
	"context"
	"flag"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sasasu/placeholder"
)

const routerJobQueueSize = 256

func main() {
	var configPath string
	var dumpRoutes bool
	flag.StringVar(&configPath, "f", "", "configuration file path")
	flag.StringVar(&configPath, "file", "", "configuration file path (long form)")
	flag.BoolVar(&dumpRoutes, "dump-routes", false, "log the routing table snapshot after shutdown")
	flag.Parse()

	logger := slog.Default()

	if configPath == "" {
		logger.Error("missing required -f/--file configuration path")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := placeholder.LoadConfiguration(configPath)
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	tun, err := placeholder.OpenTUN(cfg.DeviceName)
	if err != nil {
		logger.Error("opening tun device", "error", err)
		os.Exit(1)
	}

	if err := placeholder.RunHook(cfg.Ifup, tun.Name(), cfg.Subnet); err != nil {
		logger.Error("running ifup hook", "error", err)
		tun.Close()
		os.Exit(1)
	}

	udp4, udp6, err := placeholder.ListenUDP(cfg.Port)
	if err != nil {
		logger.Error("binding udp sockets", "error", err)
		tun.Close()
		os.Exit(1)
	}

	table := placeholder.NewRoutingTable()
	router := placeholder.NewRouter(table, cfg.Name, cfg.SubnetPrefix(), cfg.Port)
	dispatcher := placeholder.NewDispatcher(tun, udp4, udp6, router, routerJobQueueSize)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go dispatcher.Bootstrap(bootstrapAddrs(cfg, logger))

	logger.Info("node started", "name", cfg.Name, "device", tun.Name(), "port", cfg.Port, "subnet", cfg.Subnet)
	dispatcher.Run(ctx)

	if dumpRoutes {
		for name, reach := range router.Snapshot() {
			logger.Info("route", "peer", name, "reachability", reach)
		}
	}

	if err := placeholder.RunHook(cfg.Ifdown, tun.Name(), cfg.Subnet); err != nil {
		logger.Error("running ifdown hook", "error", err)
	}
	tun.Close()
	udp4.Close()
	udp6.Close()
	logger.Info("node stopped")
}

func bootstrapAddrs(cfg *placeholder.Configuration, logger *slog.Logger) []netip.AddrPort {
	addrs := make([]netip.AddrPort, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		addr, err := netip.ParseAddr(s.Address)
		if err != nil {
			logger.Warn("skipping bootstrap server with invalid address", "address", s.Address, "error", err)
			continue
		}
		addrs = append(addrs, netip.AddrPortFrom(addr, s.Port))
	}
	return addrs
}
