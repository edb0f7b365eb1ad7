// Command kaliko-node runs a header-only gossip client: it dials the
// configured seed peers, keeps their sessions alive, and grows a local
// header-chain ledger as `headers` messages arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DanielSidhion/kaliko/internal/bus"
	"github.com/DanielSidhion/kaliko/internal/chainparams"
	"github.com/DanielSidhion/kaliko/internal/config"
	"github.com/DanielSidhion/kaliko/internal/headerstore"
	"github.com/DanielSidhion/kaliko/internal/logging"
	"github.com/DanielSidhion/kaliko/internal/peermgr"
	"github.com/DanielSidhion/kaliko/internal/wire"
)

func main() {
	configPath := flag.String("config", "kaliko.conf", "path to the node configuration file")
	network := flag.String("network", "testnet3", "network profile: mainnet, testnet, testnet3, or namecoin")
	logLevel := flag.String("log-level", "info", "trace, debug, info, warn, or error")
	flag.Parse()

	if err := logging.Init(logging.Config{Level: *logLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "kaliko-node: logging init: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := run(*configPath, *network); err != nil {
		logging.Fatal("fatal startup error", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath, network string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("kaliko-node: %w", err)
	}

	params, ok := chainparams.Lookup(network)
	if !ok {
		return fmt.Errorf("kaliko-node: unknown network %q", network)
	}

	seeds, err := config.ReadSeedList(cfg.PeerSeedList)
	if err != nil {
		return fmt.Errorf("kaliko-node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Info("shutting down")
		cancel()
	}()

	dispatcher := bus.NewDispatcher(256)

	store, err := headerstore.Open(cfg.StorageLocation, params.Genesis, dispatcher.In())
	if err != nil {
		return fmt.Errorf("kaliko-node: %w", err)
	}
	defer store.Close()

	ourVersion := wire.VersionPayload{
		Services:    0,
		UserAgent:   "/kaliko:0.1.0/",
		StartHeight: int32(store.TipHeight()),
		Relay:       false,
	}

	manager := peermgr.New(peermgr.Config{
		Magic:             params.Magic,
		OurVersion:        ourVersion,
		MaxActivePeers:    cfg.MaxActivePeers,
		MaxCandidatePeers: cfg.MaxCandidatePeers,
		DialTimeout:       10 * time.Second,
		IdleTimeout:       5 * time.Minute,
	}, dispatcher.In())

	dispatcher.Subscribe(bus.StartPeerConnection, manager.In())
	dispatcher.Subscribe(bus.PeerConnectionEstablished, manager.In())
	dispatcher.Subscribe(bus.PeerConnectionDestroyed, manager.In())
	dispatcher.Subscribe(bus.PeerUnavailable, manager.In())
	dispatcher.Subscribe(bus.NetworkMessage, manager.In())
	dispatcher.Subscribe(bus.RequestHeadersFromPeer, manager.In())
	dispatcher.Subscribe(bus.SendHeadersToPeer, manager.In())

	dispatcher.Subscribe(bus.NetworkMessage, store.In())
	dispatcher.Subscribe(bus.PeerAnnouncedHeight, store.In())
	dispatcher.Subscribe(bus.NewHeadersAvailable, store.In())

	go dispatcher.Run()
	go manager.Run(ctx)
	go store.Run(ctx)

	manager.Seed(seeds)
	logging.Info("kaliko-node started",
		zap.String("network", params.Name),
		zap.Int("seed_count", len(seeds)),
		zap.Int("tip_height", store.TipHeight()))

	<-ctx.Done()
	return nil
}
