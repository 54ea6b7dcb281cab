// Command rfmbridge publishes frames from RFM sensor nodes to Home Assistant using MQTT device discovery.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nlowe/rfmbridge"
	"github.com/nlowe/rfmbridge/config"
	"github.com/nlowe/rfmbridge/discovery"
	"github.com/nlowe/rfmbridge/hass"
	rfmlog "github.com/nlowe/rfmbridge/log"
	"github.com/nlowe/rfmbridge/metrics"
	"github.com/nlowe/rfmbridge/store"
)

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the entry point for the rfmbridge command. Logs go to stdout, usage errors to stderr. It returns nil after a
// clean shutdown.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-version" || args[i] == "--version":
			_, err := fmt.Fprintf(stdout, "rfmbridge %s\n", rfmbridge.Version)
			return err
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		default:
			_ = printUsage(stderr)
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	path, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	// Config.Validate already rejected unknown levels.
	level, _ := rfmlog.ParseLevel(cfg.LogLevel)
	handler, err := rfmlog.NewHandler(stdout, cfg.LogFormat, level)
	if err != nil {
		return err
	}

	rfmlog.To(handler)
	log := rfmlog.ForComponent("main")
	log.With(slog.String("config", path), slog.String("version", rfmbridge.Version)).Info("Starting rfmbridge")

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := cfg.BridgeOptions()
	if err != nil {
		return err
	}

	gateways, err := cfg.BridgeGateways()
	if err != nil {
		return err
	}

	if cfg.Store.Path != "" {
		s, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		opts.Store = s
	}

	bridge, err := rfmbridge.NewBridge(opts, gateways...)
	if err != nil {
		return err
	}

	if err = bridge.Restore(ctx); err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.With(rfmlog.Error(err)).Error("Metrics server stopped")
			}
		}()
	}

	client, err := dialMQTT(ctx, &cfg.MQTT, bridge)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		log.Info("Disconnecting from mqtt")
		if err := errors.Join(bridge.Shutdown(shutdownCtx, client), client.Disconnect(shutdownCtx)); err != nil {
			log.With(rfmlog.Error(err)).Error("Failed to disconnect cleanly")
		}
	}()

	hassAvailability := discovery.HomeAssistantAvailability(cfg.MQTT.DiscoveryPrefix)
	hassAvailability.Watch(func(a hass.Availability) {
		log.With(slog.Any("availability", a)).Info("Home Assistant state changed")
		if a == hass.Available {
			go announce(ctx, bridge, client, "home assistant online")
		}
	})

	if err = client.Subscribe(ctx, hassAvailability, hassAvailability.Subscription()); err != nil {
		return fmt.Errorf("subscribe to home assistant status: %w", err)
	}

	announce(ctx, bridge, client, "startup")

	if err = bridge.Subscribe(ctx, client); err != nil {
		return fmt.Errorf("subscribe to node topics: %w", err)
	}

	<-ctx.Done()
	log.Info("Goodbye!")
	return nil
}

func printUsage(w io.Writer) error {
	_, err := fmt.Fprintf(w, `rfmbridge - RFM sensor nodes for Home Assistant over MQTT

Usage:
  rfmbridge [-config path]

Flags:
  -config   path to the config file (default: first of %s)
  -version  print the version and exit
  -h        show this help
`, strings.Join(config.DefaultSearchPaths(), ", "))
	return err
}
