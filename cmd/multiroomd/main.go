package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/config"
	"github.com/famish99/multiroomd/internal/control"
	"github.com/famish99/multiroomd/internal/device"
	"github.com/famish99/multiroomd/internal/execx"
	"github.com/famish99/multiroomd/internal/logging"
	"github.com/famish99/multiroomd/internal/player"
	"github.com/famish99/multiroomd/internal/provider"
	"github.com/famish99/multiroomd/internal/store"
	"github.com/famish99/multiroomd/internal/supervisor"
	"github.com/famish99/multiroomd/internal/volume"
)

var (
	configPath    = pflag.StringP("config", "c", getDefaultConfigPath(), "Path to configuration file")
	envFile       = pflag.String("env-file", ".env", "Optional file of MULTIROOMD_* overrides")
	listenAddr    = pflag.StringP("listen", "l", "", "Control server listen address (overrides config)")
	logLevel      = pflag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	logJSON       = pflag.Bool("log-json", false, "Log as JSON")
	listDevices   = pflag.Bool("list-devices", false, "List audio output devices and exit")
	listProviders = pflag.Bool("list-providers", false, "List player providers and exit")
	writeConfig   = pflag.Bool("write-config", false, "Write the effective configuration to --config and exit")
)

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	devices  *device.Inventory
	registry *provider.Registry
	orch     *player.Orchestrator
}

func main() {
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	warnings := cfg.ApplyEnv()

	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	for _, w := range warnings {
		logger.Warn("invalid environment override", zap.String("detail", w))
	}

	if *writeConfig {
		if err := config.SaveConfig(*configPath, cfg); err != nil {
			logger.Fatal("failed to write config", zap.Error(err))
		}
		logger.Info("configuration written", zap.String("file", *configPath))
		return
	}

	a := newApp(cfg, logger)

	switch {
	case *listDevices:
		a.printDevices()
		return
	case *listProviders:
		a.printProviders()
		return
	}

	if err := a.run(); err != nil {
		logger.Fatal("multiroomd failed", zap.Error(err))
	}
}

// newApp wires the components together.
func newApp(cfg *config.Config, logger *zap.Logger) *app {
	runner := execx.OS{}
	devices := device.NewInventory(runner, logger)
	mixer := volume.NewMixer(runner, logger)

	registry := provider.NewRegistry(
		provider.NewSqueezelite(cfg.SqueezeliteOptions(), mixer),
		provider.NewSendspin(cfg.Binaries.Sendspin, mixer, device.PortAudioIndex, logger),
		provider.NewSnapcast(cfg.Binaries.Snapcast, logger),
	)

	players := store.New(cfg.PlayersFile, registry.Validate, logger)
	players.Load()

	var state *store.StateFile
	if cfg.StateFile != "" {
		state = store.NewStateFile(cfg.StateFile)
	}

	sup := supervisor.New(supervisor.Options{
		LogDir:      cfg.LogDir,
		StartGrace:  cfg.StartGrace,
		KillTimeout: cfg.KillTimeout,
	}, logger)

	orch := player.New(player.Deps{
		Registry:   registry,
		Store:      players,
		State:      state,
		Supervisor: sup,
		Devices:    devices,
	}, player.Options{
		StopTimeout:   cfg.StopTimeout,
		SweepInterval: cfg.SweepInterval,
		PushTimeout:   cfg.PushTimeout,
		StateMaxAge:   cfg.StateMaxAge,
		NullFallback:  cfg.NullFallback,
	}, logger)

	return &app{cfg: cfg, logger: logger, devices: devices, registry: registry, orch: orch}
}

// run restores players, serves the control protocol and stops every player
// on SIGINT or SIGTERM.
func (a *app) run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := control.NewServer(a.cfg.Listen, a.orch, a.logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	defer a.orch.Shutdown()
	a.orch.Restore(ctx)

	go a.orch.RunSweep(ctx, server)

	a.logger.Info("multiroomd running",
		zap.String("listen", server.Addr()),
		zap.String("players_file", a.cfg.PlayersFile))

	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}

func (a *app) printDevices() {
	devices, err := a.devices.List(context.Background())
	if err != nil {
		fmt.Printf("Warning: %v\n\n", err)
	}

	fmt.Printf("Found %d output device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.DisplayName)
		fmt.Printf("   Device:   %s\n", d.ID)
		if !d.Virtual {
			fmt.Printf("   Card:     %s\n", d.Card)
			fmt.Printf("   Index:    %s\n", d.Index)
		}
		fmt.Println()
	}
}

func (a *app) printProviders() {
	for _, p := range a.registry.Info() {
		status := "not found on PATH"
		if p.Available {
			status = "available"
		}
		fmt.Printf("%s (%s)\n", p.DisplayName, p.ID)
		fmt.Printf("   Binary:   %s, %s\n", p.Binary, status)
		for _, f := range p.Schema {
			if f.Default != nil {
				fmt.Printf("   %-14s %-6s default %v\n", f.Name, f.Type, f.Default)
			} else {
				fmt.Printf("   %-14s %s\n", f.Name, f.Type)
			}
		}
		fmt.Println()
	}
}

func getDefaultConfigPath() string {
	locations := []string{
		"./multiroomd.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "multiroomd", "config.yaml"),
		"/etc/multiroomd/config.yaml",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return locations[0]
}
