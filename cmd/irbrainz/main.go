package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"irbrainz/remote"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("irbrainz v%s\n", version)
	fmt.Println("IR remote daemon for addressable LED lights")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  irbrainz [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads codes from an IR receiver (Linux input device), maps them to light")
	fmt.Println("  actions through the selected remote profile and publishes the resulting")
	fmt.Println("  state over WebSocket and MQTT. Presets are stored in SQLite.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -ir-device string")
	fmt.Println("        Linux input event device for the IR receiver (default \"/dev/input/event0\")")
	fmt.Println()
	fmt.Println("  -remote string")
	fmt.Println("        Remote profile: disabled, ir24, ir24_old, ir24_ct, ir40, ir44, ir21, ir6,")
	fmt.Println("        ir9, custom, squeezebox, roku_express (default \"ir44\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/irbrainz.sock\")")
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Println("        HTTP port for /ws and /api (default 3001, 0 disables)")
	fmt.Println()
	fmt.Println("  -presets-db string")
	fmt.Println("        SQLite preset database (empty disables stored presets)")
	fmt.Println()
	fmt.Println("  -mqtt-broker string")
	fmt.Println("        MQTT broker URL; setting it enables MQTT publishing")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  irbrainz -ir-device /dev/input/event4 -remote ir24")
	fmt.Println("  irbrainz -config /etc/irbrainz.yaml -mqtt-broker tcp://broker.lan:1883")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input device (run as root or join 'input')")
	fmt.Println("  - A missing receiver is retried every second")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	fs := flag.NewFlagSet("irbrainz", flag.ExitOnError)
	fs.Usage = printUsage
	configPath := fs.String("config", "", "YAML config file")
	irDevice := fs.String("ir-device", "", "Linux input event device for the IR receiver")
	remoteKey := fs.String("remote", "", "Remote profile key")
	ipcSocket := fs.String("ipc-socket", "", "Unix domain socket path for IPC")
	httpPort := fs.Int("http-port", 0, "HTTP port (0 disables)")
	presetsDB := fs.String("presets-db", "", "SQLite preset database")
	mqttBroker := fs.String("mqtt-broker", "", "MQTT broker URL")
	logLevelStr := fs.String("log-level", "", "Log level: error, warn, info, debug")
	_ = fs.Parse(os.Args[1:])

	cfg, err := loadConfig(fs, *configPath, FlagOverrides{
		IRDevice:      irDevice,
		Remote:        remoteKey,
		IPCSocketPath: ipcSocket,
		HTTPPort:      httpPort,
		PresetsPath:   presetsDB,
		MQTTBroker:    mqttBroker,
		LogLevel:      logLevelStr,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional config file and the flags that
// were set explicitly on the command line.
func loadConfig(fs *flag.FlagSet, path string, all FlagOverrides) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = LoadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var o FlagOverrides
	if set["ir-device"] {
		o.IRDevice = all.IRDevice
	}
	if set["remote"] {
		o.Remote = all.Remote
	}
	if set["ipc-socket"] {
		o.IPCSocketPath = all.IPCSocketPath
	}
	if set["http-port"] {
		o.HTTPPort = all.HTTPPort
	}
	if set["presets-db"] {
		o.PresetsPath = all.PresetsPath
	}
	if set["mqtt-broker"] {
		o.MQTTBroker = all.MQTTBroker
	}
	if set["log-level"] {
		o.LogLevel = all.LogLevel
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg Config) error {
	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel)
	logger.Debug("starting irbrainz", "version", version)

	// Preset store
	var store *PresetStore
	if cfg.Presets.Path != "" {
		var err error
		store, err = OpenPresetStore(ExpandPath(cfg.Presets.Path))
		if err != nil {
			return err
		}
		defer store.Close()
	}

	// Remote profiles
	profiles, err := remote.BuiltinProfiles()
	if err != nil {
		return err
	}
	if cfg.IR.CustomRemoteFile != "" {
		custom, err := remote.LoadProfileFile(ExpandPath(cfg.IR.CustomRemoteFile))
		if err != nil {
			return err
		}
		if err := profiles.SetCustom(custom); err != nil {
			return err
		}
	}

	events := make(chan Event, 64)

	// State sinks: WebSocket broadcaster and MQTT publisher.
	var sinks []chan<- StateBroadcast
	var wsBroadcasts, mqttBroadcasts chan StateBroadcast
	if cfg.HTTP.Port > 0 {
		wsBroadcasts = make(chan StateBroadcast, 64)
		sinks = append(sinks, wsBroadcasts)
	}

	var mc *MQTTClient
	if cfg.MQTT.Enabled {
		mc, err = ConnectMQTT(cfg.MQTT, events, logger)
		if err != nil {
			// The daemon is still useful without MQTT.
			logger.Error("mqtt disabled", "error", err)
			mc = nil
		} else {
			defer mc.Close()
			mqttBroadcasts = make(chan StateBroadcast, 64)
			sinks = append(sinks, mqttBroadcasts)
		}
	}

	light := NewLight(cfg.Light)
	daemon := NewDaemon(light, store, cfg.RemoteProfile(), logger, sinks...)

	engine, err := remote.NewEngine(remote.Config{
		Profiles: profiles,
		Binder:   light,
		Presets:  &presetApplier{store: store, light: light, logger: logger},
		Effects:  light,
		Notifier: daemon,
		Source:   newReceiverSource(cfg.IR.Grab, logger),
		Input:    cfg.IR.Device,
		Logger:   logger.With("component", "remote"),
	})
	if err != nil {
		return err
	}
	daemon.AttachEngine(engine)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, events, daemon, cfg.PollInterval(), logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	if cfg.HTTP.Port > 0 {
		ws := NewStateServer(logger, events, HubConfig{})
		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), wsBroadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Port, newHTTPMux(ws, events, logger), logger)
		})
	}

	if mc != nil {
		g.Go(func() error {
			RunMQTTPublisher(gctx, mc, mc.topics, mqttBroadcasts, logger)
			return nil
		})
	}

	logger.Info("listening",
		"ir_device", cfg.IR.Device,
		"remote", cfg.RemoteProfile(),
		"ipc", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"mqtt", mc != nil,
		"presets", store != nil)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}
