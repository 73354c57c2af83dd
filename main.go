package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"caraudio/cmd"
	"caraudio/internal/audio"
	"caraudio/internal/config"
	"caraudio/internal/hal"
	applog "caraudio/internal/log"
	"caraudio/internal/monitoring"
	"caraudio/internal/platform"
	"caraudio/internal/transport"
	"caraudio/internal/transport/udp"
	"caraudio/internal/tui"
	"caraudio/pkg/build"
)

// main is the entry point of the car audio focus daemon.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Configure logging
//   - Execute one-off commands if requested
//
// 2. Running Phase:
//   - Start the simulated vehicle HAL and platform focus stack
//   - Start the status transports
//   - Initialize the focus arbiter
//   - Serve the status screen or wait for a signal
//
// 3. Shutdown Phase:
//   - Release vehicle and platform focus
//   - Close transports and simulators
func main() {
	// ==================== STARTUP PHASE ====================

	// Binaries built without ldflags keep the development values.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	applog.Configure(level, cfg.Debug)
	defer applog.Sync()

	if opts.Command != "" {
		if err := executeCommand(os.Stdout, opts.Command, cfg); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if !opts.Run {
		return
	}

	// ==================== RUNNING PHASE ====================

	d, err := startDaemon(cfg, opts.TUIMode)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if opts.TUIMode {
		model := tui.NewStatusModel(d.arbiter.Snapshot(), cmd.SimulatorActions(d.sim, d.stack))
		err := tui.Run(model, func(p *tea.Program) {
			d.arbiter.AddObserver(tui.Observer(p))
		})
		if err != nil {
			applog.Errorf("status screen: %v", err)
		}
	} else {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		applog.Infof("%s running, press Ctrl+C to stop", build.GetBuildInfo())
		<-done
	}

	// ==================== SHUTDOWN PHASE ====================

	d.Close()
}

// loadConfig applies the command line on top of the configuration file.
func loadConfig(opts *cmd.Options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Routing != "" {
		cfg.Routing.Override = opts.Routing
	}
	if opts.Verbose {
		cfg.Debug = true
		cfg.LogLevel = applog.LevelDebug.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// executeCommand handles one-off commands that don't need the arbiter
// running.
func executeCommand(w io.Writer, command string, cfg *config.Config) error {
	switch command {
	case cmd.CommandVersion:
		fmt.Fprintln(w, build.GetBuildInfo())
		return nil
	case cmd.CommandPolicy:
		policy, err := cfg.RoutingTable().Resolve(cfg.HAL.HwVariant)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "hw variant %d: %s\n", cfg.HAL.HwVariant, policy)
		policy.Dump(w)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// daemon owns everything started in the running phase.
type daemon struct {
	sim     *hal.Simulator
	stack   *platform.Stack
	arbiter *audio.FocusArbiter
	closers []io.Closer
}

func startDaemon(cfg *config.Config, tuiMode bool) (*daemon, error) {
	duck, err := cfg.RadioDuckPolicy()
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	d := &daemon{
		sim:   hal.NewSimulator(cfg.SimulatorConfig()),
		stack: platform.NewStack(),
	}
	d.sim.Start()
	d.stack.Start()

	d.arbiter = audio.NewFocusArbiter(d.sim, d.stack.Client(cfg.PackageName), audio.Options{
		PackageName:     cfg.PackageName,
		ResponseTimeout: cfg.Focus.ResponseTimeout,
		ReleaseDelay:    cfg.Focus.ReleaseDelay,
		Routing:         cfg.RoutingTable(),
		RadioDuckPolicy: duck,
		Metrics:         metrics,
	})

	// The status screen owns the terminal.
	if !tuiMode {
		d.arbiter.AddObserver(transport.NewLoggingTransport())
	}

	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocketTransport(transport.WebSocketConfig{
			Addr:          cfg.Transport.WSAddr,
			PingInterval:  cfg.Transport.WSPingInterval,
			ClientTimeout: cfg.Transport.WSClientTimeout,
			Metrics:       metrics,
			NoMetrics:     !cfg.Metrics.Enabled,
			Dumper:        d.arbiter,
		})
		if err := ws.Start(); err != nil {
			d.Close()
			return nil, err
		}
		d.arbiter.AddObserver(ws)
		d.closers = append(d.closers, ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			d.Close()
			return nil, err
		}
		pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, d.arbiter, metrics)
		if err != nil {
			sender.Close()
			d.Close()
			return nil, err
		}
		pub.Start()
		// The publisher stops before its sender closes.
		d.closers = append(d.closers, pub, sender)
	}

	if err := d.arbiter.Init(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to initialize focus arbiter: %w", err)
	}
	return d, nil
}

// Close shuts everything down in reverse start order.
func (d *daemon) Close() {
	if d.arbiter != nil {
		if err := d.arbiter.Close(); err != nil {
			applog.Errorf("Error closing focus arbiter: %v", err)
		}
	}
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			applog.Errorf("Error closing transport: %v", err)
		}
	}
	if err := d.stack.Close(); err != nil {
		applog.Errorf("Error closing focus stack: %v", err)
	}
	if err := d.sim.Close(); err != nil {
		applog.Errorf("Error closing vehicle simulator: %v", err)
	}
}
