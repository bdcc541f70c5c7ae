package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/driver/vigem"
	"github.com/Alia5/steamtarget/driver/viiper"
	"github.com/Alia5/steamtarget/internal/control"
	"github.com/Alia5/steamtarget/internal/engine"
	"github.com/Alia5/steamtarget/internal/focus"
	"github.com/Alia5/steamtarget/internal/log"
	"github.com/Alia5/steamtarget/internal/overlay"
	"github.com/Alia5/steamtarget/internal/scanner"
	"github.com/Alia5/steamtarget/internal/util"
	"github.com/Alia5/steamtarget/internal/xinput"
)

// Backend names accepted by --driver.
const (
	DriverViiper = "viiper"
	DriverViGEm  = "vigem"
)

type Run struct {
	DrawDebugOverlay  bool          `help:"Show the overlay window" env:"STEAMTARGET_DRAW_DEBUG_OVERLAY"`
	ShowConsole       bool          `help:"Show the console window" env:"STEAMTARGET_SHOW_CONSOLE"`
	EnableControllers bool          `help:"Virtualize controllers on startup" default:"true" negatable:"" env:"STEAMTARGET_ENABLE_CONTROLLERS"`
	VSync             bool          `name:"vsync" help:"Pace frames on the compositor vblank" env:"STEAMTARGET_VSYNC"`
	RefreshRate       int           `help:"Frames per second when vsync is off" default:"60" env:"STEAMTARGET_REFRESH_RATE"`
	SettleDelay       time.Duration `help:"Wait after unplugging all targets before rescanning" default:"1s" env:"STEAMTARGET_SETTLE_DELAY"`
	Driver            string        `help:"Virtualization backend" enum:"viiper,vigem" default:"viiper" env:"STEAMTARGET_DRIVER"`

	Viiper  viiper.Config  `embed:"" prefix:"viiper."`
	Control control.Config `embed:"" prefix:"control."`
	Overlay overlay.Config `embed:"" prefix:"overlay."`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := r.Start(ctx, logger, rawLogger)
	if errors.Is(err, engine.ErrDriverInit) && util.IsRunFromGUI() {
		logger.Error("Failed to start", "error", err)
		fmt.Println("Press any key to exit...")
		b := make([]byte, 1)
		_, _ = os.Stdin.Read(b)
	}
	return err
}

func (r *Run) engineConfig() engine.Config {
	return engine.Config{
		DrawOverlay:       r.DrawDebugOverlay,
		ShowConsole:       r.ShowConsole,
		EnableControllers: r.EnableControllers,
		VSync:             r.VSync,
		RefreshRate:       r.RefreshRate,
		SettleDelay:       r.SettleDelay,
	}
}

func (r *Run) newDriver(logger *slog.Logger, rawLogger log.RawLogger) (driver.Driver, error) {
	switch r.Driver {
	case "", DriverViiper:
		return viiper.New(r.Viiper, logger, rawLogger), nil
	case DriverViGEm:
		return vigem.New(logger, rawLogger), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", r.Driver)
	}
}

// Start wires the engine and the control transports and blocks until ctx is
// done or the engine stops.
func (r *Run) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	drv, err := r.newDriver(logger, rawLogger)
	if err != nil {
		return err
	}

	sig, err := overlay.New(r.Overlay.Probe, logger)
	if err != nil {
		logger.Warn("Overlay probe unavailable, treating the overlay as closed", "probe", r.Overlay.Probe, "error", err)
		sig = &overlay.Flag{}
	}

	sc := scanner.New(logger)
	if err := sc.Open(); err != nil {
		logger.Warn("Failed to initialise HID enumeration", "error", err)
	}
	defer func() { _ = sc.Close() }()

	windows, closeWindows := newWindows(logger)
	defer closeWindows()

	logger.Info("Starting SteamTarget", "driver", r.Driver, "vsync", r.VSync, "refreshRate", r.RefreshRate)
	eng, err := engine.New(r.engineConfig(), engine.Deps{
		Driver:  drv,
		Input:   xinput.New(),
		Scanner: sc,
		Focus:   focus.New(windows, logger),
		Overlay: sig,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	router := control.NewTargetRouter(eng)
	if r.Control.Addr != "" {
		srv, err := control.NewServer(r.Control.Addr, r.Control.Password, router, logger)
		if err != nil {
			return err
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("start control server: %w", err)
		}
		defer srv.Close()
		logger.Info("Control server listening", "addr", srv.Addr(), "auth", r.Control.Password != "")
	}
	if r.Control.Stdin {
		go func() {
			if err := control.ServeStdin(ctx, router, logger); err != nil {
				logger.Debug("Stdin control reader stopped", "error", err)
			}
		}()
	}

	snap := eng.Snapshot()
	logger.Info("Engine ready", "physical", snap.RealCount, "paused", snap.Paused)

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shutting down")
	return nil
}
