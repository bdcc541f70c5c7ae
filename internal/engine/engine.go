// Package engine virtualizes additional physical controllers as Xbox 360
// targets, forwards their input every frame and routes force feedback back.
//
// Slots below the physical count reported by the Scanner belong to real Xbox
// 360 controllers and are never touched. Every controller beyond those that
// answers on the Input gets a virtual target of its own.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/overlay"
)

// Input is the physical controller subsystem, indexed by slot.
type Input interface {
	// State returns the current state at slot, or an error wrapping
	// ErrDeviceAbsent when nothing is connected there.
	State(slot int) (gamepad.InputState, error)
	SetVibration(slot int, left, right uint16) error
}

// Scanner counts the physical Xbox 360 controllers.
type Scanner interface {
	Scan() int
}

// Focus is the per-frame window focus arbitration.
type Focus interface {
	Tick(overlayOpen bool)
	KeepOnTop()
	ShowConsole(visible bool)
	ShowOverlay(visible bool)
}

// Config holds the startup values of the engine flags.
type Config struct {
	DrawOverlay       bool
	ShowConsole       bool
	EnableControllers bool
	VSync             bool
	RefreshRate       int
	// SettleDelay is how long reset commands wait for the bus to drop
	// unplugged targets before rescanning.
	SettleDelay time.Duration
}

const (
	defaultRefreshRate = 60
	reconcileInterval  = time.Second
)

// Deps are the collaborators wired into an Engine.
type Deps struct {
	Driver  driver.Driver
	Input   Input
	Scanner Scanner
	Focus   Focus
	Overlay overlay.Signal
	Logger  *slog.Logger
}

// Flags are read by the loop every frame and written by control commands.
type Flags struct {
	running        atomic.Bool
	paused         atomic.Bool
	vsync          atomic.Bool
	overlayVisible atomic.Bool
	consoleVisible atomic.Bool
	refreshRate    atomic.Int32
}

func (f *Flags) Running() bool        { return f.running.Load() }
func (f *Flags) Paused() bool         { return f.paused.Load() }
func (f *Flags) VSync() bool          { return f.vsync.Load() }
func (f *Flags) OverlayVisible() bool { return f.overlayVisible.Load() }
func (f *Flags) ConsoleVisible() bool { return f.consoleVisible.Load() }
func (f *Flags) RefreshRate() int     { return int(f.refreshRate.Load()) }

// Snapshot is a consistent view of the engine counters.
type Snapshot struct {
	RealCount    int
	TotalCount   int
	CountBefore  int
	VirtualCount int
	Plugged      []int
	Paused       bool
}

type Engine struct {
	drv     driver.Driver
	pool    *Pool
	input   Input
	scanner Scanner
	focus   Focus
	signal  overlay.Signal
	logger  *slog.Logger
	settle  time.Duration

	flags Flags

	// mu guards the counters and serialises plug/unplug. Taken before pool.mu.
	mu          sync.Mutex
	realCount   int
	totalCount  int
	countBefore int

	// cmdMu serialises reset sequences.
	cmdMu sync.Mutex

	runMu     sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// New initialises the driver and scans the physical controllers. A driver
// failure is returned wrapped in ErrDriverInit and the engine must not be used.
func New(cfg Config, deps Deps) (*Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	signal := deps.Overlay
	if signal == nil {
		signal = &overlay.Flag{}
	}
	e := &Engine{
		drv:     deps.Driver,
		pool:    NewPool(deps.Driver, logger),
		input:   deps.Input,
		scanner: deps.Scanner,
		focus:   deps.Focus,
		signal:  signal,
		logger:  logger,
		settle:  cfg.SettleDelay,
	}
	rate := cfg.RefreshRate
	if rate <= 0 {
		rate = defaultRefreshRate
	}
	e.flags.paused.Store(!cfg.EnableControllers)
	e.flags.vsync.Store(cfg.VSync)
	e.flags.overlayVisible.Store(cfg.DrawOverlay)
	e.flags.consoleVisible.Store(cfg.ShowConsole)
	e.flags.refreshRate.Store(int32(rate))

	e.drv.SetFeedbackHandler(e.OnFeedback)
	if err := e.drv.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDriverInit, err)
	}

	e.realCount = e.scanner.Scan()
	logger.Info("Detected physical controllers", "count", e.realCount)
	return e, nil
}

func (e *Engine) Flags() *Flags { return &e.flags }
func (e *Engine) Pool() *Pool   { return e.pool }

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		RealCount:    e.realCount,
		TotalCount:   e.totalCount,
		CountBefore:  e.countBefore,
		VirtualCount: e.pool.VirtualCount(),
		Plugged:      e.pool.Plugged(),
		Paused:       e.flags.paused.Load(),
	}
}

// Run drives the frame loop until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	e.runMu.Lock()
	if e.closed {
		e.runMu.Unlock()
		return ErrClosed
	}
	if e.done != nil {
		e.runMu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.flags.running.Store(true)
	e.runMu.Unlock()

	defer close(e.done)
	defer cancel()
	e.loop(ctx)
	return nil
}

// Stop asks the loop to exit. It returns immediately.
func (e *Engine) Stop() {
	e.flags.running.Store(false)
	e.runMu.Lock()
	cancel := e.cancel
	e.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close stops the loop, waits for it, releases every virtual target and
// shuts the driver down. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.Stop()
		e.runMu.Lock()
		e.closed = true
		done := e.done
		e.runMu.Unlock()
		if done != nil {
			<-done
		}

		e.mu.Lock()
		n := e.pool.UnplugAll()
		e.mu.Unlock()
		if n > 0 {
			e.logger.Info("Unplugged virtual controllers", "count", n)
		}
		if err := e.drv.Shutdown(); err != nil {
			e.closeErr = fmt.Errorf("driver shutdown: %w", err)
		}
	})
	return e.closeErr
}

// ResetControllers releases every virtual target, waits for the bus to
// settle, rescans the physical controllers and resumes.
func (e *Engine) ResetControllers(ctx context.Context) error {
	return e.reset(ctx, true)
}

// EnableControllers resets the virtual targets like ResetControllers and
// leaves controller work paused when enable is false.
func (e *Engine) EnableControllers(ctx context.Context, enable bool) error {
	return e.reset(ctx, enable)
}

func (e *Engine) reset(ctx context.Context, resume bool) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.flags.paused.Store(true)
	e.mu.Lock()
	n := e.pool.UnplugAll()
	e.mu.Unlock()
	e.logger.Info("Released virtual controllers", "count", n)

	if e.settle > 0 {
		t := time.NewTimer(e.settle)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	physical := e.scanner.Scan()
	e.mu.Lock()
	e.realCount = physical
	e.totalCount = 0
	e.countBefore = 0
	e.mu.Unlock()
	e.logger.Info("Detected physical controllers", "count", physical)

	if resume {
		e.flags.paused.Store(false)
	}
	return nil
}

func (e *Engine) ShowConsole(visible bool) {
	e.flags.consoleVisible.Store(visible)
	e.focus.ShowConsole(visible)
}

func (e *Engine) ShowOverlay(visible bool) {
	e.flags.overlayVisible.Store(visible)
	e.focus.ShowOverlay(visible)
}
