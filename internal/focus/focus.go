// Package focus keeps a third-party overlay's per-application binding context
// attached to the target application while the overlay opens and closes.
//
// The overlay keys its binding context off window focus transitions. Bouncing
// focus between the console and the overlay window around an overlay session
// keeps that context on the game. Nothing documents this behaviour: treat the
// sequences below as a compatibility shim and every call as best-effort.
package focus

import (
	"log/slog"
	"sync"
)

// Handle is an opaque native window handle. Zero means none.
type Handle uintptr

// Windows is the window system the arbitrator drives.
type Windows interface {
	// Console is the helper window focus bounces through.
	Console() Handle
	// Overlay is the engine's own topmost window.
	Overlay() Handle
	Foreground() Handle
	// Activate gives h keyboard focus and brings it to the foreground.
	Activate(h Handle)
	// SetClickThrough toggles whether h lets mouse input fall through.
	SetClickThrough(h Handle, on bool)
	Show(h Handle, visible bool)
	// KeepOnTop reasserts h as topmost without activating it.
	KeepOnTop(h Handle)
}

type State int

const (
	Idle State = iota
	OverlayActive
)

func (s State) String() string {
	if s == OverlayActive {
		return "OverlayActive"
	}
	return "Idle"
}

// Arbitrator is the two-state focus machine. It is driven once per frame.
type Arbitrator struct {
	w      Windows
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	remembered Handle
	primed     bool
}

func New(w Windows, logger *slog.Logger) *Arbitrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbitrator{w: w, logger: logger}
}

func (a *Arbitrator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Remembered returns the foreground window captured when the overlay opened.
func (a *Arbitrator) Remembered() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remembered
}

// Tick samples the overlay signal. The first call also focuses the console once.
func (a *Arbitrator) Tick(open bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.primed {
		a.primed = true
		a.w.Activate(a.w.Console())
	}

	switch {
	case open && a.state == Idle:
		a.remembered = a.w.Foreground()
		a.logger.Debug("Overlay opened", "foreground", uintptr(a.remembered))
		console, ov := a.w.Console(), a.w.Overlay()
		a.w.Activate(console)
		a.w.Activate(ov)
		a.w.SetClickThrough(ov, false)
		a.w.Activate(console)
		a.state = OverlayActive
	case !open && a.state == OverlayActive:
		console, ov := a.w.Console(), a.w.Overlay()
		a.w.Activate(ov)
		a.w.SetClickThrough(ov, true)
		a.w.Activate(console)
		a.w.Activate(a.remembered)
		a.logger.Debug("Overlay closed", "restored", uintptr(a.remembered))
		a.remembered = 0
		a.state = Idle
	}
}

// KeepOnTop reasserts the overlay window's z-order.
func (a *Arbitrator) KeepOnTop() {
	a.w.KeepOnTop(a.w.Overlay())
}

func (a *Arbitrator) ShowConsole(visible bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	console := a.w.Console()
	a.w.Show(console, visible)
	a.w.Activate(console)
}

func (a *Arbitrator) ShowOverlay(visible bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.w.Show(a.w.Overlay(), visible)
	a.w.Activate(a.w.Console())
}

// Headless is a Windows without any windows, for platforms lacking a
// compositor integration. Every operation is a no-op.
type Headless struct{}

func (Headless) Console() Handle              { return 0 }
func (Headless) Overlay() Handle              { return 0 }
func (Headless) Foreground() Handle           { return 0 }
func (Headless) Activate(Handle)              {}
func (Headless) SetClickThrough(Handle, bool) {}
func (Headless) Show(Handle, bool)            {}
func (Headless) KeepOnTop(Handle)             {}
