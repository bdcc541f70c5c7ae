package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/log"
)

func (e *Engine) loop(ctx context.Context) {
	e.focus.ShowConsole(e.flags.ConsoleVisible())
	e.focus.ShowOverlay(e.flags.OverlayVisible())
	e.Reconcile()

	frames := newPacer(ctx, e.flags.VSync(), e.flags.RefreshRate(), e.logger)
	reconcile := time.NewTicker(reconcileInterval)
	defer reconcile.Stop()

	e.logger.Info("Engine running", "vsync", e.flags.VSync(), "refreshRate", e.flags.RefreshRate())
	defer e.logger.Info("Engine stopped")
	for e.flags.Running() {
		select {
		case <-ctx.Done():
			e.flags.running.Store(false)
			return
		case <-reconcile.C:
			e.Reconcile()
		case <-frames:
			e.Step()
		}
	}
}

// Reconcile recomputes the number of slots to service from the live
// controller count. It does nothing while paused.
func (e *Engine) Reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flags.paused.Load() {
		return
	}
	e.recount()
}

// Step runs one frame: the controller pass, then focus arbitration. Focus
// arbitration also runs while controllers are paused.
func (e *Engine) Step() {
	if e.flags.OverlayVisible() {
		e.focus.KeepOnTop()
	}
	if !e.flags.paused.Load() {
		e.stepControllers()
	}
	e.focus.Tick(e.signal.Open())
}

func (e *Engine) stepControllers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	// A pause issued before the lock was taken must win over this frame.
	if e.flags.paused.Load() {
		return
	}

	for slot := e.realCount; slot < min(e.totalCount, gamepad.MaxSlots); slot++ {
		state, err := e.input.State(slot)
		if err != nil {
			if !errors.Is(err, ErrDeviceAbsent) {
				e.logger.Debug("Controller query failed", "slot", slot, "error", err)
			}
			if e.pool.IsPlugged(slot) {
				serial := e.pool.Serial(slot)
				if e.pool.Unplug(slot) {
					e.logger.Info("Unplugged controller", "slot", slot, "serial", serial)
					e.recount()
				}
			}
			continue
		}

		if !e.pool.IsPlugged(slot) {
			serial, err := e.pool.Plug(slot)
			if err != nil {
				e.logger.Warn("Plug failed", "slot", slot, "error", err)
				continue
			}
			e.logger.Info("Plugged in controller", "slot", slot, "serial", serial)
			e.recount()
		}

		if err := e.pool.Forward(slot, state); err != nil {
			e.logger.Debug("Forward failed", "slot", slot, "error", err)
			continue
		}
		e.logger.Log(context.Background(), log.LevelTrace, "Forwarded", "slot", slot, "buttons", state.Buttons)
	}
}

// recount must be called with e.mu held.
func (e *Engine) recount() {
	e.countBefore = e.totalCount
	e.totalCount = e.liveCount() - e.pool.VirtualCount()
	if e.totalCount != e.countBefore {
		e.logger.Debug("Controller count changed", "before", e.countBefore, "total", e.totalCount, "virtual", e.pool.VirtualCount())
	}
}

// liveCount counts the slots answering from 0 up to the first gap.
func (e *Engine) liveCount() int {
	n := 0
	for slot := 0; slot < gamepad.MaxSlots; slot++ {
		if _, err := e.input.State(slot); err != nil {
			break
		}
		n++
	}
	return n
}
