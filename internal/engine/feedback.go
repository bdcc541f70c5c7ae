package engine

import (
	"context"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/log"
)

// OnFeedback routes a rumble request raised on a virtual target to the
// physical controller at the same slot. Serials that are no longer plugged
// are dropped: a target can be unplugged while its last feedback is in flight.
func (e *Engine) OnFeedback(serial driver.Serial, rumble gamepad.Rumble) {
	slot, ok := e.pool.SlotOf(serial)
	if !ok {
		e.logger.Debug("Dropping feedback for unknown target", "serial", serial)
		return
	}
	left, right := rumble.Vibration()
	e.logger.Log(context.Background(), log.LevelTrace, "Feedback", "serial", serial, "slot", slot, "left", left, "right", right)
	if err := e.input.SetVibration(slot, left, right); err != nil {
		e.logger.Debug("SetVibration failed", "slot", slot, "error", err)
	}
}
