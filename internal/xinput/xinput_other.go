//go:build !windows

package xinput

import (
	"fmt"

	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/engine"
)

// State reports every slot absent: XInput only exists on Windows.
func (x *XInput) State(slot int) (gamepad.InputState, error) {
	return gamepad.InputState{}, fmt.Errorf("slot %d: %w", slot, engine.ErrDeviceAbsent)
}

func (x *XInput) SetVibration(slot int, _, _ uint16) error {
	return fmt.Errorf("slot %d: %w", slot, engine.ErrDeviceAbsent)
}
