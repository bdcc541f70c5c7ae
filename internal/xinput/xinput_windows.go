//go:build windows

package xinput

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/engine"
)

var (
	dll          = windows.NewLazySystemDLL("xinput1_4.dll")
	procGetState = dll.NewProc("XInputGetState")
	procSetState = dll.NewProc("XInputSetState")
)

func call(p *windows.LazyProc, slot int, arg unsafe.Pointer) error {
	if err := p.Find(); err != nil {
		return fmt.Errorf("xinput: %w", err)
	}
	r, _, _ := p.Call(uintptr(slot), uintptr(arg))
	switch windows.Errno(r) {
	case windows.ERROR_SUCCESS:
		return nil
	case windows.ERROR_DEVICE_NOT_CONNECTED:
		return fmt.Errorf("slot %d: %w", slot, engine.ErrDeviceAbsent)
	default:
		return fmt.Errorf("slot %d: %w", slot, windows.Errno(r))
	}
}

func (x *XInput) State(slot int) (gamepad.InputState, error) {
	if slot < 0 || slot >= gamepad.MaxSlots {
		return gamepad.InputState{}, fmt.Errorf("slot %d: %w", slot, engine.ErrDeviceAbsent)
	}
	var st nativeState
	if err := call(procGetState, slot, unsafe.Pointer(&st)); err != nil {
		return gamepad.InputState{}, err
	}
	return st.toState(), nil
}

func (x *XInput) SetVibration(slot int, left, right uint16) error {
	if slot < 0 || slot >= gamepad.MaxSlots {
		return errors.New("xinput: slot out of range")
	}
	v := nativeVibration{LeftMotorSpeed: left, RightMotorSpeed: right}
	return call(procSetState, slot, unsafe.Pointer(&v))
}
