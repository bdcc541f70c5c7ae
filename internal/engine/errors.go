package engine

import "errors"

var (
	// ErrDriverInit means the virtualization subsystem could not be brought
	// up. The engine is unusable and the process should exit.
	ErrDriverInit = errors.New("virtualization driver init failed")
	// ErrDeviceAbsent is returned by an Input when no controller answers at a slot.
	ErrDeviceAbsent = errors.New("device not connected")
	// ErrSlotOutOfRange is returned for slot indices outside [0, gamepad.MaxSlots).
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrAlreadyRunning = errors.New("engine already running")
	ErrClosed         = errors.New("engine closed")
)
