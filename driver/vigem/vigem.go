// Package vigem plugs virtual Xbox 360 targets into the ViGEmBus driver
// through ViGEmClient.dll. It is only functional on Windows.
package vigem

import "fmt"

// ViGEm error codes as returned by ViGEmClient.dll.
const (
	errNone                      = 0x20000000
	errBusNotFound               = 0xE0000001
	errNoFreeSlot                = 0xE0000002
	errInvalidTarget             = 0xE0000003
	errRemovalFailed             = 0xE0000004
	errAlreadyConnected          = 0xE0000005
	errTargetUninitialized       = 0xE0000006
	errTargetNotPluggedIn        = 0xE0000007
	errBusVersionMismatch        = 0xE0000008
	errBusAccessFailed           = 0xE0000009
	errCallbackAlreadyRegistered = 0xE0000010
	errCallbackNotFound          = 0xE0000011
	errBusAlreadyConnected       = 0xE0000012
	errBusInvalidHandle          = 0xE0000013
	errXusbUserIndexOutOfRange   = 0xE0000014
)

// Error is a non-success ViGEm return code.
type Error struct{ Code uint32 }

func newError(raw uintptr) error {
	if uint32(raw) == errNone {
		return nil
	}
	return &Error{Code: uint32(raw)}
}

func (e *Error) Error() string {
	switch e.Code {
	case errBusNotFound:
		return "vigem: bus not found"
	case errNoFreeSlot:
		return "vigem: no free slot"
	case errInvalidTarget:
		return "vigem: invalid target"
	case errRemovalFailed:
		return "vigem: removal failed"
	case errAlreadyConnected:
		return "vigem: already connected"
	case errTargetUninitialized:
		return "vigem: target uninitialized"
	case errTargetNotPluggedIn:
		return "vigem: target not plugged in"
	case errBusVersionMismatch:
		return "vigem: bus version mismatch"
	case errBusAccessFailed:
		return "vigem: bus access failed"
	case errCallbackAlreadyRegistered:
		return "vigem: callback already registered"
	case errCallbackNotFound:
		return "vigem: callback not found"
	case errBusAlreadyConnected:
		return "vigem: bus already connected"
	case errBusInvalidHandle:
		return "vigem: bus invalid handle"
	case errXusbUserIndexOutOfRange:
		return "vigem: xusb user index out of range"
	default:
		return fmt.Sprintf("vigem: unknown error 0x%08x", e.Code)
	}
}

// xusbReport mirrors XUSB_REPORT.
type xusbReport struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}
