// Package xinput reads physical controllers through the platform XInput API.
package xinput

import (
	"github.com/Alia5/steamtarget/gamepad"
)

type nativeGamepad struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

type nativeState struct {
	PacketNumber uint32
	Gamepad      nativeGamepad
}

type nativeVibration struct {
	LeftMotorSpeed  uint16
	RightMotorSpeed uint16
}

func (n nativeState) toState() gamepad.InputState {
	return gamepad.InputState{
		Buttons: n.Gamepad.Buttons,
		LT:      n.Gamepad.LeftTrigger,
		RT:      n.Gamepad.RightTrigger,
		LX:      n.Gamepad.ThumbLX,
		LY:      n.Gamepad.ThumbLY,
		RX:      n.Gamepad.ThumbRX,
		RY:      n.Gamepad.ThumbRY,
	}
}

// XInput is the engine's physical input source. The zero value is ready to use.
type XInput struct{}

func New() *XInput { return &XInput{} }
