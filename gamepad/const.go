package gamepad

// Button bitmasks as reported by XInput (XINPUT_GAMEPAD.wButtons).
const (
	ButtonDPadUp    = 0x0001
	ButtonDPadDown  = 0x0002
	ButtonDPadLeft  = 0x0004
	ButtonDPadRight = 0x0008
	ButtonStart     = 0x0010
	ButtonBack      = 0x0020
	ButtonLThumb    = 0x0040
	ButtonRThumb    = 0x0080
	ButtonLShoulder = 0x0100
	ButtonRShoulder = 0x0200
	ButtonGuide     = 0x0400 // only reported by XInputGetStateEx
	ButtonA         = 0x1000
	ButtonB         = 0x2000
	ButtonX         = 0x4000
	ButtonY         = 0x8000
)

// Signature of the wired Xbox 360 controller. Physical controllers are
// recognised by it and virtual targets are created with it.
const (
	VendorID  uint16 = 0x045e
	ProductID uint16 = 0x028e
)

// MaxSlots is the number of controller user indices XInput exposes.
const MaxSlots = 4
