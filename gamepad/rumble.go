package gamepad

import "io"

// RumbleSize is the length of a rumble message on a VIIPER xbox360 device stream.
const RumbleSize = 2

// Rumble is a force-feedback request raised by the host application on a
// virtual target. Both motors range 0-255.
type Rumble struct {
	LargeMotor uint8 // left, low frequency
	SmallMotor uint8 // right, high frequency
}

// MarshalBinary encodes the rumble as [large, small].
func (r *Rumble) MarshalBinary() ([]byte, error) {
	return []byte{r.LargeMotor, r.SmallMotor}, nil
}

// UnmarshalBinary decodes [large, small].
func (r *Rumble) UnmarshalBinary(data []byte) error {
	if len(data) < RumbleSize {
		return io.ErrUnexpectedEOF
	}
	r.LargeMotor = data[0]
	r.SmallMotor = data[1]
	return nil
}

// Vibration scales the 8-bit motor values into XInput's 16-bit motor speeds.
func (r Rumble) Vibration() (left, right uint16) {
	return uint16(r.LargeMotor) * 0xff, uint16(r.SmallMotor) * 0xff
}
