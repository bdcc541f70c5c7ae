// Package gamepad holds the Xbox 360 / XInput controller state shared by the
// physical input side and the virtual targets.
package gamepad

import (
	"encoding/binary"
	"io"
)

// StreamFrameSize is the length of one input frame on a VIIPER xbox360 device stream.
const StreamFrameSize = 14

// ReportSize is the length of a wired XUSB input report.
const ReportSize = 20

// InputState mirrors XINPUT_GAMEPAD, which is also the payload of XUSB_REPORT.
type InputState struct {
	Buttons uint16
	// Triggers: 0-255
	LT, RT uint8
	LX, LY int16
	RX, RY int16
}

// Pressed reports whether all buttons in mask are held.
func (s InputState) Pressed(mask uint16) bool {
	return s.Buttons&mask == mask
}

// BuildReport encodes the state into the 20-byte wired Xbox 360 USB input report.
// Layout (indices in the returned slice):
//
//	 0: 0x00              - Report ID
//	 1: 0x14              - Payload size (20 bytes)
//	 2-3: Buttons (little-endian)
//	 4: LT
//	 5: RT
//	 6-13: LX, LY, RX, RY (little-endian int16)
//	14-19: zero
func (s *InputState) BuildReport() []byte {
	b := make([]byte, ReportSize)
	b[0] = 0x00
	b[1] = ReportSize
	binary.LittleEndian.PutUint16(b[2:4], s.Buttons)
	s.putAxes(b[4:14])
	return b
}

// MarshalBinary encodes the state as a VIIPER stream frame:
// buttons:u32 lt:u8 rt:u8 lx:i16 ly:i16 rx:i16 ry:i16.
func (s *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, StreamFrameSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(s.Buttons))
	s.putAxes(b[4:14])
	return b, nil
}

// UnmarshalBinary decodes a VIIPER stream frame.
func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < StreamFrameSize {
		return io.ErrUnexpectedEOF
	}
	s.Buttons = uint16(binary.LittleEndian.Uint32(data[0:4]))
	s.LT = data[4]
	s.RT = data[5]
	s.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	s.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	s.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	s.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

func (s *InputState) putAxes(b []byte) {
	b[0] = s.LT
	b[1] = s.RT
	binary.LittleEndian.PutUint16(b[2:4], uint16(s.LX))
	binary.LittleEndian.PutUint16(b[4:6], uint16(s.LY))
	binary.LittleEndian.PutUint16(b[6:8], uint16(s.RX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(s.RY))
}
