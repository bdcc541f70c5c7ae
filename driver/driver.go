// Package driver defines the virtualization subsystem the engine plugs
// virtual Xbox 360 targets into.
package driver

import (
	"errors"
	"fmt"

	"github.com/Alia5/steamtarget/gamepad"
)

// Serial identifies a plugged virtual target. Zero means unset.
type Serial uint32

func (s Serial) String() string { return fmt.Sprintf("%d", uint32(s)) }

// ErrDriverUnavailable is returned when the subsystem cannot accept a new
// target or operation (bus exhausted, driver not initialised, connection lost).
var ErrDriverUnavailable = errors.New("virtualization driver unavailable")

// FeedbackFunc receives force-feedback requests for a virtual target.
// It may be invoked from any goroutine.
type FeedbackFunc func(serial Serial, rumble gamepad.Rumble)

// Driver is a virtual controller bus.
type Driver interface {
	// Init connects to the subsystem. A failure here is fatal for the caller.
	Init() error
	// Shutdown releases every target still plugged and disconnects.
	Shutdown() error
	// Plug creates and registers a new Xbox 360 target.
	Plug() (Serial, error)
	// Unplug removes a target.
	Unplug(serial Serial) error
	// Submit sends an input report to a plugged target.
	Submit(serial Serial, state gamepad.InputState) error
	// SetFeedbackHandler registers the receiver of rumble notifications.
	// Must be called before the first Plug.
	SetFeedbackHandler(f FeedbackFunc)
}

// Unavailable wraps err so that errors.Is(err, ErrDriverUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDriverUnavailable, err)
}
