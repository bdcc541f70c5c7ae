//go:build !windows

package vigem

import (
	"errors"
	"log/slog"

	"github.com/Alia5/steamtarget/driver"
	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/log"
)

var errUnsupported = errors.New("ViGEmBus is only available on Windows")

// Driver is a placeholder that fails Init on this platform.
type Driver struct{}

func New(_ *slog.Logger, _ log.RawLogger) *Driver { return &Driver{} }

func (d *Driver) Init() error                            { return driver.Unavailable("init", errUnsupported) }
func (d *Driver) Shutdown() error                        { return nil }
func (d *Driver) Plug() (driver.Serial, error)           { return 0, driver.Unavailable("plug", errUnsupported) }
func (d *Driver) Unplug(driver.Serial) error             { return driver.Unavailable("unplug", errUnsupported) }
func (d *Driver) SetFeedbackHandler(driver.FeedbackFunc) {}
func (d *Driver) Submit(driver.Serial, gamepad.InputState) error {
	return driver.Unavailable("submit", errUnsupported)
}
