//go:build !windows

package cmd

import (
	"log/slog"

	"github.com/Alia5/steamtarget/internal/focus"
)

func newWindows(_ *slog.Logger) (focus.Windows, func()) {
	return focus.Headless{}, func() {}
}
