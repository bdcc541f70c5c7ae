//go:build windows

package cmd

import (
	"log/slog"

	"github.com/Alia5/steamtarget/internal/focus"
)

func newWindows(logger *slog.Logger) (focus.Windows, func()) {
	w, err := focus.NewWin32(logger)
	if err != nil {
		logger.Warn("Failed to create the overlay window, focus handling disabled", "error", err)
		return focus.Headless{}, func() {}
	}
	return w, func() { _ = w.Close() }
}
