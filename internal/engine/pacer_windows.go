//go:build windows

package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sys/windows"
)

var (
	dwmapi       = windows.NewLazySystemDLL("dwmapi.dll")
	procDwmFlush = dwmapi.NewProc("DwmFlush")
)

// vblankPacer ticks once per compositor frame by blocking on DwmFlush.
func vblankPacer(ctx context.Context, logger *slog.Logger) (<-chan time.Time, bool) {
	if err := procDwmFlush.Find(); err != nil {
		return nil, false
	}
	out := make(chan time.Time)
	go func() {
		for ctx.Err() == nil {
			if hr, _, _ := procDwmFlush.Call(); hr != 0 {
				logger.Debug("DwmFlush failed", "hresult", hr)
				time.Sleep(time.Second / vsyncFallbackRate)
			}
			select {
			case out <- time.Now():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, true
}
