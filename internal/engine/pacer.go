package engine

import (
	"context"
	"log/slog"
	"time"
)

const vsyncFallbackRate = 60

// tickerPacer emits frame ticks at a fixed rate until ctx is done.
func tickerPacer(ctx context.Context, hz int) <-chan time.Time {
	out := make(chan time.Time)
	t := time.NewTicker(time.Second / time.Duration(hz))
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				select {
				case out <- now:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func newPacer(ctx context.Context, vsync bool, hz int, logger *slog.Logger) <-chan time.Time {
	if vsync {
		if c, ok := vblankPacer(ctx, logger); ok {
			return c
		}
		logger.Debug("Display sync unavailable, pacing at fixed rate", "hz", vsyncFallbackRate)
		return tickerPacer(ctx, vsyncFallbackRate)
	}
	if hz <= 0 {
		hz = defaultRefreshRate
	}
	return tickerPacer(ctx, hz)
}
