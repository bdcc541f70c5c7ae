//go:build !windows

package engine

import (
	"context"
	"log/slog"
	"time"
)

func vblankPacer(context.Context, *slog.Logger) (<-chan time.Time, bool) { return nil, false }
