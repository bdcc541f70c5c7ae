//go:build !windows

package overlay

import (
	"errors"
	"log/slog"
)

func newSteamProbe(*slog.Logger) (*SteamProbe, error) {
	return nil, errors.New("the steam overlay probe is only available on Windows")
}
