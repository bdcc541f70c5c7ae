//go:build windows

package main

import (
	"log/slog"
	"os"

	"github.com/Alia5/steamtarget/internal/util"
)

// The launcher starts the target without arguments; default to run.
func init() {
	if util.IsRunFromGUI() {
		args := os.Args
		if len(args) < 2 || args[1] != "run" {
			slog.Info("Detected launcher startup, injecting 'run' argument")
			newArgs := make([]string, 0, len(args)+1)
			newArgs = append(newArgs, args[0], "run")
			newArgs = append(newArgs, args[1:]...)
			os.Args = newArgs
		}
	}
}
