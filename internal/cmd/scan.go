package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/steamtarget/gamepad"
	"github.com/Alia5/steamtarget/internal/engine"
	"github.com/Alia5/steamtarget/internal/scanner"
	"github.com/Alia5/steamtarget/internal/xinput"
)

// Scan prints the physical controller count and the XInput slot occupancy.
type Scan struct{}

func (s *Scan) Run(logger *slog.Logger) error {
	sc := scanner.New(logger)
	defer func() { _ = sc.Close() }()
	return writeScan(os.Stdout, sc, xinput.New())
}

func writeScan(w io.Writer, sc engine.Scanner, in engine.Input) error {
	if _, err := fmt.Fprintf(w, "physical controllers: %d\n", sc.Scan()); err != nil {
		return err
	}
	for slot := 0; slot < gamepad.MaxSlots; slot++ {
		status := "connected"
		if _, err := in.State(slot); err != nil {
			if !errors.Is(err, engine.ErrDeviceAbsent) {
				status = "error: " + err.Error()
			} else {
				status = "empty"
			}
		}
		if _, err := fmt.Fprintf(w, "slot %d: %s\n", slot, status); err != nil {
			return err
		}
	}
	return nil
}
