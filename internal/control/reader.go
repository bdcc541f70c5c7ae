package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Config configures the control transports.
type Config struct {
	Addr     string `help:"TCP listen address for control commands (empty = disabled)" env:"STEAMTARGET_CONTROL_ADDR"`
	Password string `help:"Require this password on control connections" env:"STEAMTARGET_CONTROL_PASSWORD"`
	Stdin    bool   `help:"Read control commands from stdin" default:"true" negatable:"" env:"STEAMTARGET_CONTROL_STDIN"`
}

// Serve reads commands from r line by line until EOF or ctx is done. When w
// is non-nil every command is answered with "OK" or "ERR <detail>".
// Bad commands are logged and skipped.
func Serve(ctx context.Context, r io.Reader, w io.Writer, router *Router, logger *slog.Logger) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := sc.Text()
		err := router.Dispatch(ctx, line, logger)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			logger.Warn("Control command failed", "line", line, "error", err)
		}
		if w != nil {
			if err := reply(w, err); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func reply(w io.Writer, err error) error {
	var werr error
	if err != nil {
		_, werr = fmt.Fprintf(w, "ERR %s\n", err)
	} else {
		_, werr = io.WriteString(w, "OK\n")
	}
	return werr
}

// ServeStdin reads commands from the process's stdin. Replies are not
// written: stdout carries the log.
func ServeStdin(ctx context.Context, router *Router, logger *slog.Logger) error {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Info("Reading control commands from the terminal", "commands", "ResetControllers, ShowConsole <0|1>, ShowOverlay <0|1>, EnableControllers <0|1>")
	}
	return Serve(ctx, os.Stdin, nil, router, logger)
}
