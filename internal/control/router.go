package control

import (
	"context"
	"fmt"
	"log/slog"
)

// HandlerFunc executes a parsed command. The logger is scoped to the
// connection the command arrived on.
type HandlerFunc func(ctx context.Context, cmd Command, logger *slog.Logger) error

// Target is what the commands act upon.
type Target interface {
	ResetControllers(ctx context.Context) error
	EnableControllers(ctx context.Context, enable bool) error
	ShowConsole(visible bool)
	ShowOverlay(visible bool)
}

// Router maps verbs to handlers.
type Router struct {
	routes map[Verb]HandlerFunc
}

func NewRouter() *Router { return &Router{routes: map[Verb]HandlerFunc{}} }

func (r *Router) Register(verb Verb, h HandlerFunc) { r.routes[verb] = h }

func (r *Router) Match(verb Verb) HandlerFunc { return r.routes[verb] }

// Dispatch parses line and runs its handler.
func (r *Router) Dispatch(ctx context.Context, line string, logger *slog.Logger) error {
	cmd, err := Parse(line)
	if err != nil {
		return err
	}
	h := r.Match(cmd.Verb)
	if h == nil {
		return fmt.Errorf("%w: %s has no handler", ErrUnknownCommand, cmd.Verb)
	}
	logger.Info("Control command", "cmd", cmd.String())
	return h(ctx, cmd, logger)
}

// NewTargetRouter registers the four commands against t.
func NewTargetRouter(t Target) *Router {
	r := NewRouter()
	r.Register(ResetControllers, func(ctx context.Context, _ Command, _ *slog.Logger) error {
		return t.ResetControllers(ctx)
	})
	r.Register(EnableControllers, func(ctx context.Context, cmd Command, _ *slog.Logger) error {
		return t.EnableControllers(ctx, cmd.Enabled())
	})
	r.Register(ShowConsole, func(_ context.Context, cmd Command, _ *slog.Logger) error {
		t.ShowConsole(cmd.Enabled())
		return nil
	})
	r.Register(ShowOverlay, func(_ context.Context, cmd Command, _ *slog.Logger) error {
		t.ShowOverlay(cmd.Enabled())
		return nil
	})
	return r
}
