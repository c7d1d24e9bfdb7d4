package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikbrunner/minimark/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(_ []string) error {
	return c.rt.withApp(func(ctx context.Context, a *App) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := c.Addr
		if addr == "" {
			addr = a.Config.Server.Addr
		}
		srv := server.New(a.Service, server.Options{
			Addr:           addr,
			AllowedOrigins: a.Config.Server.AllowedOrigins,
			Logger:         a.Log,
		})

		a.Checker.Start(ctx)
		defer a.Checker.Stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
}
