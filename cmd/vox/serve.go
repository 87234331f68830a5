package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxloop/vox/internal/db/migrations"
	"github.com/voxloop/vox/internal/logging"
	"github.com/voxloop/vox/internal/server"
)

// ServeCmd starts the HTTP server.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the voice cloning HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			RunServe()
		},
	}
}

// RunServe runs the server until interrupted.
func RunServe() {
	if !verbose {
		logging.Disable()
		migrations.QuietMode = true
	}

	c := *ServerConfig

	if err := server.CheckPortAvailable(c); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal: %v - shutting down...\n", sig)
		cancel()
	}()

	if err := server.Run(ctx, c, server.Options{Quiet: quiet}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
