package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/salonkit/salonkit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the salonkit HTTP API server",
	Long:  `Starts the HTTP API serving the conversation endpoints and the live chat websocket for app frontends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			DataDir:  cfg.DataDir,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, a.db, a.handlers)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
			fmt.Fprintln(os.Stderr, "\nShutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
