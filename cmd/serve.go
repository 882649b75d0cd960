package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the StoryStudio HTTP API",
		Long: `Starts the HTTP API used by the StoryStudio web client.

Endpoints generate scene-by-scene stories with illustrations and export
a list of scenes into a PDF attachment.`,
		Example: `  # Start server on the configured port (default 5000)
  storystudio serve

  # Start server on a custom port
  storystudio serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			router := server.New(server.Options{
				Service:     a.service,
				Exporter:    a.exporter,
				CORSOrigins: cfg.Server.CORSOrigins,
				Release:     cfg.Log.Format == "json",
			})
			srv := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      router.Engine(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info(ctx, "StoryStudio API available", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info(context.Background(), "Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error(shutdownCtx, "Server shutdown failed", err)
					return err
				}
				logger.Info(shutdownCtx, "Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 5000, "Port to listen on (overrides server.port)")

	return cmd
}
