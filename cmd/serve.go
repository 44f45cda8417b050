package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clubhours/config"
	"clubhours/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine as a JSON API with Prometheus metrics",
	Long: `Start an HTTP server exposing sessions, logs, imports, exports and aggregates
under /api and Prometheus metrics under /metrics.

The API has no authentication. Bind it to localhost or put it behind a trusted proxy.`,
	Example: `
  # Start on the configured address
  clubhours serve

  # Start on a custom address with in-memory storage
  CLUBHOURS_STORAGE_DRIVER=memory clubhours serve --addr 127.0.0.1:9090
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		addr := resolveServeAddr(serveAddr, cfg.Serve.Addr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, release, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer release()

		server := &http.Server{
			Addr:              addr,
			Handler:           web.NewServer(eng, logrus.WithField("component", "http")),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()
		logrus.WithField("addr", addr).Info("listening")
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdown); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			err := <-errCh
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address host:port (default: serve.addr from config)")
}

func resolveServeAddr(flagValue, configValue string) string {
	if value := strings.TrimSpace(flagValue); value != "" {
		return value
	}
	if value := strings.TrimSpace(configValue); value != "" {
		return value
	}
	return config.DefaultServeAddr
}
