package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencounter/posauth/config"
	"github.com/opencounter/posauth/stubserver"
)

var devserverAddr string

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory stub of the backend auth API",
	Long: `Devserver runs an in-memory backend speaking the terminal's wire
protocol, seeded with a small two-location business. It exists for local
development and demos; nothing is persisted.

Seed accounts: owner@example.test / owner-password.
Seed PINs: 1111 (owner), 2222 (cashier at loc-1, manager at loc-2),
3333 (accountant at loc-1).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := devserverAddr
		if addr == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			addr = cfg.DevServerAddr
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		srv := &http.Server{
			Addr:              addr,
			Handler:           stubserver.New(stubserver.WithLogger(logger)).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("stub auth server listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", "", "listen address (default from POSAUTH_DEVSERVER_ADDR)")
	rootCmd.AddCommand(devserverCmd)
}
