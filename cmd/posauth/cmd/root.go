package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencounter/posauth/config"
	bboltstore "github.com/opencounter/posauth/credstore/bbolt"
	"github.com/opencounter/posauth/session"
	"github.com/opencounter/posauth/transport"
)

var rootCmd = &cobra.Command{
	Use:   "posauth",
	Short: "Provisioning and diagnostics for POS terminal authentication",
	Long: `posauth manages the device binding and employee session state of a
point-of-sale terminal: activating a terminal against a business account,
inspecting session state, and unbinding a terminal. PIN entry itself happens
in the terminal UI; this tool covers provisioning and diagnostics.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager wires config, credential store, transport and session manager.
// The returned cleanup closes the store and the manager.
func newManager() (*session.Manager, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.InstallSecret == "" {
		return nil, nil, fmt.Errorf("POSAUTH_INSTALL_SECRET must be set")
	}

	store, err := bboltstore.Open(cfg.StorePath, cfg.InstallSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("opening credential store: %w", err)
	}

	remote := transport.NewClient(cfg.APIBaseURL)
	mgr := session.NewManager(store, remote,
		session.WithRefreshInterval(cfg.RefreshInterval),
		session.WithRefreshThreshold(cfg.RefreshThreshold),
	)

	cleanup := func() {
		mgr.Close()
		store.Close()
	}
	return mgr, cleanup, nil
}
