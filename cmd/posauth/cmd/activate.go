package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencounter/posauth/config"
)

var (
	activateEmail    string
	activatePassword string
	activateName     string
)

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Bind this terminal to a business account",
	Long: `Activate binds the terminal to a business using owner or manager
credentials. The issued device token is sealed into the local credential
store; afterwards employees sign in with their PIN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cleanup, err := newManager()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("probing credential store: %w", err)
		}

		name := activateName
		if name == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			name = cfg.DeviceName
		}

		if err := mgr.ActivateDevice(ctx, activateEmail, activatePassword, name); err != nil {
			return fmt.Errorf("activation failed: %w", err)
		}

		fmt.Printf("Terminal activated as %q. Employees can now sign in with their PIN.\n", name)
		return nil
	},
}

func init() {
	activateCmd.Flags().StringVar(&activateEmail, "email", "", "owner or manager email")
	activateCmd.Flags().StringVar(&activatePassword, "password", "", "account password")
	activateCmd.Flags().StringVar(&activateName, "device-name", "", "terminal name shown in the back office (default: hostname)")
	activateCmd.MarkFlagRequired("email")
	activateCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(activateCmd)
}
