package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencounter/posauth/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the terminal's authentication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cleanup, err := newManager()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := mgr.Start(cmd.Context()); err != nil {
			return err
		}

		snap := mgr.Snapshot()
		fmt.Printf("state: %s\n", snap.State)
		switch snap.State {
		case session.StateDeviceNotActivated:
			fmt.Println("This terminal is not bound to a business. Run `posauth activate`.")
		case session.StateNeedsPin:
			fmt.Println("Device is bound; an employee PIN is required to start a session.")
		case session.StateAuthenticated:
			fmt.Printf("employee: %s (%s)\n", snap.Identity.Name, snap.Identity.ID)
			fmt.Printf("location: %s (role %s)\n", snap.Location.Name, snap.Role())
			fmt.Printf("expires:  %s\n", snap.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
