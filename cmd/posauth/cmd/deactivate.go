package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deactivateYes bool

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Unbind this terminal from its business",
	Long: `Deactivate clears the device token and every other locally persisted
secret. The terminal returns to the unactivated state; re-binding it requires
fresh owner or manager credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deactivateYes {
			return fmt.Errorf("refusing to deactivate without --yes (this cannot be undone locally)")
		}

		mgr, cleanup, err := newManager()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if err := mgr.Start(ctx); err != nil {
			return err
		}
		if err := mgr.DeactivateDevice(ctx); err != nil {
			return fmt.Errorf("deactivation failed: %w", err)
		}

		fmt.Println("Terminal deactivated. All local credentials cleared.")
		return nil
	},
}

func init() {
	deactivateCmd.Flags().BoolVar(&deactivateYes, "yes", false, "confirm deactivation")
	rootCmd.AddCommand(deactivateCmd)
}
