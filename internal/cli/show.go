package cli

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the tracked stations comparison table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), cmd.OutOrStdout())
	},
}
